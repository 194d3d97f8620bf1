package routine_test

import (
	"encoding/json"
	"testing"

	"github.com/myrjola/skinwise/internal/routine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_fencedLifestyleOnly(t *testing.T) {
	raw := "```json\n{\"Lifestyle\":{\"do\":[\"Drink water\"]}}\n```"
	got := routine.Normalize(raw)

	encoded, err := json.Marshal(got)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"lifestyle": {"do": ["Drink water"], "dont": [], "tips": []},
		"morningRoutine": [],
		"nightRoutine": [],
		"products": []
	}`, string(encoded))
}

func TestNormalize_degradesToDefault(t *testing.T) {
	for _, raw := range []string{
		"",
		"I'm sorry, I can't help with that.",
		"{ not json at all }",
		"[1, 2, 3]",
		"null",
		"42",
		"```\n```",
		"}{",
	} {
		t.Run(raw, func(t *testing.T) {
			require.Equal(t, routine.Default(), routine.Normalize(raw))
		})
	}
}

func TestNormalize_defaultIsFixedPoint(t *testing.T) {
	encoded, err := json.Marshal(routine.Default())
	require.NoError(t, err)
	require.Equal(t, routine.Default(), routine.Normalize(string(encoded)))
}

func TestNormalize_isIdempotent(t *testing.T) {
	first := routine.Normalize(sampleResponse)
	encoded, err := json.Marshal(first)
	require.NoError(t, err)
	require.Equal(t, first, routine.Normalize(string(encoded)))
}

func TestNormalize_capsProductsPerStep(t *testing.T) {
	raw := `{"morningRoutine":[{"title":"Cleanse","products":["A","B","C","D","E"]}]}`
	got := routine.Normalize(raw)
	require.Len(t, got.MorningRoutine, 1)
	require.Len(t, got.MorningRoutine[0].Products, routine.MaxProductsPerStep)
	assert.Equal(t, "A", got.MorningRoutine[0].Products[0].Name)
	assert.Equal(t, "B", got.MorningRoutine[0].Products[1].Name)
}

func TestNormalize_extractsOutermostObject(t *testing.T) {
	raw := "Here is your routine:\n{\"analysis\": \"Oily T-zone\", \"night_routine\": [\"Double cleanse\"]}\nEnjoy!"
	got := routine.Normalize(raw)
	assert.Equal(t, "Oily T-zone", got.Analysis)
	require.Len(t, got.NightRoutine, 1)
	assert.Equal(t, "Double cleanse", got.NightRoutine[0].Title)
	assert.NotNil(t, got.NightRoutine[0].Products)
}

const sampleResponse = `{
  "skin_analysis": "Combination skin with mild congestion.",
  "routine": {
    "morning": [
      {
        "step": "Cleanser",
        "instructions": "Massage onto damp skin.",
        "productOptions": [
          {"brand": "CeraVe", "name": "Foaming Facial Cleanser", "how_to_use": "Twice daily",
           "key_ingredients": "Niacinamide, Ceramides", "url": "https://example.com/cerave"},
          {"name": "Unknown Brand Gel Wash", "ingredients": ["Glycerin"]},
          {"name": "Third option"}
        ]
      }
    ],
    "evening": {
      "steps": [
        {"title": "Retinoid", "products": [{"product": "The Ordinary Retinol 0.5%"}]},
        {"title": "Cleanser", "products": [{"name": "CeraVe Foaming Facial Cleanser"}]}
      ]
    }
  },
  "LIFESTYLE_RECOMMENDATIONS": {
    "Dos": ["Sleep 8 hours", {"tip": "Wear SPF"}],
    "Don'ts": ["Pick at spots"],
    "Tips": "Change pillowcases weekly"
  }
}`

func TestNormalize_tolerantMapping(t *testing.T) {
	got := routine.Normalize(sampleResponse)

	assert.Equal(t, "Combination skin with mild congestion.", got.Analysis)

	require.Len(t, got.MorningRoutine, 1)
	morning := got.MorningRoutine[0]
	assert.Equal(t, "Cleanser", morning.Title)
	assert.Equal(t, "Massage onto damp skin.", morning.Description)
	require.Len(t, morning.Products, 2)
	assert.Equal(t, routine.Product{
		Name:        "CeraVe Foaming Facial Cleanser",
		Usage:       "Twice daily",
		Ingredients: []string{"Niacinamide", "Ceramides"},
		Link:        "https://example.com/cerave",
		Image:       "/static/products/cerave.svg",
	}, morning.Products[0])
	assert.Equal(t, routine.PlaceholderImage, morning.Products[1].Image)
	assert.Equal(t, []string{"Glycerin"}, morning.Products[1].Ingredients)

	require.Len(t, got.NightRoutine, 2)
	assert.Equal(t, "Retinoid", got.NightRoutine[0].Title)
	assert.Equal(t, "/static/products/the-ordinary.svg", got.NightRoutine[0].Products[0].Image)

	assert.Equal(t, []string{"Sleep 8 hours", "Wear SPF"}, got.Lifestyle.Do)
	assert.Equal(t, []string{"Pick at spots"}, got.Lifestyle.Dont)
	assert.Equal(t, []string{"Change pillowcases weekly"}, got.Lifestyle.Tips)

	// Without a top-level product list the step products are collected once each.
	names := make([]string, 0, len(got.Products))
	for _, p := range got.Products {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{
		"CeraVe Foaming Facial Cleanser", "Unknown Brand Gel Wash", "The Ordinary Retinol 0.5%",
	}, names)
}

func TestNormalizeValue_encodedString(t *testing.T) {
	got := routine.NormalizeValue(`{"products":[{"name":"Bioderma Sensibio H2O"}]}`)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "/static/products/bioderma.svg", got.Products[0].Image)
}

func TestImageFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "LA ROCHE-POSAY Toleriane", want: "/static/products/la-roche-posay.svg"},
		{name: "la roche posay Effaclar", want: "/static/products/la-roche-posay.svg"},
		{name: "Avène Thermal Water", want: "/static/products/avene.svg"},
		{name: "CeraVe x The Ordinary collab", want: "/static/products/cerave.svg"},
		{name: "Homemade honey mask", want: routine.PlaceholderImage},
		{name: "", want: routine.PlaceholderImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, routine.ImageFor(tt.name))
		})
	}
}
