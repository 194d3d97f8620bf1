package payload_test

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/skinwise/internal/imageinput"
	"github.com/myrjola/skinwise/internal/payload"
	"github.com/myrjola/skinwise/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allFlagsAnswered() wizard.Answers {
	a := wizard.NewAnswers()
	a.AgeCategory = "25-34"
	a.SkinType = "dry"
	for _, flag := range append(a.MaleFlags(), a.FemaleFlags()...) {
		*flag = wizard.Bool(true)
	}
	return a
}

var meta = payload.Metadata{ //nolint:gochecknoglobals // shared fixture.
	SubmittedAt:     time.Date(2024, 3, 1, 8, 30, 0, 0, time.FixedZone("EET", 2*60*60)),
	ClientSessionID: "8c0b7a6e-3c34-4a8f-9a55-0c6f0f3b8d2e",
}

func TestAssemble_genderNulling(t *testing.T) {
	tests := []struct {
		name       string
		gender     wizard.Gender
		wantEmpty  []wizard.Key
		wantTrue   []wizard.Key
		wantGender bool
	}{
		{
			name:       "male nulls female flags",
			gender:     wizard.GenderMale,
			wantEmpty:  wizard.FemaleKeys(),
			wantTrue:   wizard.MaleKeys(),
			wantGender: true,
		},
		{
			name:       "female nulls male flags",
			gender:     wizard.GenderFemale,
			wantEmpty:  wizard.MaleKeys(),
			wantTrue:   wizard.FemaleKeys(),
			wantGender: true,
		},
		{
			name:       "unset nulls all ten",
			gender:     wizard.GenderUnset,
			wantEmpty:  append(wizard.MaleKeys(), wizard.FemaleKeys()...),
			wantTrue:   nil,
			wantGender: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := allFlagsAnswered()
			answers.Gender = tt.gender
			p := payload.Assemble(answers, nil, meta)

			for _, key := range tt.wantEmpty {
				v, ok := p.Value(string(key))
				require.True(t, ok, "inactive field %s must be present", key)
				assert.Empty(t, v, key)
			}
			for _, key := range tt.wantTrue {
				v, _ := p.Value(string(key))
				assert.Equal(t, "true", v, key)
			}
			_, ok := p.Value(string(wizard.KeyGender))
			assert.Equal(t, tt.wantGender, ok)

			// The caller's answers are left untouched.
			require.NotNil(t, answers.IsPregnant)
			require.NotNil(t, answers.ShavesDaily)
		})
	}
}

func TestAssemble_coercion(t *testing.T) {
	answers := wizard.NewAnswers()
	answers.Gender = wizard.GenderFemale
	answers.SkinType = "combination"
	answers.HasAllergies = wizard.Bool(false)
	answers.Concerns = []string{"Acne", "Dark spots"}
	answers.AdditionalNotes = ""
	answers.IsPregnant = wizard.Bool(false)

	p := payload.Assemble(answers, nil, meta)
	values := p.Values()

	assert.Equal(t, "female", values["gender"])
	assert.Equal(t, "combination", values["skinType"])
	assert.Equal(t, "false", values["hasAllergies"], "booleans are stringified")
	assert.Equal(t, `["Acne","Dark spots"]`, values["concerns"], "lists are JSON encoded")
	assert.Equal(t, "false", values["isPregnant"])

	v, ok := values["usesProducts"]
	assert.True(t, ok, "null flags are sent")
	assert.Empty(t, v)

	for _, omitted := range []string{"ageCategory", "allergies", "additionalNotes", "diet", "frontImage"} {
		_, ok = values[omitted]
		assert.False(t, ok, "%s must be omitted", omitted)
	}

	assert.Equal(t, "2024-03-01T06:30:00Z", values[payload.SubmittedAtField])
	assert.Equal(t, meta.ClientSessionID, values[payload.ClientSessionIDField])
}

func TestAssemble_emptyConcernsAreAnEmptyList(t *testing.T) {
	answers := wizard.NewAnswers()
	answers.Concerns = nil
	v, ok := payload.Assemble(answers, nil, meta).Value("concerns")
	require.True(t, ok)
	require.Equal(t, "[]", v)
}

func TestAssemble_imagesSkipNil(t *testing.T) {
	front := &imageinput.Image{Filename: "front-face.jpg", ContentType: "image/jpeg", Data: []byte{1}}
	right := &imageinput.Image{Filename: "right-face.jpg", ContentType: "image/png", Data: []byte{2, 3}}
	p := payload.Assemble(wizard.NewAnswers(), []*imageinput.Image{front, nil, right}, meta)
	require.Len(t, p.Images, 2)
	require.Equal(t, "right-face.jpg", p.Images[1].Filename)
}

func TestNewMetadata(t *testing.T) {
	now := time.Now()
	a := payload.NewMetadata(now)
	b := payload.NewMetadata(now)
	require.Equal(t, now, a.SubmittedAt)
	require.NotEqual(t, a.ClientSessionID, b.ClientSessionID)
	_, err := uuid.Parse(a.ClientSessionID)
	require.NoError(t, err)
}

func TestPayload_Encode(t *testing.T) {
	answers := wizard.NewAnswers()
	answers.Gender = wizard.GenderMale
	images := []*imageinput.Image{
		{Filename: "front-face.jpg", ContentType: "image/jpeg", Data: []byte("front")},
		{Filename: "left-face.jpg", ContentType: "image/jpeg", Data: []byte("left")},
		{Filename: "right-face.jpg", ContentType: "image/png", Data: []byte("right")},
	}
	p := payload.Assemble(answers, images, meta)

	body, contentType, err := p.Encode()
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.Equal(t, []string{"male"}, form.Value["gender"])
	require.Len(t, form.File[payload.ImagesField], 3)
	header := form.File[payload.ImagesField][2]
	require.Equal(t, "right-face.jpg", header.Filename)
	require.Equal(t, "image/png", header.Header.Get("Content-Type"))
	f, err := header.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, []byte("right"), data)
}
