package main

// sampleRoutine is answered by the static provider when no response is configured. It lets the server run
// end-to-end without model credentials.
const sampleRoutine = `{
  "skinAnalysis": "Combination skin with mild dehydration on the cheeks and some congestion around the nose.",
  "morningRoutine": [
    {
      "step": "Cleanse",
      "description": "Wash with lukewarm water and a gentle cleanser.",
      "products": [
        {"name": "CeraVe Hydrating Facial Cleanser", "usage": "Massage onto damp skin for 30 seconds.", "keyIngredients": ["Ceramides", "Hyaluronic acid"]},
        {"name": "La Roche-Posay Toleriane Hydrating Gentle Cleanser", "usage": "Rinse thoroughly.", "keyIngredients": ["Niacinamide"]}
      ]
    },
    {
      "step": "Protect",
      "description": "Apply a broad spectrum sunscreen as the last step.",
      "products": [
        {"name": "Bioderma Photoderm SPF 50+", "usage": "Two finger lengths for face and neck.", "keyIngredients": ["UV filters"]}
      ]
    }
  ],
  "nightRoutine": [
    {
      "step": "Treat",
      "description": "Use a niacinamide serum to balance oil production.",
      "products": [
        {"name": "The Ordinary Niacinamide 10% + Zinc 1%", "usage": "A few drops before moisturizer.", "keyIngredients": ["Niacinamide", "Zinc PCA"]}
      ]
    },
    {
      "step": "Moisturize",
      "description": "Seal in hydration with a light moisturizer.",
      "products": [
        {"name": "Neutrogena Hydro Boost Water Gel", "usage": "Apply to the whole face.", "keyIngredients": ["Hyaluronic acid"]}
      ]
    }
  ],
  "lifestyle": {
    "dos": ["Drink water throughout the day", "Change pillowcases weekly"],
    "donts": ["Do not pick at blemishes"],
    "tips": ["Keep a consistent sleep schedule"]
  }
}`
