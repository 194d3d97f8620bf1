package wizard

// Option is a selectable answer with a human-readable label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

//nolint:gochecknoglobals // fixed answer catalogues.
var (
	GenderOptions = []Option{
		{Value: string(GenderMale), Label: "Male"},
		{Value: string(GenderFemale), Label: "Female"},
	}
	AgeCategoryOptions = []Option{
		{Value: "under-18", Label: "Under 18"},
		{Value: "18-24", Label: "18-24"},
		{Value: "25-34", Label: "25-34"},
		{Value: "35-44", Label: "35-44"},
		{Value: "45-plus", Label: "45+"},
	}
	SkinTypeOptions = []Option{
		{Value: "dry", Label: "Dry"},
		{Value: "oily", Label: "Oily"},
		{Value: "combination", Label: "Combination"},
		{Value: "normal", Label: "Normal"},
		{Value: "sensitive", Label: "Sensitive"},
	}
	WaterIntakeOptions = []Option{
		{Value: "less-than-1l", Label: "Less than 1 litre"},
		{Value: "1-2l", Label: "1-2 litres"},
		{Value: "more-than-2l", Label: "More than 2 litres"},
	}
	SleepHoursOptions = []Option{
		{Value: "less-than-5", Label: "Less than 5 hours"},
		{Value: "5-7", Label: "5-7 hours"},
		{Value: "7-9", Label: "7-9 hours"},
		{Value: "more-than-9", Label: "More than 9 hours"},
	}
	StressLevelOptions = []Option{
		{Value: "low", Label: "Low"},
		{Value: "moderate", Label: "Moderate"},
		{Value: "high", Label: "High"},
	}
	ExerciseFrequencyOptions = []Option{
		{Value: "never", Label: "Never"},
		{Value: "1-2-weekly", Label: "1-2 times a week"},
		{Value: "3-5-weekly", Label: "3-5 times a week"},
		{Value: "daily", Label: "Daily"},
	}
	DietOptions = []Option{
		{Value: "balanced", Label: "Balanced"},
		{Value: "high-sugar", Label: "High in sugar"},
		{Value: "high-dairy", Label: "High in dairy"},
		{Value: "vegetarian", Label: "Vegetarian or vegan"},
		{Value: "processed", Label: "Mostly processed food"},
	}
	// ConcernSuggestions are offered by front-ends. Concerns are an open set, so other tags are accepted too.
	ConcernSuggestions = []string{
		"Acne", "Wrinkles", "Dark spots", "Redness", "Dryness", "Oiliness", "Large pores", "Dark circles", ConcernOther,
	}
)

func hasOption(options []Option, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}
