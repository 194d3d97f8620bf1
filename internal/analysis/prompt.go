package analysis

import (
	"strings"
	"text/template"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/routine"
	"github.com/myrjola/skinwise/internal/wizard"
)

type promptAnswer struct {
	Key   string
	Value string
}

type promptData struct {
	Answers            []promptAnswer
	ImageCount         int
	MaxProductsPerStep int
}

//nolint:gochecknoglobals // parsed once.
var promptTemplate = template.Must(template.New("prompt").Parse(
	`You are an experienced dermatologist and skincare consultant.
Study the {{.ImageCount}} attached face photos (front, left side, right side) together with the questionnaire answers
and write a personalised skincare routine.

Questionnaire answers:
{{range .Answers}}- {{.Key}}: {{.Value}}
{{else}}- none provided
{{end}}
Reply with a single JSON object and nothing else. Use these keys:
- "analysis": a short description of the visible skin condition.
- "morningRoutine" and "nightRoutine": arrays of steps. Each step has "title", "description" and "products".
- "products": every recommended product. Each product has "name" (including the brand), "usage",
  "ingredients" (array of key ingredients) and "link".
- "lifestyle": an object with "do", "dont" and "tips" string arrays.
Recommend at most {{.MaxProductsPerStep}} products per step.
`))

// buildPrompt renders the answers in questionnaire order. Empty answers and submission metadata are left out.
func buildPrompt(fields map[string]string, imageCount int) (string, error) {
	data := promptData{ImageCount: imageCount, MaxProductsPerStep: routine.MaxProductsPerStep, Answers: nil}
	for _, f := range wizard.Fields() {
		if f.Kind == wizard.KindImage {
			continue
		}
		value := strings.TrimSpace(fields[string(f.Key)])
		if value == "" || value == "[]" {
			continue
		}
		data.Answers = append(data.Answers, promptAnswer{Key: string(f.Key), Value: value})
	}

	var b strings.Builder
	if err := promptTemplate.Execute(&b, data); err != nil {
		return "", errors.Wrap(err, "execute prompt template")
	}
	return b.String(), nil
}
