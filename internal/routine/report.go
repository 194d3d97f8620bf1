// Package routine maps loosely structured AI output onto the strict routine report shown to users.
package routine

// MaxProductsPerStep bounds the product options shown for a routine step.
const MaxProductsPerStep = 2

// Report is the display-ready skincare routine.
type Report struct {
	Analysis       string    `json:"analysis,omitempty"`
	MorningRoutine []Step    `json:"morningRoutine"`
	NightRoutine   []Step    `json:"nightRoutine"`
	Lifestyle      Lifestyle `json:"lifestyle"`
	Products       []Product `json:"products"`
}

// Step is a single routine step with at most MaxProductsPerStep product options.
type Step struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Products    []Product `json:"products"`
}

// Product is a product option with a resolved local image.
type Product struct {
	Name        string   `json:"name"`
	Usage       string   `json:"usage"`
	Ingredients []string `json:"ingredients"`
	Link        string   `json:"link"`
	Image       string   `json:"image"`
}

// Lifestyle lists general guidance. The lists are never nil.
type Lifestyle struct {
	Do   []string `json:"do"`
	Dont []string `json:"dont"`
	Tips []string `json:"tips"`
}

// Default is the minimal report rendered when the AI output is unusable.
func Default() Report {
	return Report{
		Analysis:       "",
		MorningRoutine: []Step{},
		NightRoutine:   []Step{},
		Lifestyle:      Lifestyle{Do: []string{}, Dont: []string{}, Tips: []string{}},
		Products:       []Product{},
	}
}

// IsEmpty reports whether the report carries no guidance at all.
func (r Report) IsEmpty() bool {
	return r.Analysis == "" && len(r.MorningRoutine) == 0 && len(r.NightRoutine) == 0 &&
		len(r.Lifestyle.Do) == 0 && len(r.Lifestyle.Dont) == 0 && len(r.Lifestyle.Tips) == 0 && len(r.Products) == 0
}
