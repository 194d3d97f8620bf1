package wizard

import (
	"slices"

	"github.com/myrjola/skinwise/internal/imageinput"
)

// Gender selects which set of specific questions applies.
type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ConcernOther unlocks the free-text OtherConcern answer.
const ConcernOther = "Other"

// Answers accumulates everything the user provides while moving through the wizard.
//
// Tri-state flags are nil until the user answers them.
type Answers struct {
	Gender      Gender `json:"gender"`
	AgeCategory string `json:"ageCategory"`
	SkinType    string `json:"skinType"`

	FrontImage imageinput.Slot `json:"frontImage"`
	LeftImage  imageinput.Slot `json:"leftImage"`
	RightImage imageinput.Slot `json:"rightImage"`

	HasAllergies    *bool    `json:"hasAllergies"`
	Allergies       string   `json:"allergies"`
	UsesProducts    *bool    `json:"usesProducts"`
	CurrentProducts string   `json:"currentProducts"`
	Concerns        []string `json:"concerns"`
	OtherConcern    string   `json:"otherConcern"`
	AdditionalNotes string   `json:"additionalNotes"`

	ShavesDaily     *bool `json:"shavesDaily"`
	RazorIrritation *bool `json:"razorIrritation"`
	HasFacialHair   *bool `json:"hasFacialHair"`
	UsesAftershave  *bool `json:"usesAftershave"`

	IsPregnant        *bool `json:"isPregnant"`
	IsBreastfeeding   *bool `json:"isBreastfeeding"`
	WearsMakeup       *bool `json:"wearsMakeup"`
	HormonalBreakouts *bool `json:"hormonalBreakouts"`
	UsesBirthControl  *bool `json:"usesBirthControl"`

	WaterIntake       string `json:"waterIntake"`
	SleepHours        string `json:"sleepHours"`
	StressLevel       string `json:"stressLevel"`
	ExerciseFrequency string `json:"exerciseFrequency"`
	Diet              string `json:"diet"`
	Substances        string `json:"substances"`
	Medications       string `json:"medications"`
}

// NewAnswers returns the all-unset answers the wizard starts with.
func NewAnswers() Answers {
	return Answers{Concerns: []string{}} //nolint:exhaustruct // everything else starts unset.
}

// Slot returns the image slot at position.
func (a *Answers) Slot(position imageinput.Position) *imageinput.Slot {
	switch position {
	case imageinput.Front:
		return &a.FrontImage
	case imageinput.Left:
		return &a.LeftImage
	case imageinput.Right:
		return &a.RightImage
	}
	return nil
}

// ImageSlots returns the three image slots keyed by position.
func (a Answers) ImageSlots() map[imageinput.Position]imageinput.Slot {
	return map[imageinput.Position]imageinput.Slot{
		imageinput.Front: a.FrontImage,
		imageinput.Left:  a.LeftImage,
		imageinput.Right: a.RightImage,
	}
}

// MaleFlags returns pointers to the four male-only flags.
func (a *Answers) MaleFlags() []**bool {
	return []**bool{&a.ShavesDaily, &a.RazorIrritation, &a.HasFacialHair, &a.UsesAftershave}
}

// FemaleFlags returns pointers to the five female-only flags.
func (a *Answers) FemaleFlags() []**bool {
	return []**bool{&a.IsPregnant, &a.IsBreastfeeding, &a.WearsMakeup, &a.HormonalBreakouts, &a.UsesBirthControl}
}

// HasConcern reports whether tag is among the selected concerns.
func (a Answers) HasConcern(tag string) bool {
	return slices.Contains(a.Concerns, tag)
}

// Clone returns a copy that shares no mutable state with a, except the image bytes which are never mutated.
func (a Answers) Clone() Answers {
	c := a
	c.Concerns = slices.Clone(a.Concerns)
	if c.Concerns == nil {
		c.Concerns = []string{}
	}
	for _, flag := range c.flags() {
		if *flag != nil {
			v := **flag
			*flag = &v
		}
	}
	for _, position := range imageinput.Positions {
		slot := c.Slot(position)
		if slot.File != nil {
			file := *slot.File
			slot.File = &file
		}
	}
	return c
}

func (a *Answers) flags() []**bool {
	flags := []**bool{&a.HasAllergies, &a.UsesProducts}
	flags = append(flags, a.MaleFlags()...)
	return append(flags, a.FemaleFlags()...)
}

// enforceCoupling clears free text whose controlling answer no longer unlocks it.
func (a *Answers) enforceCoupling() {
	if !a.HasConcern(ConcernOther) {
		a.OtherConcern = ""
	}
	if a.HasAllergies != nil && !*a.HasAllergies {
		a.Allergies = ""
	}
	if a.UsesProducts != nil && !*a.UsesProducts {
		a.CurrentProducts = ""
	}
}

// Bool is a helper for building tri-state flag values.
func Bool(v bool) *bool {
	return &v
}
