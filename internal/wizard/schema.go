package wizard

import (
	"github.com/myrjola/skinwise/internal/imageinput"
)

// Key names an answer. Keys double as JSON property and multipart field names.
type Key string

const (
	KeyGender      Key = "gender"
	KeyAgeCategory Key = "ageCategory"
	KeySkinType    Key = "skinType"

	KeyFrontImage Key = "frontImage"
	KeyLeftImage  Key = "leftImage"
	KeyRightImage Key = "rightImage"

	KeyHasAllergies    Key = "hasAllergies"
	KeyAllergies       Key = "allergies"
	KeyUsesProducts    Key = "usesProducts"
	KeyCurrentProducts Key = "currentProducts"
	KeyConcerns        Key = "concerns"
	KeyOtherConcern    Key = "otherConcern"
	KeyAdditionalNotes Key = "additionalNotes"

	KeyShavesDaily     Key = "shavesDaily"
	KeyRazorIrritation Key = "razorIrritation"
	KeyHasFacialHair   Key = "hasFacialHair"
	KeyUsesAftershave  Key = "usesAftershave"

	KeyIsPregnant        Key = "isPregnant"
	KeyIsBreastfeeding   Key = "isBreastfeeding"
	KeyWearsMakeup       Key = "wearsMakeup"
	KeyHormonalBreakouts Key = "hormonalBreakouts"
	KeyUsesBirthControl  Key = "usesBirthControl"

	KeyWaterIntake       Key = "waterIntake"
	KeySleepHours        Key = "sleepHours"
	KeyStressLevel       Key = "stressLevel"
	KeyExerciseFrequency Key = "exerciseFrequency"
	KeyDiet              Key = "diet"
	KeySubstances        Key = "substances"
	KeyMedications       Key = "medications"
)

// Kind is the value shape a key accepts.
type Kind int

const (
	KindText Kind = iota
	KindChoice
	KindFlag
	KindList
	KindGender
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindChoice:
		return "choice"
	case KindFlag:
		return "flag"
	case KindList:
		return "list"
	case KindGender:
		return "gender"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// Field describes one answer of the fixed schema.
type Field struct {
	Key     Key
	Kind    Kind
	Step    Step
	Options []Option

	text  func(*Answers) *string
	flag  func(*Answers) **bool
	image imageinput.Position
}

func textField(key Key, step Step, text func(*Answers) *string) Field {
	return Field{Key: key, Kind: KindText, Step: step, Options: nil, text: text, flag: nil, image: ""}
}

func choiceField(key Key, step Step, options []Option, text func(*Answers) *string) Field {
	return Field{Key: key, Kind: KindChoice, Step: step, Options: options, text: text, flag: nil, image: ""}
}

func flagField(key Key, step Step, flag func(*Answers) **bool) Field {
	return Field{Key: key, Kind: KindFlag, Step: step, Options: nil, text: nil, flag: flag, image: ""}
}

func imageField(key Key, position imageinput.Position) Field {
	return Field{Key: key, Kind: KindImage, Step: StepImageUpload, Options: nil, text: nil, flag: nil, image: position}
}

// fields lists the schema in canonical order.
//
//nolint:gochecknoglobals // fixed schema.
var fields = []Field{
	{Key: KeyGender, Kind: KindGender, Step: StepBasicInfo, Options: GenderOptions, text: nil, flag: nil, image: ""},
	choiceField(KeyAgeCategory, StepBasicInfo, AgeCategoryOptions, func(a *Answers) *string { return &a.AgeCategory }),
	choiceField(KeySkinType, StepBasicInfo, SkinTypeOptions, func(a *Answers) *string { return &a.SkinType }),

	imageField(KeyFrontImage, imageinput.Front),
	imageField(KeyLeftImage, imageinput.Left),
	imageField(KeyRightImage, imageinput.Right),

	flagField(KeyHasAllergies, StepSkincareHistory, func(a *Answers) **bool { return &a.HasAllergies }),
	textField(KeyAllergies, StepSkincareHistory, func(a *Answers) *string { return &a.Allergies }),
	flagField(KeyUsesProducts, StepSkincareHistory, func(a *Answers) **bool { return &a.UsesProducts }),
	textField(KeyCurrentProducts, StepSkincareHistory, func(a *Answers) *string { return &a.CurrentProducts }),
	{Key: KeyConcerns, Kind: KindList, Step: StepSkincareHistory, Options: nil, text: nil, flag: nil, image: ""},
	textField(KeyOtherConcern, StepSkincareHistory, func(a *Answers) *string { return &a.OtherConcern }),
	textField(KeyAdditionalNotes, StepSkincareHistory, func(a *Answers) *string { return &a.AdditionalNotes }),

	flagField(KeyShavesDaily, StepSpecificQuestions, func(a *Answers) **bool { return &a.ShavesDaily }),
	flagField(KeyRazorIrritation, StepSpecificQuestions, func(a *Answers) **bool { return &a.RazorIrritation }),
	flagField(KeyHasFacialHair, StepSpecificQuestions, func(a *Answers) **bool { return &a.HasFacialHair }),
	flagField(KeyUsesAftershave, StepSpecificQuestions, func(a *Answers) **bool { return &a.UsesAftershave }),

	flagField(KeyIsPregnant, StepSpecificQuestions, func(a *Answers) **bool { return &a.IsPregnant }),
	flagField(KeyIsBreastfeeding, StepSpecificQuestions, func(a *Answers) **bool { return &a.IsBreastfeeding }),
	flagField(KeyWearsMakeup, StepSpecificQuestions, func(a *Answers) **bool { return &a.WearsMakeup }),
	flagField(KeyHormonalBreakouts, StepSpecificQuestions, func(a *Answers) **bool { return &a.HormonalBreakouts }),
	flagField(KeyUsesBirthControl, StepSpecificQuestions, func(a *Answers) **bool { return &a.UsesBirthControl }),

	choiceField(KeyWaterIntake, StepLifestyle, WaterIntakeOptions, func(a *Answers) *string { return &a.WaterIntake }),
	choiceField(KeySleepHours, StepLifestyle, SleepHoursOptions, func(a *Answers) *string { return &a.SleepHours }),
	choiceField(KeyStressLevel, StepLifestyle, StressLevelOptions, func(a *Answers) *string { return &a.StressLevel }),
	choiceField(KeyExerciseFrequency, StepLifestyle, ExerciseFrequencyOptions,
		func(a *Answers) *string { return &a.ExerciseFrequency }),
	choiceField(KeyDiet, StepLifestyle, DietOptions, func(a *Answers) *string { return &a.Diet }),
	textField(KeySubstances, StepLifestyle, func(a *Answers) *string { return &a.Substances }),
	textField(KeyMedications, StepLifestyle, func(a *Answers) *string { return &a.Medications }),
}

//nolint:gochecknoglobals // index over fields.
var fieldsByKey = func() map[Key]Field {
	m := make(map[Key]Field, len(fields))
	for _, f := range fields {
		m[f.Key] = f
	}
	return m
}()

//nolint:gochecknoglobals // fixed key sets.
var (
	maleKeys   = []Key{KeyShavesDaily, KeyRazorIrritation, KeyHasFacialHair, KeyUsesAftershave}
	femaleKeys = []Key{KeyIsPregnant, KeyIsBreastfeeding, KeyWearsMakeup, KeyHormonalBreakouts, KeyUsesBirthControl}
)

// Fields returns the schema in canonical order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Lookup returns the schema entry of key.
func Lookup(key Key) (Field, bool) {
	f, ok := fieldsByKey[key]
	return f, ok
}

// MaleKeys lists the flags that only apply to men.
func MaleKeys() []Key { return append([]Key(nil), maleKeys...) }

// FemaleKeys lists the flags that only apply to women.
func FemaleKeys() []Key { return append([]Key(nil), femaleKeys...) }

// Value returns the answer stored under key as string, *bool, []string or imageinput.Slot.
func (a Answers) Value(key Key) (any, bool) {
	f, ok := fieldsByKey[key]
	if !ok {
		return nil, false
	}
	switch f.Kind {
	case KindText, KindChoice:
		return *f.text(&a), true
	case KindFlag:
		return *f.flag(&a), true
	case KindList:
		return a.Concerns, true
	case KindGender:
		return string(a.Gender), true
	case KindImage:
		return *a.Slot(f.image), true
	}
	return nil, false
}
