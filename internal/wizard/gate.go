package wizard

// Step is a 1-based position in the wizard.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepImageUpload
	StepSkincareHistory
	StepSpecificQuestions
	StepLifestyle
	StepReview
)

const (
	FirstStep = StepBasicInfo
	FinalStep = StepReview
)

// Steps lists the wizard steps in order.
var Steps = []Step{ //nolint:gochecknoglobals // fixed enumeration.
	StepBasicInfo, StepImageUpload, StepSkincareHistory, StepSpecificQuestions, StepLifestyle, StepReview,
}

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "Basic Info"
	case StepImageUpload:
		return "Image Upload"
	case StepSkincareHistory:
		return "Skincare History"
	case StepSpecificQuestions:
		return "Specific Questions"
	case StepLifestyle:
		return "Lifestyle & Habits"
	case StepReview:
		return "Review"
	}
	return "Unknown"
}

// Valid reports whether s is one of the wizard steps.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= FinalStep
}

// CanAdvance reports whether answers complete step.
//
// It only reads answers. Gender dependent steps fail closed while the gender is unset and unknown steps never pass.
func CanAdvance(step Step, answers Answers) bool {
	switch step {
	case StepBasicInfo:
		return answers.Gender != GenderUnset && answers.AgeCategory != "" && answers.SkinType != ""
	case StepImageUpload:
		return !answers.FrontImage.IsEmpty() && !answers.LeftImage.IsEmpty() && !answers.RightImage.IsEmpty()
	case StepSkincareHistory:
		return true
	case StepSpecificQuestions:
		switch answers.Gender {
		case GenderMale:
			return allAnswered(answers.MaleFlags())
		case GenderFemale:
			return allAnswered(answers.FemaleFlags())
		case GenderUnset:
			return false
		}
		return false
	case StepLifestyle:
		return answers.WaterIntake != "" && answers.SleepHours != "" && answers.StressLevel != "" &&
			answers.ExerciseFrequency != "" && answers.Diet != ""
	case StepReview:
		return true
	}
	return false
}

func allAnswered(flags []**bool) bool {
	for _, flag := range flags {
		if *flag == nil {
			return false
		}
	}
	return true
}
