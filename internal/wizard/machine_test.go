package wizard_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/myrjola/skinwise/internal/imageinput"
	"github.com/myrjola/skinwise/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillStep(t *testing.T, m *wizard.Machine, step wizard.Step) {
	t.Helper()
	var patches []wizard.Patch
	switch step {
	case wizard.StepBasicInfo:
		patches = []wizard.Patch{
			wizard.SetGender(wizard.GenderMale),
			wizard.SetText(wizard.KeyAgeCategory, "25-34"),
			wizard.SetText(wizard.KeySkinType, "oily"),
		}
	case wizard.StepImageUpload:
		for _, position := range imageinput.Positions {
			patches = append(patches, wizard.SetImage(position, imageinput.Inline(tinyJPEG)))
		}
	case wizard.StepSpecificQuestions:
		for _, key := range wizard.MaleKeys() {
			patches = append(patches, wizard.SetFlag(key, wizard.Bool(true)))
		}
	case wizard.StepLifestyle:
		patches = []wizard.Patch{
			wizard.SetText(wizard.KeyWaterIntake, "1-2l"),
			wizard.SetText(wizard.KeySleepHours, "7-9"),
			wizard.SetText(wizard.KeyStressLevel, "low"),
			wizard.SetText(wizard.KeyExerciseFrequency, "daily"),
			wizard.SetText(wizard.KeyDiet, "balanced"),
		}
	case wizard.StepSkincareHistory, wizard.StepReview:
	}
	require.NoError(t, m.Apply(patches...))
}

func TestMachine_walkthrough(t *testing.T) {
	m := wizard.New()
	require.Equal(t, wizard.StepBasicInfo, m.Step())
	require.False(t, m.Retreat(), "cannot retreat from the first step")

	require.False(t, m.Advance(), "incomplete step blocks advance")
	require.Equal(t, wizard.StepBasicInfo, m.Step())

	for _, step := range wizard.Steps[:5] {
		require.Equal(t, step, m.Step())
		fillStep(t, m, step)
		require.True(t, m.CanAdvance())
		require.True(t, m.Advance(), "advance from %s", step)
	}

	require.True(t, m.IsFinal())
	require.False(t, m.CanAdvance())
	require.False(t, m.Advance(), "final step does not advance")

	require.True(t, m.Retreat())
	require.Equal(t, wizard.StepLifestyle, m.Step())

	// Retreat is unconditional even when answers no longer satisfy earlier gates.
	require.NoError(t, m.Apply(wizard.SetGender(wizard.GenderUnset)))
	require.True(t, m.Retreat())
	require.Equal(t, wizard.StepSpecificQuestions, m.Step())
	require.False(t, m.Advance())
}

func TestMachine_ApplyIsAtomic(t *testing.T) {
	m := wizard.New()
	require.NoError(t, m.Apply(wizard.SetText(wizard.KeyAgeCategory, "18-24")))

	err := m.Apply(
		wizard.SetText(wizard.KeyAgeCategory, "35-44"),
		wizard.SetText(wizard.KeySkinType, "scaly"),
	)
	require.ErrorIs(t, err, wizard.ErrInvalidValue)
	require.Equal(t, "18-24", m.Answers().AgeCategory, "valid patch in a failed batch must not apply")

	err = m.Apply(wizard.SetText("favouriteColour", "blue"))
	require.ErrorIs(t, err, wizard.ErrUnknownKey)

	err = m.Apply(wizard.SetText(wizard.KeyHasAllergies, "yes"))
	require.ErrorIs(t, err, wizard.ErrWrongKind)
}

func TestMachine_AnswersAreCopies(t *testing.T) {
	m := wizard.New()
	require.NoError(t, m.Apply(
		wizard.SetConcerns([]string{"Acne"}),
		wizard.SetFlag(wizard.KeyHasAllergies, wizard.Bool(true)),
	))

	answers := m.Answers()
	answers.Concerns[0] = "Wrinkles"
	*answers.HasAllergies = false

	fresh := m.Answers()
	require.Equal(t, []string{"Acne"}, fresh.Concerns)
	require.True(t, *fresh.HasAllergies)
}

func TestMachine_ToggleConcern(t *testing.T) {
	m := wizard.New()

	require.NoError(t, m.ToggleConcern("Acne"))
	require.Equal(t, []string{"Acne"}, m.Answers().Concerns)
	require.NoError(t, m.ToggleConcern("Acne"))
	require.Empty(t, m.Answers().Concerns)

	require.NoError(t, m.ToggleConcern(wizard.ConcernOther))
	require.NoError(t, m.Apply(wizard.SetText(wizard.KeyOtherConcern, "Eczema flare-ups")))
	require.Equal(t, "Eczema flare-ups", m.Answers().OtherConcern)

	require.NoError(t, m.ToggleConcern(wizard.ConcernOther))
	answers := m.Answers()
	require.Empty(t, answers.Concerns)
	require.Empty(t, answers.OtherConcern)
}

func TestMachine_couplingClearsDependentText(t *testing.T) {
	m := wizard.New()
	require.NoError(t, m.Apply(
		wizard.SetFlag(wizard.KeyHasAllergies, wizard.Bool(true)),
		wizard.SetText(wizard.KeyAllergies, "Fragrance"),
		wizard.SetFlag(wizard.KeyUsesProducts, wizard.Bool(true)),
		wizard.SetText(wizard.KeyCurrentProducts, "Retinol serum"),
	))
	require.Equal(t, "Fragrance", m.Answers().Allergies)

	require.NoError(t, m.Apply(wizard.SetFlag(wizard.KeyHasAllergies, wizard.Bool(false))))
	answers := m.Answers()
	assert.Empty(t, answers.Allergies)
	assert.Equal(t, "Retinol serum", answers.CurrentProducts)

	// Text for an unselected Other tag is never kept.
	require.NoError(t, m.Apply(wizard.SetText(wizard.KeyOtherConcern, "orphan")))
	assert.Empty(t, m.Answers().OtherConcern)
}

func TestMachine_concurrentMutations(t *testing.T) {
	m := wizard.New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_ = m.ToggleConcern("Acne")
			} else {
				_ = m.Apply(wizard.SetText(wizard.KeyAdditionalNotes, "note"))
			}
			_ = m.Answers()
		}()
	}
	wg.Wait()
	// 25 toggles of the same tag leave it selected.
	require.Equal(t, []string{"Acne"}, m.Answers().Concerns)
}

func TestMachine_StateRoundTrip(t *testing.T) {
	m := wizard.New()
	fillStep(t, m, wizard.StepBasicInfo)
	require.True(t, m.Advance())

	restored, err := wizard.Restore(m.State())
	require.NoError(t, err)
	require.Equal(t, m.Step(), restored.Step())
	require.Equal(t, m.Answers(), restored.Answers())

	_, err = wizard.Restore(wizard.State{Step: 9, Answers: wizard.NewAnswers()})
	require.ErrorIs(t, err, wizard.ErrInvalidState)
}

func TestMachine_Reset(t *testing.T) {
	m := wizard.New()
	fillStep(t, m, wizard.StepBasicInfo)
	require.True(t, m.Advance())
	m.Reset()
	require.Equal(t, wizard.StepBasicInfo, m.Step())
	require.Equal(t, wizard.NewAnswers(), m.Answers())
}

func TestParsePatches(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		check   func(t *testing.T, a wizard.Answers)
	}{
		{
			name: "mixed kinds",
			body: `{"gender":"female","ageCategory":"25-34","isPregnant":false,"concerns":["Acne"," Acne ","Redness"],
"frontImage":"` + tinyJPEG + `"}`,
			check: func(t *testing.T, a wizard.Answers) {
				t.Helper()
				assert.Equal(t, wizard.GenderFemale, a.Gender)
				assert.Equal(t, "25-34", a.AgeCategory)
				require.NotNil(t, a.IsPregnant)
				assert.False(t, *a.IsPregnant)
				assert.Equal(t, []string{"Acne", "Redness"}, a.Concerns)
				assert.Equal(t, imageinput.KindInline, a.FrontImage.Kind())
			},
		},
		{
			name: "null resets",
			body: `{"hasAllergies":null,"frontImage":null,"skinType":null}`,
			check: func(t *testing.T, a wizard.Answers) {
				t.Helper()
				assert.Nil(t, a.HasAllergies)
				assert.True(t, a.FrontImage.IsEmpty())
				assert.Empty(t, a.SkinType)
			},
		},
		{name: "unknown key", body: `{"shoeSize":"42"}`, wantErr: wizard.ErrUnknownKey},
		{name: "wrong kind", body: `{"hasAllergies":"yes"}`, wantErr: wizard.ErrWrongKind},
		{name: "unknown option", body: `{"diet":"carnivore"}`, wantErr: wizard.ErrInvalidValue},
		{name: "unknown gender", body: `{"gender":"robot"}`, wantErr: wizard.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var values map[string]json.RawMessage
			require.NoError(t, json.Unmarshal([]byte(tt.body), &values))
			patches, err := wizard.ParsePatches(values)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			m := wizard.New()
			require.NoError(t, m.Apply(wizard.SetFlag(wizard.KeyHasAllergies, wizard.Bool(true))))
			require.NoError(t, m.Apply(patches...))
			tt.check(t, m.Answers())
		})
	}
}
