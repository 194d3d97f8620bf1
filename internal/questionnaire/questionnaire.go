// Package questionnaire walks a user through the wizard in a terminal.
package questionnaire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/imageinput"
	"github.com/myrjola/skinwise/internal/wizard"
)

var ErrAborted = errors.NewSentinel("questionnaire aborted")

var errBack = errors.NewSentinel("back")

//nolint:gochecknoglobals // fixed question catalogue.
var questions = map[wizard.Key]string{
	wizard.KeyGender:            "Gender",
	wizard.KeyAgeCategory:       "Age",
	wizard.KeySkinType:          "Skin type",
	wizard.KeyFrontImage:        "Path to a photo of your face from the front",
	wizard.KeyLeftImage:         "Path to a photo of the left side of your face",
	wizard.KeyRightImage:        "Path to a photo of the right side of your face",
	wizard.KeyHasAllergies:      "Do you have any skin allergies?",
	wizard.KeyAllergies:         "Which allergies?",
	wizard.KeyUsesProducts:      "Do you currently use skincare products?",
	wizard.KeyCurrentProducts:   "Which products?",
	wizard.KeyConcerns:          "Skin concerns (comma separated numbers or your own words)",
	wizard.KeyOtherConcern:      "Describe your other concern",
	wizard.KeyAdditionalNotes:   "Anything else we should know? (optional)",
	wizard.KeyShavesDaily:       "Do you shave daily?",
	wizard.KeyRazorIrritation:   "Do you get irritation from shaving?",
	wizard.KeyHasFacialHair:     "Do you have facial hair?",
	wizard.KeyUsesAftershave:    "Do you use aftershave?",
	wizard.KeyIsPregnant:        "Are you pregnant?",
	wizard.KeyIsBreastfeeding:   "Are you breastfeeding?",
	wizard.KeyWearsMakeup:       "Do you wear makeup regularly?",
	wizard.KeyHormonalBreakouts: "Do you get hormonal breakouts?",
	wizard.KeyUsesBirthControl:  "Do you use hormonal birth control?",
	wizard.KeyWaterIntake:       "Daily water intake",
	wizard.KeySleepHours:        "Sleep per night",
	wizard.KeyStressLevel:       "Stress level",
	wizard.KeyExerciseFrequency: "Exercise",
	wizard.KeyDiet:              "Diet",
	wizard.KeySubstances:        "Do you smoke or drink alcohol? (optional)",
	wizard.KeyMedications:       "Medications you take (optional)",
}

type session struct {
	ctx      context.Context
	scanner  *bufio.Scanner
	out      io.Writer
	machine  *wizard.Machine
	readFile func(string) ([]byte, error)
}

// Run asks the questions of every step and returns nil once the user confirms the review.
//
// Typing "back" returns to the previous step and "quit" aborts with ErrAborted, as does the end of input. Empty input
// keeps the current answer.
func Run(ctx context.Context, in io.Reader, out io.Writer, machine *wizard.Machine) error {
	s := &session{
		ctx:      ctx,
		scanner:  bufio.NewScanner(in),
		out:      out,
		machine:  machine,
		readFile: os.ReadFile,
	}
	return s.run()
}

func (s *session) run() error {
	for {
		if err := s.ctx.Err(); err != nil {
			return errors.Wrap(err, "questionnaire")
		}
		step := s.machine.Step()
		s.printf("\nStep %d of %d: %s\n", step, wizard.FinalStep, step)

		if step == wizard.FinalStep {
			err := s.review()
			if errors.Is(err, errBack) {
				s.machine.Retreat()
				continue
			}
			return err
		}

		err := s.askStep(step)
		if errors.Is(err, errBack) {
			if !s.machine.Retreat() {
				s.printf("Already at the first step.\n")
			}
			continue
		}
		if err != nil {
			return err
		}
		if !s.machine.Advance() {
			s.printf("Please answer the required questions before continuing.\n")
		}
	}
}

// applies reports whether f is asked given the current answers.
func applies(f wizard.Field, a wizard.Answers) bool {
	switch f.Key {
	case wizard.KeyAllergies:
		return a.HasAllergies != nil && *a.HasAllergies
	case wizard.KeyCurrentProducts:
		return a.UsesProducts != nil && *a.UsesProducts
	case wizard.KeyOtherConcern:
		return a.HasConcern(wizard.ConcernOther)
	}
	if slices.Contains(wizard.MaleKeys(), f.Key) {
		return a.Gender == wizard.GenderMale
	}
	if slices.Contains(wizard.FemaleKeys(), f.Key) {
		return a.Gender == wizard.GenderFemale
	}
	return true
}

func (s *session) askStep(step wizard.Step) error {
	for _, f := range wizard.Fields() {
		if f.Step != step || !applies(f, s.machine.Answers()) {
			continue
		}
		if err := s.ask(f); err != nil {
			return err
		}
	}
	return nil
}

// ask repeats the question until the answer is accepted by the machine.
func (s *session) ask(f wizard.Field) error {
	for {
		current, _ := s.machine.Answers().Value(f.Key)
		s.printf("%s%s\n", questions[f.Key], describe(current))
		s.printOptions(f)
		s.printf("> ")

		line, err := s.readLine()
		if err != nil {
			return err
		}
		if line == "" {
			if isRequired(f) && isUnset(current) {
				s.printf("An answer is required.\n")
				continue
			}
			return nil
		}

		var patch wizard.Patch
		if patch, err = s.parse(f, line); err == nil {
			err = s.machine.Apply(patch)
		}
		if err != nil {
			s.printf("Invalid answer: %s\n", err)
			continue
		}
		return nil
	}
}

func (s *session) parse(f wizard.Field, line string) (wizard.Patch, error) {
	switch f.Kind {
	case wizard.KindGender:
		value, err := pickOption(f.Options, line)
		return wizard.SetGender(wizard.Gender(value)), err
	case wizard.KindChoice:
		value, err := pickOption(f.Options, line)
		return wizard.SetText(f.Key, value), err
	case wizard.KindFlag:
		flag, err := parseYesNo(line)
		return wizard.SetFlag(f.Key, flag), err
	case wizard.KindList:
		return wizard.SetConcerns(parseConcerns(line)), nil
	case wizard.KindImage:
		data, err := s.readFile(line)
		if err != nil {
			return wizard.Patch{}, errors.Wrap(err, "read photo")
		}
		position, _ := imageinput.ParsePosition(strings.TrimSuffix(string(f.Key), "Image"))
		return wizard.SetImage(position, imageinput.FromFile(filepath.Base(line), "", data)), nil
	case wizard.KindText:
	}
	return wizard.SetText(f.Key, line), nil
}

func (s *session) review() error {
	answers := s.machine.Answers()
	s.printf("Please review your answers:\n")
	for _, f := range wizard.Fields() {
		if !applies(f, answers) {
			continue
		}
		value, _ := answers.Value(f.Key)
		if isUnset(value) {
			continue
		}
		s.printf("  %s: %s\n", f.Key, format(value))
	}
	for {
		s.printf("Submit for analysis? [y/n] > ")
		line, err := s.readLine()
		if err != nil {
			return err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return nil
		case "n", "no":
			return ErrAborted
		}
	}
}

func (s *session) readLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", errors.Wrap(err, "read input")
		}
		return "", ErrAborted
	}
	line := strings.TrimSpace(s.scanner.Text())
	switch strings.ToLower(line) {
	case "back":
		return "", errBack
	case "quit", "exit":
		return "", ErrAborted
	}
	return line, nil
}

func (s *session) printOptions(f wizard.Field) {
	switch f.Kind {
	case wizard.KindGender, wizard.KindChoice:
		for i, o := range f.Options {
			s.printf("  %d) %s\n", i+1, o.Label)
		}
	case wizard.KindList:
		for i, c := range wizard.ConcernSuggestions {
			s.printf("  %d) %s\n", i+1, c)
		}
	case wizard.KindFlag:
		s.printf("  y/n\n")
	case wizard.KindText, wizard.KindImage:
	}
}

func (s *session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func isRequired(f wizard.Field) bool {
	switch f.Kind {
	case wizard.KindGender, wizard.KindChoice, wizard.KindFlag, wizard.KindImage:
		return true
	case wizard.KindText, wizard.KindList:
	}
	return false
}

func isUnset(value any) bool {
	switch v := value.(type) {
	case string:
		return v == ""
	case *bool:
		return v == nil
	case []string:
		return len(v) == 0
	case imageinput.Slot:
		return v.IsEmpty()
	}
	return value == nil
}

func format(value any) string {
	switch v := value.(type) {
	case *bool:
		if *v {
			return "yes"
		}
		return "no"
	case []string:
		return strings.Join(v, ", ")
	case imageinput.Slot:
		return "provided"
	}
	return fmt.Sprint(value)
}

func describe(current any) string {
	if isUnset(current) {
		return ""
	}
	return " [" + format(current) + "]"
}

func pickOption(options []wizard.Option, line string) (string, error) {
	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(options) {
			return "", errors.New("no such option")
		}
		return options[n-1].Value, nil
	}
	for _, o := range options {
		if strings.EqualFold(o.Value, line) || strings.EqualFold(o.Label, line) {
			return o.Value, nil
		}
	}
	return "", errors.New("no such option")
}

func parseYesNo(line string) (*bool, error) {
	switch strings.ToLower(line) {
	case "y", "yes", "true":
		return wizard.Bool(true), nil
	case "n", "no", "false":
		return wizard.Bool(false), nil
	}
	return nil, errors.New("answer y or n")
}

func parseConcerns(line string) []string {
	var tags []string
	for _, item := range strings.Split(line, ",") {
		item = strings.TrimSpace(item)
		if n, err := strconv.Atoi(item); err == nil && n >= 1 && n <= len(wizard.ConcernSuggestions) {
			item = wizard.ConcernSuggestions[n-1]
		}
		tags = append(tags, item)
	}
	return tags
}
