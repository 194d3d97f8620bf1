// Package wizard holds the questionnaire state machine shared by the terminal and web front-ends.
package wizard

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/myrjola/skinwise/internal/errors"
)

var ErrInvalidState = errors.NewSentinel("invalid wizard state")

// Machine owns the current step and the accumulated answers.
//
// Every method is safe for concurrent use and mutations are all-or-nothing.
type Machine struct {
	mu      sync.Mutex
	step    Step
	answers Answers
}

// New starts a wizard at the first step with unset answers.
func New() *Machine {
	return &Machine{mu: sync.Mutex{}, step: FirstStep, answers: NewAnswers()}
}

// State is a serialisable snapshot of a Machine.
type State struct {
	Step    Step    `json:"step"`
	Answers Answers `json:"answers"`
}

// Restore rebuilds a Machine from a snapshot.
func Restore(state State) (*Machine, error) {
	if !state.Step.Valid() {
		return nil, errors.Wrap(ErrInvalidState, "restore", slog.Int("step", int(state.Step)))
	}
	answers := state.Answers.Clone()
	answers.enforceCoupling()
	return &Machine{mu: sync.Mutex{}, step: state.Step, answers: answers}, nil
}

// State snapshots the machine.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Step: m.step, Answers: m.answers.Clone()}
}

// Step returns the current step.
func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Answers returns a copy of the accumulated answers.
func (m *Machine) Answers() Answers {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answers.Clone()
}

// CanAdvance reports whether the current step is complete.
func (m *Machine) CanAdvance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step != FinalStep && CanAdvance(m.step, m.answers)
}

// IsFinal reports whether the wizard reached the review step.
func (m *Machine) IsFinal() bool {
	return m.Step() == FinalStep
}

// Advance moves to the next step when the current one is complete. It reports whether the step changed.
func (m *Machine) Advance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step == FinalStep || !CanAdvance(m.step, m.answers) {
		return false
	}
	m.step++
	return true
}

// Retreat moves to the previous step. It reports whether the step changed.
func (m *Machine) Retreat() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step <= FirstStep {
		return false
	}
	m.step--
	return true
}

// Apply shallow-merges patches into the answers at any step.
//
// All patches are validated first. If any is invalid nothing is applied.
func (m *Machine) Apply(patches ...Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(patches)
}

func (m *Machine) applyLocked(patches []Patch) error {
	var errs []error
	for _, p := range patches {
		if err := p.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	next := m.answers.Clone()
	for _, p := range patches {
		p.apply(&next)
	}
	next.enforceCoupling()
	m.answers = next
	return nil
}

// ToggleConcern adds tag to the concerns or removes it when already selected.
func (m *Machine) ToggleConcern(tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	concerns := slices.Clone(m.answers.Concerns)
	if i := slices.Index(concerns, tag); i >= 0 {
		concerns = slices.Delete(concerns, i, i+1)
	} else {
		concerns = append(concerns, tag)
	}
	return m.applyLocked([]Patch{SetConcerns(concerns)})
}

// Reset returns to the first step with unset answers.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step = FirstStep
	m.answers = NewAnswers()
}
