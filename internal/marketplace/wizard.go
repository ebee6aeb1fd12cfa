package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/workflows"
)

// Wizard steps in order.
const (
	StepIntro        = "intro"
	StepProject      = "project"
	StepVerification = "verification"
	StepMinting      = "minting"
	StepPricing      = "pricing"
	StepReview       = "review"
)

var wizardSteps = []string{StepIntro, StepProject, StepVerification, StepMinting, StepPricing, StepReview}

var (
	ErrStepIncomplete = errors.New("Please complete the required fields before continuing")
	ErrNotAtReview    = errors.New("Review the listing before submitting")
	ErrUnknownPreset  = errors.New("unknown preset")
)

func newWizardMachine() *workflows.StateMachine {
	transitions := make(map[string][]string, len(wizardSteps))
	for i, step := range wizardSteps {
		var next []string
		if i+1 < len(wizardSteps) {
			next = append(next, wizardSteps[i+1])
		}
		if i > 0 {
			next = append(next, wizardSteps[i-1])
		}
		transitions[step] = next
	}
	return workflows.NewStateMachine(transitions)
}

var wizardMachine = newWizardMachine()

// Wizard is the create-and-list form, one step at a time.
type Wizard struct {
	mu   sync.Mutex
	step string
	data MintingData
}

// WizardView is the wizard as rendered.
type WizardView struct {
	Step       string      `json:"step"`
	StepNumber int         `json:"step_number"`
	Label      string      `json:"label,omitempty"`
	Progress   float64     `json:"progress"`
	Data       MintingData `json:"data"`
	CanAdvance bool        `json:"can_advance"`
	CanSubmit  bool        `json:"can_submit"`
}

// WizardUpdate sets the fields that are present.
type WizardUpdate struct {
	ProjectName          *string `json:"project_name,omitempty"`
	ProjectDescription   *string `json:"project_description,omitempty"`
	ProjectLocation      *string `json:"project_location,omitempty"`
	VerificationStandard *string `json:"verification_standard,omitempty"`
	ProjectType          *string `json:"project_type,omitempty"`
	CreditsAmount        *uint64 `json:"credits_amount,omitempty"`
	PricePerCredit       *uint64 `json:"price_per_credit,omitempty,string"`
}

const wizardKey = "marketplace.wizard"

func newWizard() *Wizard {
	return &Wizard{step: StepIntro}
}

func wizardOf(sess *session.Session) *Wizard {
	return session.Value(sess, wizardKey, newWizard)
}

func stepIndex(step string) int {
	for i, s := range wizardSteps {
		if s == step {
			return i
		}
	}
	return 0
}

// complete reports whether the fields gated by step are filled in.
func complete(step string, d MintingData) bool {
	switch step {
	case StepProject:
		return strings.TrimSpace(d.ProjectName) != "" &&
			strings.TrimSpace(d.ProjectLocation) != "" &&
			strings.TrimSpace(d.ProjectDescription) != ""
	case StepVerification:
		return d.VerificationStandard != "" && d.ProjectType != ""
	case StepMinting:
		return d.CreditsAmount > 0
	case StepPricing:
		return d.PricePerCredit > 0
	default:
		return true
	}
}

func (w *Wizard) viewLocked() WizardView {
	idx := stepIndex(w.step)
	view := WizardView{
		Step:       w.step,
		StepNumber: idx,
		Progress:   float64(idx+1) / float64(len(wizardSteps)) * 100,
		Data:       w.data,
		CanAdvance: w.step != StepReview && complete(w.step, w.data),
		CanSubmit:  w.step == StepReview,
	}
	if idx > 0 {
		view.Label = fmt.Sprintf("Step %d of %d", idx, len(wizardSteps)-1)
	}
	return view
}

func (w *Wizard) View() WizardView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

// Update applies u to the form without moving.
func (w *Wizard) Update(u WizardUpdate) WizardView {
	w.mu.Lock()
	defer w.mu.Unlock()

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&w.data.ProjectName, u.ProjectName)
	set(&w.data.ProjectDescription, u.ProjectDescription)
	set(&w.data.ProjectLocation, u.ProjectLocation)
	set(&w.data.VerificationStandard, u.VerificationStandard)
	set(&w.data.ProjectType, u.ProjectType)
	if u.CreditsAmount != nil {
		w.data.CreditsAmount = *u.CreditsAmount
	}
	if u.PricePerCredit != nil {
		w.data.PricePerCredit = *u.PricePerCredit
	}
	return w.viewLocked()
}

// ApplyPreset fills the form from a named preset.
func (w *Wizard) ApplyPreset(name string) (WizardView, error) {
	p, ok := FindPreset(name)
	if !ok {
		return WizardView{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = p.MintingData
	return w.viewLocked(), nil
}

// Next moves forward when the current step is complete.
func (w *Wizard) Next() (WizardView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := stepIndex(w.step)
	if idx == len(wizardSteps)-1 {
		return w.viewLocked(), nil
	}
	if !complete(w.step, w.data) {
		return w.viewLocked(), ErrStepIncomplete
	}
	next := wizardSteps[idx+1]
	if err := wizardMachine.Transition(w.step, next); err != nil {
		return w.viewLocked(), err
	}
	w.step = next
	return w.viewLocked(), nil
}

// Back moves to the previous step; it stays put on the first step.
func (w *Wizard) Back() WizardView {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := stepIndex(w.step)
	if idx > 0 {
		prev := wizardSteps[idx-1]
		if wizardMachine.CanTransition(w.step, prev) {
			w.step = prev
		}
	}
	return w.viewLocked()
}

func (w *Wizard) Reset() WizardView {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = StepIntro
	w.data = MintingData{}
	return w.viewLocked()
}

func (w *Wizard) snapshot() (string, MintingData) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step, w.data
}

// Wizard returns the session's listing wizard.
func (s *Service) Wizard(sess *session.Session) *Wizard {
	return wizardOf(sess)
}

// SubmitWizard purchases the credits described by the wizard. The wizard
// must be on the review step; it is reset after a successful purchase.
func (s *Service) SubmitWizard(ctx context.Context, sess *session.Session) (*Result, error) {
	w := wizardOf(sess)
	step, data := w.snapshot()
	if step != StepReview {
		return nil, ErrNotAtReview
	}

	result, err := s.PurchaseFromTreasury(ctx, sess, data)
	if err != nil {
		return nil, err
	}
	w.Reset()
	return result, nil
}
