package workflows

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// StateMachine enforces transitions between named states.
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a state machine from a transition table. States
// that map to an empty list are terminal.
func NewStateMachine(transitions map[string][]string) *StateMachine {
	allowed := make(map[string][]string, len(transitions))
	for from, to := range transitions {
		allowed[from] = slices.Clone(to)
	}
	return &StateMachine{allowedTransitions: allowed}
}

// CanTransition checks if a transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	return slices.Contains(allowed, to)
}

// Transition returns ErrInvalidTransition unless from -> to is allowed.
func (sm *StateMachine) Transition(from, to string) error {
	if !sm.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// GetAllowedTransitions returns the allowed next states for a given state
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return slices.Clone(allowed)
}

// IsTerminal reports whether state is known and has no outgoing transitions.
func (sm *StateMachine) IsTerminal(state string) bool {
	allowed, exists := sm.allowedTransitions[state]
	return exists && len(allowed) == 0
}
