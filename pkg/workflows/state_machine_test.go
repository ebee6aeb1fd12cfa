package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachine(t *testing.T) {
	sm := NewStateMachine(map[string][]string{
		"pending":   {"confirmed", "failed"},
		"confirmed": {},
		"failed":    {},
	})

	assert.True(t, sm.CanTransition("pending", "confirmed"))
	assert.True(t, sm.CanTransition("pending", "failed"))
	assert.False(t, sm.CanTransition("confirmed", "pending"))
	assert.False(t, sm.CanTransition("unknown", "pending"))

	assert.NoError(t, sm.Transition("pending", "failed"))
	assert.ErrorIs(t, sm.Transition("failed", "confirmed"), ErrInvalidTransition)

	assert.ElementsMatch(t, []string{"confirmed", "failed"}, sm.GetAllowedTransitions("pending"))
	assert.Empty(t, sm.GetAllowedTransitions("unknown"))

	assert.True(t, sm.IsTerminal("confirmed"))
	assert.False(t, sm.IsTerminal("pending"))
	assert.False(t, sm.IsTerminal("unknown"))
}

func TestStateMachineCopiesTable(t *testing.T) {
	table := map[string][]string{"a": {"b"}}
	sm := NewStateMachine(table)
	table["a"][0] = "c"

	assert.True(t, sm.CanTransition("a", "b"))

	got := sm.GetAllowedTransitions("a")
	got[0] = "z"
	assert.True(t, sm.CanTransition("a", "b"))
}
