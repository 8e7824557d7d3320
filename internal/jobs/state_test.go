package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kitodo/kscript/internal/constants"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to constants.JobState
		want     bool
	}{
		{constants.JobStateStartable, constants.JobStateRunning, true},
		{constants.JobStateStartable, constants.JobStateStopped, true},
		{constants.JobStateStartable, constants.JobStateFinished, false},
		{constants.JobStateRunning, constants.JobStateFinished, true},
		{constants.JobStateRunning, constants.JobStateStopped, true},
		{constants.JobStateRunning, constants.JobStateFailed, true},
		{constants.JobStateRunning, constants.JobStateStartable, false},
		{constants.JobStateFinished, constants.JobStateStopped, false},
		{constants.JobStateStopped, constants.JobStateRunning, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(constants.JobStateStartable))
	assert.False(t, IsTerminal(constants.JobStateRunning))
	assert.True(t, IsTerminal(constants.JobStateFinished))
	assert.True(t, IsTerminal(constants.JobStateStopped))
	assert.True(t, IsTerminal(constants.JobStateFailed))
}
