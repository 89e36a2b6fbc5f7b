package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	input := AssetHandle{ID: "in_001", JobID: "ignored", Kind: MediaKindVoice}
	job := NewJob("chat:42", input, Operation{Kind: OpVoiceToWAV}, 2*time.Minute)

	require.NotEmpty(t, job.ID)
	assert.Equal(t, "chat:42", job.UserRef)
	assert.Equal(t, JobStatePending, job.State)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), job.Deadline, time.Second)
	assert.False(t, job.Expired())
}

func TestJobState_Terminal(t *testing.T) {
	terminal := []JobState{JobStateSucceeded, JobStateFailed, JobStateTimedOut, JobStateRejected}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "state %s", s)
	}

	active := []JobState{JobStatePending, JobStateAdmitted, JobStateRunning}
	for _, s := range active {
		assert.False(t, s.Terminal(), "state %s", s)
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to JobState
		want     bool
	}{
		{JobStatePending, JobStateAdmitted, true},
		{JobStatePending, JobStateRejected, true},
		{JobStatePending, JobStateRunning, false},
		{JobStatePending, JobStateSucceeded, false},
		{JobStateAdmitted, JobStateRunning, true},
		{JobStateAdmitted, JobStateTimedOut, true},
		{JobStateAdmitted, JobStateRejected, false},
		{JobStateRunning, JobStateSucceeded, true},
		{JobStateRunning, JobStateFailed, true},
		{JobStateRunning, JobStateTimedOut, true},
		{JobStateRunning, JobStateRejected, false},
		{JobStateSucceeded, JobStateFailed, false},
		{JobStateRejected, JobStateAdmitted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestJob_Expired(t *testing.T) {
	job := NewJob("u", AssetHandle{}, Operation{Kind: OpThumbnail}, -time.Second)
	assert.True(t, job.Expired())
}
