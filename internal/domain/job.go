package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateAdmitted  JobState = "admitted"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateTimedOut  JobState = "timed_out"
	JobStateRejected  JobState = "rejected"
)

// Terminal reports whether a state ends a job's lifecycle.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateTimedOut, JobStateRejected:
		return true
	default:
		return false
	}
}

// ValidTransition enforces the allowed job state machine edges.
func ValidTransition(from, to JobState) bool {
	switch from {
	case JobStatePending:
		return to == JobStateAdmitted || to == JobStateRejected
	case JobStateAdmitted:
		return to == JobStateRunning || to == JobStateFailed || to == JobStateTimedOut
	case JobStateRunning:
		return to == JobStateSucceeded || to == JobStateFailed || to == JobStateTimedOut
	default:
		return false
	}
}

type Job struct {
	ID           string
	UserRef      string
	Input        AssetHandle
	Op           Operation
	State        JobState
	ErrorMessage string
	OutputPath   string
	CreatedAt    time.Time
	Deadline     time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
}

// NewJob creates a pending job with an absolute deadline computed from now.
func NewJob(userRef string, input AssetHandle, op Operation, timeout time.Duration) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		UserRef:   userRef,
		Input:     input,
		Op:        op,
		State:     JobStatePending,
		CreatedAt: now,
		Deadline:  now.Add(timeout),
	}
}

// Expired reports whether the job's deadline has already passed.
func (j *Job) Expired() bool {
	return time.Now().After(j.Deadline)
}
