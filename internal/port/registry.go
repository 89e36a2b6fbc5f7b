package port

import "mediabot/internal/domain"

// JobRegistry is the durable record of every job and its transitions. The
// queue is the single writer; everyone else reads snapshots.
type JobRegistry interface {
	Create(j *domain.Job) error
	Transition(id string, to domain.JobState, errMsg string) error
	SetOutput(id string, outputPath string) error
	Get(id string) (*domain.Job, error)
	Snapshot(limit int) ([]*domain.Job, error)
	// ResetStalled fails every job left non-terminal by a previous run.
	ResetStalled() error
}
