package port

import (
	"io"
	"time"

	"mediabot/internal/domain"
)

type AssetStore interface {
	// Stage copies bytes into job-isolated storage and returns a handle.
	Stage(r io.Reader, jobID string, kind domain.MediaKind) (domain.AssetHandle, error)
	// StageFile adopts an existing file (rename, no copy) into job-isolated storage.
	StageFile(path, jobID string, kind domain.MediaKind) (domain.AssetHandle, error)
	Open(h domain.AssetHandle) (io.ReadCloser, error)
	// Release removes one asset. Safe to call repeatedly or on an
	// already-released handle.
	Release(h domain.AssetHandle) error
	// ReleaseJob removes every asset staged for a job.
	ReleaseJob(jobID string) error
	// ScratchPath returns a job-scoped path for an external process to write to.
	ScratchPath(jobID, name string) string
	// Sweep reclaims any asset older than ttl regardless of job state and
	// returns the number of entries removed.
	Sweep(ttl time.Duration) (int, error)
}
