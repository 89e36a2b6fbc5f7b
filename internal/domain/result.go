package domain

import "fmt"

type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureCapacity   FailureKind = "capacity"
	FailureProcess    FailureKind = "process"
	FailureTimeout    FailureKind = "timeout"
	FailureStorage    FailureKind = "storage"
)

// Failure is a structured, job-scoped terminal error.
type Failure struct {
	Kind   FailureKind
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

func NewFailure(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Result carries the outcome of one successful transcode invocation. Probe
// metadata is best-effort and zero when probing failed or does not apply.
type Result struct {
	Output          AssetHandle
	Width           int
	Height          int
	DurationSeconds float64
}
