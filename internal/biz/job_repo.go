package biz

import (
	"context"

	"UIForge/internal/model"
)

// JobUpdate is the set of fields written on a job status transition.
// Nil string pointers leave the corresponding column untouched
// (last write wins per field set, no cross-field transaction guarantee).
type JobUpdate struct {
	Status        model.JobStatus
	GeneratedCode *string
	Explanation   *string
	ErrorMessage  *string
}

// JobRepo is the persistence contract for generation jobs.
// The orchestrator is the only writer; implementations must refuse to
// overwrite a record that already reached a terminal status.
// Interface is defined in the biz layer, implemented in data (DDD style).
type JobRepo interface {
	// Insert persists a new job record.
	Insert(ctx context.Context, job *model.Job) error

	// UpdateStatus applies a status transition to the job.
	// Updates against a terminal record are a no-op.
	UpdateStatus(ctx context.Context, jobID string, upd JobUpdate) error

	// FindByJobID returns the job or nil when it does not exist.
	FindByJobID(ctx context.Context, jobID string) (*model.Job, error)

	// FindByOwner returns up to limit jobs for the owner, newest first.
	FindByOwner(ctx context.Context, owner string, limit int) ([]*model.Job, error)
}

// GenerationClient is the opaque remote generation call.
// Implementations classify faults as TransientError (retriable) or
// FatalError (propagated immediately).
type GenerationClient interface {
	// Generate produces an artifact and explanation for the prompt.
	Generate(ctx context.Context, requestID, prompt string) (*model.GenerationResult, error)

	// Configured reports whether the dependency credentials are present.
	Configured() bool
}
