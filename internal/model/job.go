package model

import "time"

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusSuccess JobStatus = "success"
	StatusFailed  JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Job represents one generation request tracked from submission to terminal outcome.
// Status transitions are strictly pending → running → {success, failed};
// once terminal the record is immutable.
type Job struct {
	JobID         string
	Owner         string
	Prompt        string
	Status        JobStatus
	GeneratedCode string // present iff Status == success
	Explanation   string // present iff Status == success
	ErrorMessage  string // present iff Status == failed
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GenerationResult is the artifact produced by the generation dependency.
type GenerationResult struct {
	Code        string
	Explanation string
}
