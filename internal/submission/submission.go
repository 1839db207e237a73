// Package submission derives the filing state of a submission from a
// validation run and keeps the run record that is persisted alongside the
// findings.
package submission

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"sblar/internal/engine"
	"sblar/internal/findings"
)

// State is the filing status shown to the submitter.
type State string

const (
	// UploadMalformed means the file could not be read as a submission.
	UploadMalformed State = "UPLOAD_MALFORMED"
	// ValidationError means the run aborted for a reason other than the
	// file's shape.
	ValidationError State = "VALIDATION_ERROR"
	// ValidationSuccessful means no findings at all.
	ValidationSuccessful State = "VALIDATION_SUCCESSFUL"
	// ValidationWithWarnings means warnings but no errors.
	ValidationWithWarnings State = "VALIDATION_WITH_WARNINGS"
	// ValidationWithErrors means at least one error finding.
	ValidationWithErrors State = "VALIDATION_WITH_ERRORS"
)

// Accepted reports whether a submission in state s may be signed and filed.
func (s State) Accepted() bool {
	return s == ValidationSuccessful || s == ValidationWithWarnings
}

// Derive maps a run result to a state. err is the error returned by
// engine.Run, if any.
func Derive(out engine.Outcome, err error) State {
	switch {
	case errors.Is(err, engine.ErrMissingColumn), errors.Is(err, engine.ErrMalformed):
		return UploadMalformed
	case err != nil:
		return ValidationError
	}
	s := out.Summary()
	switch {
	case s.Errors.Total > 0:
		return ValidationWithErrors
	case s.Warnings.Total > 0:
		return ValidationWithWarnings
	default:
		return ValidationSuccessful
	}
}

// Run is the record of one validation run.
type Run struct {
	ID         string
	Job        string
	Source     string
	Checksum   string
	State      State
	Stage      engine.Stage
	Records    int
	Summary    findings.Summary
	Truncated  bool
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun starts a run record with a fresh id.
func NewRun(job, source, checksum string, now time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Job:       job,
		Source:    source,
		Checksum:  checksum,
		StartedAt: now.UTC(),
	}
}

// Finish records the outcome of the run.
func (r *Run) Finish(out engine.Outcome, err error, now time.Time) {
	r.State = Derive(out, err)
	r.Stage = out.Stage
	r.Records = out.Records
	r.Summary = out.Summary()
	r.Truncated = out.Truncated
	r.Error = ""
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = now.UTC()
}

// Duration is the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
