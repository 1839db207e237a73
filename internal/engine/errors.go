package engine

import (
	"fmt"

	"sblar/internal/frame"
	"sblar/internal/rules"
)

// Error classes returned by the engine. Data that fails a rule is never an
// error; it becomes a finding.
var (
	// ErrCatalog is a defect in the catalog or a predicate. Runs abort on it.
	ErrCatalog = rules.ErrCatalog
	// ErrMissingColumn means the submission lacks a column a check reads.
	ErrMissingColumn = frame.ErrMissingColumn
	// ErrMalformed means the submission could not be read.
	ErrMalformed = frame.ErrMalformed
)

// CheckError ties a fatal error to the check and column that raised it.
type CheckError struct {
	CheckID string
	Column  string
	Err     error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %s on %s: %v", e.CheckID, e.Column, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }
