package frame

import (
	"errors"
	"fmt"
	"strings"
)

// Input errors shared by the readers and the engine.
var (
	// ErrMissingColumn means the submission lacks a column validation
	// cannot run without.
	ErrMissingColumn = errors.New("required column missing")
	// ErrMalformed means the submission could not be read as a table.
	ErrMalformed = errors.New("malformed submission")
)

// MissingColumnError lists the absent columns.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumn, strings.Join(e.Columns, ", "))
}

// Is lets errors.Is(err, ErrMissingColumn) match.
func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// Malformedf wraps a read failure as ErrMalformed.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
