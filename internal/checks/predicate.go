// Package checks implements the closed set of validation predicates used by
// the SBLAR rule catalog.
//
// Every predicate comes in one of two shapes. ElementFunc looks at one cell
// at a time. ColumnFunc receives a whole chunk column plus the related
// columns it depends on and returns one pass/fail flag per row. The engine
// dispatches on the concrete type; nothing else implements Predicate.
package checks

import "fmt"

// DefaultSeparator splits multi-value fields such as "1;2;977".
const DefaultSeparator = ";"

// Predicate is either an ElementFunc or a ColumnFunc.
type Predicate interface {
	predicate()
}

// ElementFunc reports whether a single cell passes.
type ElementFunc func(value string) bool

// ColumnFunc evaluates a column against its related columns. related[i] is
// aligned with values and holds the i-th related field of the descriptor.
type ColumnFunc func(values []string, related [][]string) ([]bool, error)

func (ElementFunc) predicate() {}
func (ColumnFunc) predicate()  {}

// Pair lifts a row function over one related column into a ColumnFunc.
func Pair(fn func(value, related string) bool) ColumnFunc {
	return func(values []string, related [][]string) ([]bool, error) {
		if err := requireRelated(values, related, 1); err != nil {
			return nil, err
		}
		out := make([]bool, len(values))
		rel := related[0]
		for i, v := range values {
			out[i] = fn(v, rel[i])
		}
		return out, nil
	}
}

// Fieldset lifts a row function over n related columns into a ColumnFunc.
// The row slice handed to fn is reused between rows.
func Fieldset(n int, fn func(value string, related []string) bool) ColumnFunc {
	return func(values []string, related [][]string) ([]bool, error) {
		if err := requireRelated(values, related, n); err != nil {
			return nil, err
		}
		out := make([]bool, len(values))
		row := make([]string, n)
		for i, v := range values {
			for j := 0; j < n; j++ {
				row[j] = related[j][i]
			}
			out[i] = fn(v, row)
		}
		return out, nil
	}
}

// Column wraps a whole-column function that has no related fields.
func Column(fn func(values []string) []bool) ColumnFunc {
	return func(values []string, _ [][]string) ([]bool, error) {
		return fn(values), nil
	}
}

func requireRelated(values []string, related [][]string, n int) error {
	if len(related) != n {
		return fmt.Errorf("checks: want %d related columns, got %d", n, len(related))
	}
	for i, col := range related {
		if len(col) != len(values) {
			return fmt.Errorf("checks: related column %d has %d rows, want %d", i, len(col), len(values))
		}
	}
	return nil
}
