package engine

import (
	"fmt"

	"go.uber.org/zap"

	"sblar/internal/checks"
	"sblar/internal/findings"
	"sblar/internal/frame"
	"sblar/internal/rules"
)

// Result is the outcome of validating one chunk (or the register pass) in
// one phase.
type Result struct {
	Phase     rules.Phase
	Offset    int
	Rows      int
	Findings  []findings.Finding
	Summary   findings.Summary
	Truncated bool
}

// Runner applies a phase schema to chunks. It holds no per-run state and may
// be shared.
type Runner struct {
	log *zap.Logger
}

// NewRunner returns a runner. A nil logger is replaced by a no-op one.
func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// Validate runs every check of s against c. With detail, each failing row
// yields one finding per field the check reads, with the values taken from
// c; without it, one lightweight finding per failing row.
//
// Errors are fatal: *CheckError wrapping ErrCatalog for catalog and
// predicate defects, or ErrMissingColumn when c lacks a column a check reads.
func (r *Runner) Validate(s *rules.Schema, c *frame.Chunk, detail bool) (Result, error) {
	res := Result{Phase: s.Phase, Offset: c.Offset, Rows: c.Len()}
	uids, _ := c.Column(rules.UIDColumn)

	for _, col := range s.Columns {
		for _, d := range col.Checks {
			fails, err := evaluate(s, c, d)
			if err != nil {
				return Result{}, err
			}
			if len(fails) == 0 {
				continue
			}
			r.log.Debug("check failed",
				zap.String("phase", string(s.Phase)),
				zap.String("check", d.ID),
				zap.Int("offset", c.Offset),
				zap.Int("rows", len(fails)),
			)
			res.Findings = appendFindings(res.Findings, c, d, fails, uids, detail)
		}
	}
	res.Summary = findings.Tally(res.Findings)
	return res, nil
}

// evaluate returns the local positions of the rows d rejects.
func evaluate(s *rules.Schema, c *frame.Chunk, d *rules.Descriptor) (fails []int, err error) {
	fields := d.Fields()
	for _, f := range fields {
		if !s.Declares(f) {
			return nil, &CheckError{
				CheckID: d.ID,
				Column:  f,
				Err:     fmt.Errorf("%w: column %q is not part of the %s schema", ErrCatalog, f, s.Phase),
			}
		}
	}
	if missing := c.Missing(fields...); len(missing) > 0 {
		return nil, &CheckError{CheckID: d.ID, Column: d.Column, Err: &frame.MissingColumnError{Columns: missing}}
	}

	values, _ := c.Column(d.Column)
	related := make([][]string, len(d.RelatedFields))
	for i, f := range d.RelatedFields {
		related[i], _ = c.Column(f)
	}

	defer func() {
		if p := recover(); p != nil {
			fails = nil
			err = &CheckError{CheckID: d.ID, Column: d.Column, Err: fmt.Errorf("%w: predicate panicked: %v", ErrCatalog, p)}
		}
	}()

	switch p := d.Check.(type) {
	case checks.ElementFunc:
		for i, v := range values {
			if !p(v) {
				fails = append(fails, i)
			}
		}
	case checks.ColumnFunc:
		ok, err := p(values, related)
		if err != nil {
			return nil, &CheckError{CheckID: d.ID, Column: d.Column, Err: fmt.Errorf("%w: %w", ErrCatalog, err)}
		}
		if len(ok) != len(values) {
			return nil, &CheckError{
				CheckID: d.ID,
				Column:  d.Column,
				Err:     fmt.Errorf("%w: predicate returned %d results for %d rows", ErrCatalog, len(ok), len(values)),
			}
		}
		for i, pass := range ok {
			if !pass {
				fails = append(fails, i)
			}
		}
	default:
		return nil, &CheckError{CheckID: d.ID, Column: d.Column, Err: fmt.Errorf("%w: unsupported predicate %T", ErrCatalog, d.Check)}
	}
	return fails, nil
}

func appendFindings(out []findings.Finding, c *frame.Chunk, d *rules.Descriptor, fails []int, uids []string, detail bool) []findings.Finding {
	fields := []string{d.Column}
	if detail {
		fields = d.Fields()
	}
	for _, i := range fails {
		// uid is joined by position: record_no - 1 - offset
		var uid string
		if i < len(uids) {
			uid = uids[i]
		}
		for _, f := range fields {
			fd := findings.Finding{
				ValidationID: d.ID,
				RecordNo:     c.RecordNo(i),
				UID:          uid,
				FieldName:    f,
				Severity:     d.Severity,
				Scope:        d.Scope,
				Phase:        d.Phase,
				Detailed:     detail,
			}
			if detail {
				fd.FieldValue = c.Value(f, i)
			}
			out = append(out, fd)
		}
	}
	return out
}
