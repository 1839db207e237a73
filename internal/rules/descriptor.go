// Package rules turns the declarative SBLAR catalog into per-phase schemas
// of check descriptors.
//
// The catalog is data: catalog.yaml lists every column and every rule with
// the name of its predicate and the predicate's parameters. BuildSchema
// decodes those parameters into concrete checks.Predicate values, binding
// run context (the submitter LEI) and the reference tables. Each call builds
// a fresh schema; nothing produced here is shared between runs.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"sblar/internal/checks"
)

// ErrCatalog marks a defect in the rule catalog or in a predicate. It is
// never caused by the submission data itself.
var ErrCatalog = errors.New("rule catalog defect")

func catalogErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCatalog, fmt.Sprintf(format, args...))
}

// Severity of a rule.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Title returns the display form used in reports ("Error", "Warning").
func (s Severity) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func (s Severity) valid() bool { return s == SeverityError || s == SeverityWarning }

// Scope classifies which data a rule reads.
type Scope string

const (
	ScopeSingleField Scope = "single-field"
	ScopeMultiField  Scope = "multi-field"
	ScopeRegister    Scope = "register"
)

func (s Scope) valid() bool {
	return s == ScopeSingleField || s == ScopeMultiField || s == ScopeRegister
}

// Phase is a validation pass.
type Phase string

const (
	PhaseSyntactical Phase = "syntactical"
	PhaseLogical     Phase = "logical"
	PhaseRegister    Phase = "register"
)

// Title returns the display form ("Syntactical", "Logical", "Register").
func (p Phase) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

func (p Phase) valid() bool {
	return p == PhaseSyntactical || p == PhaseLogical || p == PhaseRegister
}

// ParsePhase accepts a phase name in any case.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	if !p.valid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}

// Descriptor is one bound rule: a predicate plus the metadata reported with
// every finding it produces.
type Descriptor struct {
	ID          string
	Name        string
	Description string
	FigLink     string
	Severity    Severity
	Scope       Scope
	Phase       Phase

	// Column is the primary column; RelatedFields are read alongside it.
	Column        string
	RelatedFields []string

	CheckName string
	Check     checks.Predicate
}

// Fields lists the primary column followed by the related fields, without
// repeats. Findings are exploded over exactly these fields.
func (d *Descriptor) Fields() []string {
	out := make([]string, 0, 1+len(d.RelatedFields))
	out = append(out, d.Column)
	for _, f := range d.RelatedFields {
		dup := false
		for _, o := range out {
			if o == f {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, f)
		}
	}
	return out
}
