package report

import (
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"sblar/internal/findings"
	"sblar/internal/rules"
)

var phaseOrder = []rules.Phase{rules.PhaseSyntactical, rules.PhaseRegister, rules.PhaseLogical}

// WriteSummary renders the per-phase counts of the phases that ran.
func WriteSummary(w io.Writer, phases map[rules.Phase]findings.Summary) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("phase", "severity", "single-field", "multi-field", "register", "total").
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
	for _, p := range phaseOrder {
		s, ok := phases[p]
		if !ok {
			continue
		}
		for _, b := range []struct {
			sev rules.Severity
			c   findings.Counts
		}{
			{rules.SeverityError, s.Errors},
			{rules.SeverityWarning, s.Warnings},
		} {
			t.Row(
				p.Title(),
				b.sev.Title(),
				strconv.Itoa(b.c.SingleField),
				strconv.Itoa(b.c.MultiField),
				strconv.Itoa(b.c.Register),
				strconv.Itoa(b.c.Total),
			)
		}
	}
	_, err := io.WriteString(w, t.Render()+"\n")
	return err
}
