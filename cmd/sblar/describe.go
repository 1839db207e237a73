package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"sblar/internal/rules"
)

type describeFlags struct {
	phase   string
	ids     []string
	format  string
	catalog string
}

func newDescribeCmd(a *app) *cobra.Command {
	var f describeFlags
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "List the validations of the rule catalog",
		Example: `  # Every logical validation
  sblar describe --phase logical

  # One validation as JSON
  sblar describe --id E2000 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(f.catalog)
			if err != nil {
				return err
			}
			rs, err := selectRules(cat, f.phase, f.ids)
			if err != nil {
				return err
			}
			return writeRules(a.stdout, cat, rs, f.format)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.phase, "phase", "", "only list validations of this phase (syntactical, register, logical)")
	fl.StringSliceVar(&f.ids, "id", nil, "only list these validation ids")
	fl.StringVar(&f.format, "format", "table", "table or json")
	fl.StringVar(&f.catalog, "catalog", "", "rule catalog YAML replacing the embedded one")
	return cmd
}

// selectRules filters the catalog in catalog order. Unknown ids are an error.
func selectRules(cat *rules.Catalog, phase string, ids []string) ([]rules.RuleSpec, error) {
	var want rules.Phase
	if phase != "" {
		p, err := rules.ParsePhase(phase)
		if err != nil {
			return nil, err
		}
		want = p
	}
	if len(ids) > 0 {
		out := make([]rules.RuleSpec, 0, len(ids))
		for _, id := range ids {
			r, ok := cat.Rule(strings.ToUpper(strings.TrimSpace(id)))
			if !ok {
				return nil, fmt.Errorf("unknown validation id %q", id)
			}
			if want == "" || r.Phase == want {
				out = append(out, r)
			}
		}
		return out, nil
	}
	var out []rules.RuleSpec
	for _, r := range cat.Rules() {
		if want == "" || r.Phase == want {
			out = append(out, r)
		}
	}
	return out, nil
}

type ruleView struct {
	ID            string   `json:"id"`
	Phase         string   `json:"phase"`
	Severity      string   `json:"severity"`
	Scope         string   `json:"scope"`
	Column        string   `json:"column"`
	RelatedFields []string `json:"related_fields,omitempty"`
	Name          string   `json:"name"`
	Check         string   `json:"check"`
	Description   string   `json:"description,omitempty"`
	FigLink       string   `json:"fig_link,omitempty"`
}

func writeRules(w io.Writer, cat *rules.Catalog, rs []rules.RuleSpec, format string) error {
	switch format {
	case "json":
		views := make([]ruleView, 0, len(rs))
		for _, r := range rs {
			views = append(views, ruleView{
				ID:            r.ID,
				Phase:         string(r.Phase),
				Severity:      string(r.Severity),
				Scope:         string(r.Scope),
				Column:        r.Column,
				RelatedFields: r.RelatedFields,
				Name:          r.Name,
				Check:         r.Check,
				Description:   r.Description,
				FigLink:       cat.FigLink(r),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		enc.SetEscapeHTML(false)
		return enc.Encode(views)
	case "table", "":
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("ID", "Phase", "Severity", "Scope", "Column", "Check", "Name")
		for _, r := range rs {
			col := r.Column
			if len(r.RelatedFields) > 0 {
				col += " (+" + strings.Join(r.RelatedFields, ", ") + ")"
			}
			t.Row(r.ID, r.Phase.Title(), r.Severity.Title(), string(r.Scope), col, r.Check, r.Name)
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err
	default:
		return fmt.Errorf("unknown describe format %q; want table or json", format)
	}
}
