package report

import (
	"io"

	"github.com/goccy/go-json"

	"sblar/internal/rules"
)

// Validation describes the rule a JSON group belongs to.
type Validation struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Severity    string      `json:"severity"`
	Scope       rules.Scope `json:"scope"`
	FigLink     string      `json:"fig_link"`
}

// Record is one failing record inside a group.
type Record struct {
	RecordNo int     `json:"record_no"`
	UID      string  `json:"uid"`
	Fields   []Field `json:"fields"`
}

// Group holds the records of one validation.
type Group struct {
	Validation Validation `json:"validation"`
	Records    []Record   `json:"records"`
}

// Groups folds rows, already ordered by Build, into one group per
// validation. maxGroupSize > 0 keeps only the first records of each group.
func Groups(rows []Row, maxGroupSize int) []Group {
	var out []Group
	for _, r := range rows {
		if len(out) == 0 || out[len(out)-1].Validation.ID != r.ID {
			out = append(out, Group{Validation: Validation{
				ID:          r.ID,
				Name:        r.Name,
				Description: r.Description,
				Severity:    r.Type,
				Scope:       r.Scope,
				FigLink:     r.FigLink,
			}})
		}
		g := &out[len(out)-1]
		if maxGroupSize > 0 && len(g.Records) >= maxGroupSize {
			continue
		}
		g.Records = append(g.Records, Record{RecordNo: r.RecordNo, UID: r.UID, Fields: r.Fields})
	}
	return out
}

// WriteJSON writes the groups as an indented array. No findings is "[]".
func WriteJSON(w io.Writer, rows []Row, maxGroupSize int) error {
	groups := Groups(rows, maxGroupSize)
	if groups == nil {
		groups = []Group{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(groups)
}
