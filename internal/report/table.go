package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// cellWidth bounds every cell of the table, in runes.
const cellWidth = 50

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// WriteTable renders rows as a rounded box table for a terminal. Long
// values are cut at cellWidth runes.
func WriteTable(w io.Writer, rows []Row) error {
	n := maxFields(rows)
	headers := []string{"", "type", "id", "row", "uid", "scope"}
	for i := 1; i <= n; i++ {
		headers = append(headers, fmt.Sprintf("field_%d", i), fmt.Sprintf("value_%d", i))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for i, r := range rows {
		cells := []string{
			strconv.Itoa(i),
			r.Type,
			r.ID,
			strconv.Itoa(r.RecordNo),
			clip(r.UID),
			string(r.Scope),
		}
		for j := 0; j < n; j++ {
			if j < len(r.Fields) {
				cells = append(cells, clip(r.Fields[j].Name), clip(r.Fields[j].Value))
			} else {
				cells = append(cells, "", "")
			}
		}
		t.Row(cells...)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= cellWidth {
		return s
	}
	return string(r[:cellWidth])
}
