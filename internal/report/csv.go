package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{
	"validation_type",
	"validation_id",
	"validation_name",
	"row",
	"unique_identifier",
	"fig_link",
	"validation_description",
	"scope",
}

// WriteCSV writes one line per row. The field_N/value_N columns are sized to
// the widest row; shorter rows leave the rest blank.
func WriteCSV(w io.Writer, rows []Row) error {
	n := maxFields(rows)
	header := append([]string(nil), csvHeader...)
	for i := 1; i <= n; i++ {
		header = append(header, fmt.Sprintf("field_%d", i), fmt.Sprintf("value_%d", i))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for _, r := range rows {
		rec = rec[:0]
		rec = append(rec,
			r.Type,
			r.ID,
			r.Name,
			strconv.Itoa(r.RecordNo),
			r.UID,
			r.FigLink,
			r.Description,
			string(r.Scope),
		)
		for i := 0; i < n; i++ {
			if i < len(r.Fields) {
				rec = append(rec, r.Fields[i].Name, r.Fields[i].Value)
			} else {
				rec = append(rec, "", "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
