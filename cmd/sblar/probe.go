package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sblar/internal/config"
	"sblar/internal/probe"
)

type probeFlags struct {
	bytes      int
	delimiter  string
	job        string
	backend    string
	catalog    string
	configOut  string
	saveSample string
}

var titleStyle = lipgloss.NewStyle().Bold(true)

func newProbeCmd(a *app) *cobra.Command {
	var f probeFlags
	cmd := &cobra.Command{
		Use:   "probe PATH|URL",
		Short: "Check a submission header against the template and draft a job file",
		Example: `  # Compare the header of a remote file with the template
  sblar probe https://example.com/sblar.csv

  # Draft a job file persisting to postgres
  sblar probe sblar.csv --backend postgres --config-out job.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(f.catalog)
			if err != nil {
				return err
			}
			res, err := probe.Probe(cmd.Context(), cat, probe.Options{
				Location:   args[0],
				MaxBytes:   f.bytes,
				Delimiter:  probe.DecodeDelimiter(f.delimiter),
				Job:        f.job,
				Backend:    f.backend,
				SamplePath: f.saveSample,
			})
			if err != nil {
				return err
			}
			a.log.Debug("probed submission",
				zap.String("location", res.Location),
				zap.String("format", res.Format),
				zap.Int("columns", len(res.Headers)),
				zap.Int("rows", res.SampleRows),
			)
			if err := writeProbe(a.stdout, res); err != nil {
				return err
			}
			if f.configOut != "" {
				if err := writeJobFile(f.configOut, res.Pipeline); err != nil {
					return err
				}
				fmt.Fprintf(a.stderr, "wrote job file %s\n", f.configOut)
			}
			if !res.Matches() {
				return fmt.Errorf("%s: header does not match the template: %w", res.Location, errRejected)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.bytes, "bytes", probe.DefaultMaxBytes, "number of leading bytes to sample")
	fl.StringVar(&f.delimiter, "delimiter", "", `CSV delimiter; empty detects it ("\t" or "tab" for a tab)`)
	fl.StringVar(&f.job, "job", "", "job name of the drafted job file")
	fl.StringVar(&f.backend, "backend", "", "storage backend of the drafted job file (sqlite, postgres, mssql, mysql)")
	fl.StringVar(&f.catalog, "catalog", "", "rule catalog YAML replacing the embedded one")
	fl.StringVar(&f.configOut, "config-out", "", "write the drafted job file here (.json, .yaml or .yml)")
	fl.StringVar(&f.saveSample, "save-sample", "", "write the sampled bytes to this file")
	return cmd
}

func writeProbe(w io.Writer, res probe.Result) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Property", "Value")
	t.Row("Location", res.Location)
	t.Row("Format", res.Format)
	if res.Format == "csv" {
		t.Row("Delimiter", fmt.Sprintf("%q", res.Delimiter))
		t.Row("Columns", humanize.Comma(int64(len(res.Headers))))
		t.Row("Sample rows", humanize.Comma(int64(res.SampleRows)))
		if res.Ragged > 0 {
			t.Row("Skipped rows", humanize.Comma(int64(res.Ragged)))
		}
		if res.LEI != "" {
			t.Row("LEI", res.LEI)
		}
		t.Row("Missing", list(res.Missing))
		t.Row("Unexpected", list(res.Unexpected))
		t.Row("Order", map[bool]string{true: "differs from template", false: "ok"}[res.OutOfOrder])
	}

	verdict := "header matches the template"
	switch {
	case res.Format != "csv":
		verdict = "header not checked for " + res.Format
	case !res.Matches():
		verdict = "header does not match the template"
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", t.Render(), titleStyle.Render(verdict))
	return err
}

func list(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	return strings.Join(ss, ", ")
}

// writeJobFile encodes p as YAML for .yaml and .yml paths, JSON otherwise.
func writeJobFile(path string, p config.Pipeline) (err error) {
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create job file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return config.Encode(f, p, format)
}
