package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sblar/internal/config"
	"sblar/internal/datasource/file"
	"sblar/internal/probe"
)

// validateFlags mirrors the job file knobs. A flag only overrides the job
// file when it was set on the command line.
type validateFlags struct {
	config  string
	list    string
	job     string
	catalog string
	parser  string
	context map[string]string

	output       string
	out          string
	maxGroupSize int

	naics  string
	geoids string

	batchSize     int
	batchCount    int
	maxErrors     int
	channelBuffer int

	store      string
	dsn        string
	autoCreate bool

	metrics        string
	pushgatewayURL string
	datadogAddr    string
}

func newValidateCmd(a *app) *cobra.Command {
	var f validateFlags
	cmd := &cobra.Command{
		Use:   "validate [PATH|URL]...",
		Short: "Validate one or more submissions",
		Long: `Validate runs the syntactical phase over each submission and, when it is
clean, the register and logical phases. Findings are written as a report and
optionally persisted to a findings store.`,
		Example: `  # Validate a local file and print findings as a table
  sblar validate sblar.csv --context lei=123456789TESTBANK123 \
      --naics naics.csv --geoids census_geoids.csv --output table

  # Validate every submission listed in a batch file using a job file
  sblar validate --config job.yaml --list submissions.txt --store sqlite --dsn runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := f.pipeline(cmd)
			if err != nil {
				return err
			}
			locations, err := f.locations(p, args)
			if err != nil {
				return err
			}
			setSource(&p, locations[0])
			issues := config.ValidatePipeline(p)
			printIssues(a, issues)
			if config.HasErrors(issues) {
				return fmt.Errorf("invalid configuration")
			}
			return runValidate(cmd.Context(), a, p, locations)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "job file (JSON or YAML)")
	fl.StringVar(&f.list, "list", "", "file listing submission paths or URLs, one per line")
	fl.StringVar(&f.job, "job", "", "job name for logs, metrics and run records")
	fl.StringVar(&f.catalog, "catalog", "", "rule catalog YAML replacing the embedded one")
	fl.StringVar(&f.parser, "parser", "", "csv or parquet; detected from the file when empty")
	fl.StringToStringVar(&f.context, "context", nil, "context values, e.g. lei=123456789TESTBANK123")

	fl.StringVar(&f.output, "output", "csv", "report format: csv, json, table or none")
	fl.StringVar(&f.out, "out", "", "report file; stdout when empty")
	fl.IntVar(&f.maxGroupSize, "max-group-size", 0, "cap on records listed per validation in json reports")

	fl.StringVar(&f.naics, "naics", "", "NAICS code table (CSV with a code column)")
	fl.StringVar(&f.geoids, "geoids", "", "census GEOID table (CSV with a geoid column)")

	fl.IntVar(&f.batchSize, "batch-size", 0, "rows per read batch")
	fl.IntVar(&f.batchCount, "batch-count", 0, "batches per chunk")
	fl.IntVar(&f.maxErrors, "max-errors", 0, "failures reported with field detail per phase (positive)")
	fl.IntVar(&f.channelBuffer, "channel-buffer", 0, "chunks read ahead")

	fl.StringVar(&f.store, "store", "", "findings store: sqlite, postgres, mssql or mysql")
	fl.StringVar(&f.dsn, "dsn", "", "findings store connection string")
	fl.BoolVar(&f.autoCreate, "auto-create", true, "create the store tables when missing")

	fl.StringVar(&f.metrics, "metrics", "", "metrics backend: none, pushgateway or datadog")
	fl.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL")
	fl.StringVar(&f.datadogAddr, "datadog-addr", "", "DogStatsD address")
	return cmd
}

// pipeline loads the job file, when given, and applies the flags that were
// set on top of it.
func (f *validateFlags) pipeline(cmd *cobra.Command) (config.Pipeline, error) {
	var p config.Pipeline
	if f.config != "" {
		var err error
		if p, err = config.Load(f.config); err != nil {
			return config.Pipeline{}, err
		}
	} else {
		p.Output.Format = f.output
		p.Storage.DB.AutoCreateTable = f.autoCreate
	}
	changed := cmd.Flags().Changed

	if changed("job") {
		p.Job = f.job
	}
	if p.Job == "" {
		p.Job = "sblar"
	}
	if changed("catalog") {
		p.Catalog = f.catalog
	}
	if changed("parser") {
		p.Parser.Kind = f.parser
	}
	if len(f.context) > 0 {
		if p.Context == nil {
			p.Context = map[string]string{}
		}
		for k, v := range f.context {
			p.Context[k] = v
		}
	}
	if changed("output") {
		p.Output.Format = f.output
	}
	if changed("out") {
		p.Output.Path = f.out
	}
	if changed("max-group-size") {
		p.Output.MaxGroupSize = f.maxGroupSize
	}
	if changed("naics") {
		p.Reference.NAICS = f.naics
	}
	if changed("geoids") {
		p.Reference.CensusGEOIDs = f.geoids
	}
	if changed("batch-size") {
		p.Runtime.BatchSize = f.batchSize
	}
	if changed("batch-count") {
		p.Runtime.BatchCount = f.batchCount
	}
	if changed("max-errors") {
		if f.maxErrors <= 0 {
			return config.Pipeline{}, fmt.Errorf("--max-errors must be positive, got %d", f.maxErrors)
		}
		p.Runtime.MaxErrors = f.maxErrors
	}
	if changed("channel-buffer") {
		p.Runtime.ChannelBuffer = f.channelBuffer
	}
	if changed("store") {
		p.Storage.Kind = f.store
	}
	if changed("dsn") {
		p.Storage.DB.DSN = f.dsn
	}
	if changed("auto-create") {
		p.Storage.DB.AutoCreateTable = f.autoCreate
	}
	if changed("metrics") {
		p.Metrics.Backend = f.metrics
	}
	if changed("pushgateway-url") {
		p.Metrics.PushgatewayURL = f.pushgatewayURL
	}
	if changed("datadog-addr") {
		p.Metrics.DatadogAddr = f.datadogAddr
	}
	return p, nil
}

// locations gathers the submissions from args and --list, falling back to
// the job file source.
func (f *validateFlags) locations(p config.Pipeline, args []string) ([]string, error) {
	out := append([]string(nil), args...)
	if f.list != "" {
		more, err := file.ReadList(f.list)
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	if len(out) == 0 {
		switch p.Source.Kind {
		case "file":
			out = append(out, p.Source.File.Path)
		case "http":
			out = append(out, p.Source.HTTP.URL)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no submission given: pass a PATH or URL, --list, or a job file source")
	}
	return out, nil
}

// setSource points p at loc, keeping the HTTP settings of the job file.
func setSource(p *config.Pipeline, loc string) {
	if probe.IsURL(loc) {
		p.Source.Kind = "http"
		p.Source.HTTP.URL = loc
		return
	}
	p.Source.Kind = "file"
	p.Source.File.Path = loc
}
