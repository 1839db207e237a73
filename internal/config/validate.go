package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a problem worth surfacing that does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.db.dsn").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, errorAt("job", "job must not be empty; it labels metrics and run records"))
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateContext(p.Context)...)
	issues = append(issues, validateReference(p.Reference)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

func errorAt(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)}
}

func warnAt(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)}
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch strings.TrimSpace(s.Kind) {
	case "":
		issues = append(issues, errorAt("source.kind", "source.kind must not be empty"))
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, errorAt("source.file.path", "file source requires a non-empty path"))
		}
	case "http":
		u, err := url.Parse(s.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, errorAt("source.http.url", "http source requires an absolute http(s) URL, got %q", s.HTTP.URL))
		}
		if s.HTTP.MaxRetries < 0 {
			issues = append(issues, errorAt("source.http.max_retries", "max_retries must not be negative"))
		}
	default:
		issues = append(issues, errorAt("source.kind", "unknown source kind %q; want file or http", s.Kind))
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	switch strings.TrimSpace(p.Kind) {
	case "":
		issues = append(issues, warnAt("parser.kind", "parser.kind is empty; csv is assumed"))
	case "csv":
		if c := p.Options.String("comma", ","); len([]rune(c)) != 1 {
			issues = append(issues, errorAt("parser.options.comma", "comma must be a single character, got %q", c))
		}
	case "parquet":
		if len(p.Options) > 0 {
			issues = append(issues, warnAt("parser.options", "parquet parser takes no options; they are ignored"))
		}
	default:
		issues = append(issues, errorAt("parser.kind", "unknown parser kind %q; want csv or parquet", p.Kind))
	}
	return issues
}

func validateContext(ctx map[string]string) []Issue {
	if strings.TrimSpace(ctx["lei"]) == "" {
		return []Issue{warnAt("context.lei", "no lei in context; the uid-starts-with-LEI check passes every record")}
	}
	return nil
}

func validateReference(r Reference) []Issue {
	var issues []Issue
	if strings.TrimSpace(r.NAICS) == "" {
		issues = append(issues, errorAt("reference.naics", "the NAICS code table is required by the catalog"))
	}
	if strings.TrimSpace(r.CensusGEOIDs) == "" {
		issues = append(issues, errorAt("reference.census_geoids", "the census GEOID table is required by the catalog"))
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	for _, f := range []struct {
		path string
		v    int
	}{
		{"runtime.batch_size", r.BatchSize},
		{"runtime.batch_count", r.BatchCount},
		{"runtime.max_errors", r.MaxErrors},
		{"runtime.channel_buffer", r.ChannelBuffer},
	} {
		if f.v < 0 {
			issues = append(issues, errorAt(f.path, "%s must not be negative", f.path[len("runtime."):]))
		}
	}
	if r.BatchSize > 0 && r.BatchCount > 0 && r.BatchSize*r.BatchCount > 10_000_000 {
		issues = append(issues, warnAt("runtime.batch_size", "chunks of %d rows hold the whole file in memory for most submissions", r.BatchSize*r.BatchCount))
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue

	switch o.Format {
	case "", "csv", "json", "table", "none":
	default:
		issues = append(issues, errorAt("output.format", "unknown output format %q; want csv, json, table or none", o.Format))
	}
	if o.MaxGroupSize < 0 {
		issues = append(issues, errorAt("output.max_group_size", "max_group_size must not be negative"))
	}
	if o.MaxGroupSize > 0 && o.Format != "json" {
		issues = append(issues, warnAt("output.max_group_size", "max_group_size only applies to json output"))
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return nil
	}
	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, errorAt("storage.kind", "unknown storage kind %q; want sqlite, postgres, mssql or mysql", s.Kind))
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, errorAt("storage.db.dsn", "storage.db.dsn must not be empty"))
	}
	if s.DB.BatchSize < 0 {
		issues = append(issues, errorAt("storage.db.batch_size", "batch_size must not be negative"))
	}
	if !s.DB.AutoCreateTable {
		issues = append(issues, warnAt("storage.db.auto_create_table", "auto_create_table is false; the findings and run tables must already exist"))
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, errorAt("metrics.pushgateway_url", "pushgateway backend requires pushgateway_url"))
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, errorAt("metrics.datadog_addr", "datadog backend requires datadog_addr"))
		}
	default:
		issues = append(issues, errorAt("metrics.backend", "unknown metrics backend %q; want none, pushgateway or datadog", m.Backend))
	}
	return issues
}
