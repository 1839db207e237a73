// Package config defines the configuration model of a validation job. A job
// file is JSON or YAML with the same shape; the loader picks the decoder from
// the file extension.
//
// Example (trimmed):
//
//	{
//	  "job":       "q3-submission",
//	  "source":    { "kind": "file", "file": { "path": "sblar.csv" } },
//	  "parser":    { "kind": "csv", "options": { "comma": "," } },
//	  "context":   { "lei": "123456789TESTBANK123" },
//	  "reference": { "naics": "naics.csv", "census_geoids": "geoids.csv" },
//	  "runtime":   { "batch_size": 50000, "max_errors": 1000000 },
//	  "output":    { "format": "csv", "path": "findings.csv" },
//	  "storage":   { "kind": "sqlite", "db": { "dsn": "file:runs.db", "auto_create_table": true } }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline is the top-level job document.
type Pipeline struct {
	// Job names the run in logs, metrics and the run record.
	Job string `json:"job" yaml:"job"`

	Source Source `json:"source" yaml:"source"`
	Parser Parser `json:"parser" yaml:"parser"`

	// Context parametrizes context-sensitive rules. "lei" is the only key the
	// catalog reads today.
	Context map[string]string `json:"context,omitempty" yaml:"context,omitempty"`

	// Catalog replaces the embedded rule catalog when set.
	Catalog string `json:"catalog" yaml:"catalog"`

	Reference Reference     `json:"reference" yaml:"reference"`
	Runtime   RuntimeConfig `json:"runtime" yaml:"runtime"`
	Output    Output        `json:"output" yaml:"output"`
	Storage   Storage       `json:"storage" yaml:"storage"`
	Metrics   Metrics       `json:"metrics" yaml:"metrics"`
}

// RuntimeConfig controls chunking and the detail budget. Zero values are
// resolved by ResolveRuntime.
type RuntimeConfig struct {
	// BatchSize is the number of rows per read batch.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
	// BatchCount is the number of batches assembled into one chunk.
	BatchCount int `json:"batch_count" yaml:"batch_count"`
	// MaxErrors bounds the failures reported with field detail per phase.
	// It is always positive after ResolveRuntime.
	MaxErrors int `json:"max_errors" yaml:"max_errors"`
	// ChannelBuffer is the number of chunks read ahead.
	ChannelBuffer int `json:"channel_buffer" yaml:"channel_buffer"`
}

// Source identifies where the submission comes from.
type Source struct {
	// Kind is "file" or "http".
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
	HTTP SourceHTTP `json:"http" yaml:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL            string `json:"url" yaml:"url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `json:"max_retries" yaml:"max_retries"`
	UserAgent      string `json:"user_agent" yaml:"user_agent"`
}

// Parser selects the chunk reader.
type Parser struct {
	// Kind is "csv" or "parquet".
	Kind string `json:"kind" yaml:"kind"`

	// Options is interpreted by the parser. CSV reads "comma" (string) and
	// "lazy_quotes" and "trim_space" (bool).
	Options Options `json:"options" yaml:"options"`
}

// Reference points at the code tables.
type Reference struct {
	NAICS        string `json:"naics" yaml:"naics"`
	CensusGEOIDs string `json:"census_geoids" yaml:"census_geoids"`
}

// Output configures the findings report.
type Output struct {
	// Format is "csv", "json", "table" or "none".
	Format string `json:"format" yaml:"format"`
	// Path is the report file; empty means stdout.
	Path string `json:"path" yaml:"path"`
	// MaxGroupSize caps the records listed per validation in JSON output.
	MaxGroupSize int `json:"max_group_size" yaml:"max_group_size"`
}

// Storage selects where findings and run records are persisted. An empty
// kind disables persistence.
type Storage struct {
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the findings store.
type DBConfig struct {
	// DSN is the backend connection string.
	DSN string `json:"dsn" yaml:"dsn"`

	// AutoCreateTable creates the findings and run tables when missing.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`

	// BatchSize is the number of findings per bulk insert.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string   `json:"backend" yaml:"backend"`
	PushgatewayURL string   `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr" yaml:"datadog_addr"`
	Namespace      string   `json:"namespace" yaml:"namespace"`
	Tags           []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Load reads a job file. ".yaml" and ".yml" are decoded as YAML, anything
// else as JSON.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	p, err := Decode(bytes.NewReader(b), format)
	if err != nil {
		return Pipeline{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode parses a job document in the given format ("json" or "yaml").
// Unknown fields are rejected.
func Decode(r io.Reader, format string) (Pipeline, error) {
	var p Pipeline
	switch format {
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("decode json config: %w", err)
		}
	case "yaml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && err != io.EOF {
			return Pipeline{}, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		return Pipeline{}, fmt.Errorf("unknown config format %q", format)
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}

// Encode writes p as a job document in the given format ("json" or
// "yaml"). The output decodes back with Decode.
func Encode(w io.Writer, p Pipeline, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode json config: %w", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode yaml config: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown config format %q", format)
	}
	return nil
}

// Options is a small helper to fetch typed values from parser option maps.
// It performs only minimal type coercion and returns the default when a key
// is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers arrive as float64
// and YAML numbers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. Used for the CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// UnmarshalJSON makes a missing or null "options" object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
