// Package parser picks the chunk reader for a submission.
package parser

import (
	"fmt"

	"go.uber.org/zap"

	"sblar/internal/config"
	"sblar/internal/datasource"
	"sblar/internal/engine"
	"sblar/internal/parser/csv"
	"sblar/internal/parser/parquet"
)

// Kinds understood by New.
const (
	KindCSV     = "csv"
	KindParquet = "parquet"
)

// New returns the reader for kind over src. An empty kind means csv.
func New(kind string, src datasource.Source, opts config.Options, chunkRows int, log *zap.Logger) (engine.ChunkSource, error) {
	switch kind {
	case "", KindCSV:
		return csv.New(src, csv.OptionsFrom(opts, chunkRows), log), nil
	case KindParquet:
		return parquet.New(src, chunkRows, log), nil
	default:
		return nil, fmt.Errorf("unknown parser kind %q", kind)
	}
}
