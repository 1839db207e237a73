// Package datasource defines where submission bytes come from. Sources are
// reopened for every chunked phase, so Open must start from the first byte
// each time.
package datasource

import (
	"bytes"
	"context"
	"io"
)

// Source yields the raw bytes of a submission.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Location names the submission in logs and run records.
	Location() string
}

// SniffLen is the number of leading bytes Sniff looks at.
const SniffLen = 4

var parquetMagic = []byte("PAR1")

// Sniff guesses the parser kind ("parquet" or "csv") from the first bytes
// of a submission.
func Sniff(head []byte) string {
	if bytes.HasPrefix(head, parquetMagic) {
		return "parquet"
	}
	return "csv"
}
