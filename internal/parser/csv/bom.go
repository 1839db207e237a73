package csv

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// withoutBOM drops a leading byte order mark. UTF-16 input announced by its
// BOM is decoded to UTF-8; anything else passes through unchanged.
func withoutBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}
