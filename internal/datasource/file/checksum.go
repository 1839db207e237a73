package file

import (
	"fmt"
	"io"

	"github.com/zeebo/xxh3"
)

// Checksum returns the xxh3-64 digest of everything read from r as 16 hex
// digits.
func Checksum(r io.Reader) (string, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return FormatSum(h.Sum64()), nil
}

// FormatSum renders a digest the way Checksum does.
func FormatSum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
