package httpds

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"
)

var unsafeRun = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// HashString returns the xxh3 digest of s as 16 hex digits.
func HashString(s string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(s))
}

// SafeFilenameFromURL derives a filesystem-safe name for a download. The
// last path segment is used when it survives cleaning; otherwise the name is
// a hash of the whole URL.
func SafeFilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return HashString(rawURL)
	}
	clean := strings.Trim(unsafeRun.ReplaceAllString(base, "_"), "._")
	if clean == "" {
		return HashString(rawURL)
	}
	return clean
}
