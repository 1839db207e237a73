package file

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadList reads a batch file naming one submission (path or URL) per line.
//
// Text after " #" is a comment, as is a line starting with '#'. Blank lines
// and repeats of an earlier location are dropped, so each submission is
// validated once, in first-seen order.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list %s: %w", path, err)
	}
	defer f.Close()

	var (
		out  []string
		seen = map[string]bool{}
		sc   = bufio.NewScanner(f)
	)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if n == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	return out, nil
}
