// Command sblar validates small business lending application register
// submissions against the filing rule catalog.
//
//	sblar validate sblar.csv --context lei=123456789TESTBANK123 \
//	    --naics naics.csv --geoids census_geoids.csv --output json --out findings.json
//	sblar describe --phase logical
//	sblar check-config job.yaml
//	sblar probe sblar.csv --config-out job.yaml
//
// Exit status is 0 when every submission can be filed, 2 when at least one
// was rejected (errors or a malformed upload) and 1 when a run could not
// complete.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitRejected = 2
)

// errRejected marks a validate run whose submissions were read but not all
// accepted.
var errRejected = errors.New("submission rejected")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line args and maps the result to an exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errRejected):
		return exitRejected
	default:
		fmt.Fprintf(stderr, "sblar: %v\n", err)
		return exitFailure
	}
}
