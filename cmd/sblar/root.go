package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sblar/internal/logging"
)

// app carries what every subcommand shares.
type app struct {
	stdout io.Writer
	stderr io.Writer

	verbose     bool
	logEncoding string
	log         *zap.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "sblar",
		Short:         "Validate small business lending application register submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logs")
	pf.StringVar(&a.logEncoding, "log-format", "console", "log encoding (console or json)")

	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newDescribeCmd(a))
	root.AddCommand(newCheckConfigCmd(a))
	root.AddCommand(newProbeCmd(a))
	return root
}

func (a *app) initLogger() error {
	level := "info"
	if a.verbose {
		level = "debug"
	}
	l, err := logging.New(logging.Options{Level: level, Encoding: a.logEncoding})
	if err != nil {
		return err
	}
	a.log = l
	return nil
}
