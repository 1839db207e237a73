package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sblar/internal/config"
)

func newCheckConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config FILE",
		Short: "Validate a job file and print its issues",
		Example: `  # Check a job file before scheduling it
  sblar check-config jobs/q3.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Load(args[0])
			if err != nil {
				return err
			}
			issues := config.ValidatePipeline(p)
			printIssues(a, issues)
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid: %s", args[0])
			}
			fmt.Fprintf(a.stdout, "configuration is valid: %s\n", args[0])
			return nil
		},
	}
}

func printIssues(a *app, issues []config.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(a.stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
}
