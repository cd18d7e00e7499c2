package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/HendryAvila/farmcheck/internal/connect"
	"github.com/HendryAvila/farmcheck/internal/farm"
	"github.com/HendryAvila/farmcheck/internal/report"
	"github.com/spf13/cobra"
)

// exitUnhealthy is the --strict exit status when any check failed.
const exitUnhealthy = 2

func newReportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Check the farm tables and storage buckets",
		Long: `Runs the diagnostic once and prints the report.

Each table is checked for existence and counted, in order. A failure in one
table never stops the others. The storage bucket list follows.

Exit status is 0 even when checks fail, unless --strict is set (then 2).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != report.FormatMarkdown && format != report.FormatJSON {
				return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(report.Formats(), " or "))
			}

			cfg, err := a.config()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := connect.Open(ctx, cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			rep := connect.NewReporter(cfg, b, a.logger).Run(ctx)
			body, err := report.Render(rep, format)
			if err != nil {
				return err
			}

			if output != "" {
				if err := os.WriteFile(output, body, 0o644); err != nil {
					return fmt.Errorf("writing report: %w", err)
				}
			} else if _, err := cmd.OutOrStdout().Write(body); err != nil {
				return err
			}

			summary := report.Summarize(rep)
			if strict && !summary.Healthy() {
				fmt.Fprintf(cmd.ErrOrStderr(), "farmcheck: %s\n", summary)
				return &exitError{code: exitUnhealthy}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", report.FormatMarkdown, "output format: markdown or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with status 2 when any check failed")
	return cmd
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables the report checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range farm.Describe(cfg.Tables) {
				fmt.Fprintf(out, "%-16s %s\n", t.Name, t.Label)
			}
			return nil
		},
	}
}
