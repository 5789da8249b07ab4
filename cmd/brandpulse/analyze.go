package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"brandpulse/internal/bootstrap"
	"brandpulse/internal/domain/workflow"
)

type analyzeOptions struct {
	brand        string
	maxDocuments int
	daysBack     int
	asJSON       bool
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one analysis for a brand and print the report",
		Example: `  brandpulse analyze --brand Acme
  brandpulse analyze --brand Acme --max-documents 20 --days-back 3 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container := bootstrap.NewContainer(version)
			container.MustInitCore()
			defer container.Close()

			return runAnalyze(ctx, container.Services.Engine, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.brand, "brand", "", "brand name to analyze (required)")
	cmd.Flags().IntVar(&opts.maxDocuments, "max-documents", workflow.DefaultMaxDocuments, "maximum documents to collect")
	cmd.Flags().IntVar(&opts.daysBack, "days-back", workflow.DefaultDaysBack, "how many days back to search")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full report as JSON")
	_ = cmd.MarkFlagRequired("brand")

	return cmd
}

// analyzer is satisfied by workflowservice.Engine
type analyzer interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.Report, error)
}

func runAnalyze(ctx context.Context, engine analyzer, opts analyzeOptions, out io.Writer) error {
	report, err := engine.Run(ctx, workflow.Request{
		Brand:        opts.brand,
		MaxDocuments: opts.maxDocuments,
		DaysBack:     opts.daysBack,
	})
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	writeSummary(out, report)
	if !report.Success {
		return fmt.Errorf("run %s finished with status %s", report.RunID, report.Status)
	}
	return nil
}
