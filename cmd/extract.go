package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/company-enrich/internal/model"
	"github.com/sells-group/company-enrich/internal/runner"
)

var (
	extractInput  string
	extractOutput string
	extractFresh  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Scrape contact details from each discovered website",
	Long: `Fetches each company's homepage and captures the first email and phone,
social profile links, the meta description and the visible page text used
by the enrich stage. Unreachable sites are recorded as such and are only
visited again with --fresh.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		_, err := runExtract(ctx,
			stringOr(extractInput, cfg.Paths.Discovered),
			stringOr(extractOutput, cfg.Paths.Extracted),
			extractFresh,
		)
		return err
	},
}

func runExtract(ctx context.Context, input, output string, fresh bool) (runner.Stats, error) {
	stage, f := newExtractStage(cfg)
	defer f.Close()

	stats, err := runStage(ctx, stage, (*model.CompanyRecord).CarryExtraction, input, output, fresh, cfg.Runner.ExtractInterval)
	logStageStats(stats)
	return stats, err
}

func init() {
	extractCmd.Flags().StringVar(&extractInput, "input", "", "discovered CSV (default from config paths.discovered)")
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "output CSV (default from config paths.extracted)")
	extractCmd.Flags().BoolVar(&extractFresh, "fresh", false, "ignore existing output and start over")
	rootCmd.AddCommand(extractCmd)
}
