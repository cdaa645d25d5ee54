package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/company-enrich/internal/enrich"
	"github.com/sells-group/company-enrich/internal/model"
	"github.com/sells-group/company-enrich/internal/runner"
)

var (
	enrichInput  string
	enrichOutput string
	enrichFresh  bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Derive keywords, industry and offerings with a language model",
	Long: `Sends the scraped page text of each company to the configured model
backend (OpenAI-compatible chat endpoint, Anthropic, or a local command)
and stores the structured fields it returns. Replies that cannot be parsed
are recorded and not retried; backend errors are retried on rerun.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		_, err := runEnrich(ctx,
			stringOr(enrichInput, cfg.Paths.Extracted),
			stringOr(enrichOutput, cfg.Paths.Enriched),
			enrichFresh,
		)
		return err
	},
}

func runEnrich(ctx context.Context, input, output string, fresh bool) (runner.Stats, error) {
	oracle, err := newOracle(cfg)
	if err != nil {
		return runner.Stats{}, err
	}

	stats, err := runStage(ctx, enrich.NewStage(oracle, cfg.Enrich.Timeout), (*model.CompanyRecord).CarryEnrichment, input, output, fresh, cfg.Runner.EnrichInterval)
	logStageStats(stats)
	return stats, err
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "extracted CSV (default from config paths.extracted)")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "output CSV (default from config paths.enriched)")
	enrichCmd.Flags().BoolVar(&enrichFresh, "fresh", false, "ignore existing output and start over")
	rootCmd.AddCommand(enrichCmd)
}
