package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/model"
	"github.com/sells-group/company-enrich/internal/runner"
)

var (
	discoverInput  string
	discoverOutput string
	discoverFresh  bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find the official website of each company in the roster",
	Long: `Searches for each company by its cleaned registered name and keeps the
first result whose domain carries the jurisdiction marker and mentions the
company. Rows that already have a website or a recorded lookup result are
skipped, so an interrupted run resumes from its output file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("discover"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		_, err := runDiscover(ctx,
			stringOr(discoverInput, cfg.Paths.Roster),
			stringOr(discoverOutput, cfg.Paths.Discovered),
			discoverFresh,
		)
		return err
	},
}

func runDiscover(ctx context.Context, input, output string, fresh bool) (runner.Stats, error) {
	stage, err := newDiscoverStage(ctx, cfg)
	if err != nil {
		return runner.Stats{}, err
	}
	defer func() {
		if err := stage.Close(); err != nil {
			zap.L().Warn("close search session", zap.Error(err))
		}
	}()

	stats, err := runStage(ctx, stage, (*model.CompanyRecord).CarryDiscovery, input, output, fresh, cfg.Runner.DiscoverInterval)
	logStageStats(stats)
	return stats, err
}

func stringOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func init() {
	discoverCmd.Flags().StringVar(&discoverInput, "input", "", "roster CSV or XLSX (default from config paths.roster)")
	discoverCmd.Flags().StringVar(&discoverOutput, "output", "", "output CSV (default from config paths.discovered)")
	discoverCmd.Flags().BoolVar(&discoverFresh, "fresh", false, "ignore existing output and start over")
	rootCmd.AddCommand(discoverCmd)
}
