package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/loader"
	"github.com/sells-group/company-enrich/internal/model"
	"github.com/sells-group/company-enrich/internal/recordio"
)

var (
	loadInput     string
	loadBatchSize int
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Upsert enriched records into the company database",
	Long: `Resolves each record to one company by UEN, then by exact name, creating
it when neither matches. Enrichment fields fill the company's empty columns
and contacts, social profiles and keywords are appended as child rows.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("load"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		_, err := runLoad(ctx, stringOr(loadInput, cfg.Paths.Enriched), loadBatchSize)
		return err
	},
}

func runLoad(ctx context.Context, input string, batchSize int) (loader.Stats, error) {
	records, err := recordio.ReadFile[model.CompanyRecord](input)
	if err != nil {
		return loader.Stats{}, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return loader.Stats{}, err
	}
	defer st.Close() //nolint:errcheck

	if batchSize <= 0 {
		batchSize = cfg.Load.BatchSize
	}
	stats, err := loader.New(st, batchSize).Load(ctx, records)
	zap.L().Info("load summary",
		zap.String("run_id", stats.RunID),
		zap.Int("total", stats.Total),
		zap.Int("skipped", stats.Skipped),
		zap.Int("committed", stats.Committed),
		zap.Int("created", stats.Created),
		zap.Int("contacts", stats.Contacts),
		zap.Int("socials", stats.Socials),
		zap.Int("keywords", stats.Keywords),
	)
	return stats, err
}

func init() {
	loadCmd.Flags().StringVar(&loadInput, "input", "", "enriched CSV (default from config paths.enriched)")
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 0, "records per transaction (default from config load.batch_size)")
	rootCmd.AddCommand(loadCmd)
}
