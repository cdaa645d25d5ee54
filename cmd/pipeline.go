package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	pipelineFresh  bool
	pipelineNoLoad bool
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run discover, extract, enrich and load in sequence",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("pipeline"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runPipeline(ctx, pipelineFresh, !pipelineNoLoad)
	},
}

func runPipeline(ctx context.Context, fresh, load bool) error {
	p := cfg.Paths
	if _, err := runDiscover(ctx, p.Roster, p.Discovered, fresh); err != nil {
		return err
	}
	if _, err := runExtract(ctx, p.Discovered, p.Extracted, fresh); err != nil {
		return err
	}
	if _, err := runEnrich(ctx, p.Extracted, p.Enriched, fresh); err != nil {
		return err
	}
	if !load {
		zap.L().Info("pipeline finished without load", zap.String("output", p.Enriched))
		return nil
	}
	_, err := runLoad(ctx, p.Enriched, cfg.Load.BatchSize)
	return err
}

func init() {
	pipelineCmd.Flags().BoolVar(&pipelineFresh, "fresh", false, "ignore existing stage outputs and start over")
	pipelineCmd.Flags().BoolVar(&pipelineNoLoad, "no-load", false, "stop after the enrich stage")
	rootCmd.AddCommand(pipelineCmd)
}
