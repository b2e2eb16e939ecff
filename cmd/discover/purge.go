package main

import (
	"context"
	"fmt"
	"time"

	"jobmatch/internal/infrastructure/cache"
	"jobmatch/internal/similarity"
	"jobmatch/internal/usecase"

	"github.com/spf13/cobra"
)

var purgeEmbeddings bool

var purgeCmd = &cobra.Command{
	Use:   "purge-cache",
	Short: "Drop cached discovery batches (and, with --embeddings, cached embeddings) from Redis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		c := cache.NewRedis(ctx, cfg.Redis, log)
		defer func() { _ = c.Close() }()
		if err := c.Ping(ctx); err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}

		patterns := []string{usecase.DiscoveryResultPattern}
		if purgeEmbeddings {
			patterns = append(patterns, similarity.CacheKeyPattern)
		}
		for _, p := range patterns {
			if err := c.DeleteByPattern(ctx, p); err != nil {
				return fmt.Errorf("purge %s: %w", p, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().BoolVar(&purgeEmbeddings, "embeddings", false, "also drop cached embeddings")
}
