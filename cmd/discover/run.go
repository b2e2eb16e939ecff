package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"jobmatch/internal/app"
	"jobmatch/internal/delivery/http/dto"
	"jobmatch/internal/discovery"
	"jobmatch/internal/repository"
	"jobmatch/internal/scraper"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runOpts struct {
	query      string
	location   string
	maxResults int
	maxAgeDays int
	asJSON     bool
	noStore    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one discovery and print the admitted postings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDiscovery(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOpts.query, "query", "q", "", "search term (required)")
	runCmd.Flags().StringVarP(&runOpts.location, "location", "l", "", "location (default from discovery.default_location)")
	runCmd.Flags().IntVarP(&runOpts.maxResults, "max-results", "n", 0, "maximum postings to return (default from discovery.max_results)")
	runCmd.Flags().IntVar(&runOpts.maxAgeDays, "max-age-days", 0, "drop postings older than this (default from discovery.max_age_days)")
	runCmd.Flags().BoolVar(&runOpts.asJSON, "json", false, "print the batch as JSON")
	runCmd.Flags().BoolVar(&runOpts.noStore, "no-store", false, "only print; do not connect to Postgres or Redis")
	_ = runCmd.MarkFlagRequired("query")
}

func runDiscovery(out io.Writer) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := discovery.Request{
		SearchTerm: runOpts.query,
		Location:   pick(runOpts.location, cfg.Discovery.DefaultLocation),
		MaxResults: pickInt(runOpts.maxResults, cfg.Discovery.MaxResults),
		MaxAgeDays: pickInt(runOpts.maxAgeDays, cfg.Discovery.MaxAgeDays),
	}

	var (
		batch  discovery.Batch
		cached bool
		stored repository.UpsertStats
	)
	if runOpts.noStore {
		o := discovery.New(scraper.FromConfig(cfg.Sources, log), log,
			discovery.WithAdapterTimeout(cfg.Discovery.AdapterTimeout),
			discovery.WithMaxPerSource(cfg.Discovery.MaxPerSource),
		)
		batch, err = o.Discover(ctx, req)
		if err != nil {
			return err
		}
	} else {
		c, err := app.NewContainer(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		if err := c.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		res, err := c.Discovery.Discover(ctx, req)
		if err != nil {
			return err
		}
		batch, cached, stored = res.Batch, res.Cached, res.Stored
	}

	log.Info("discovery finished",
		zap.String("search_term", batch.Request.SearchTerm),
		zap.Int("candidates", len(batch.Candidates)),
		zap.Int("fetched", batch.Fetched),
		zap.Bool("cached", cached),
	)

	if runOpts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(dto.NewDiscoveryResponse(batch, cached, stored))
	}
	return printBatch(out, batch)
}

func printBatch(out io.Writer, b discovery.Batch) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tFRESHNESS\tLEVEL\tTITLE\tCOMPANY\tLOCATION\tSOURCE\tSKILLS")
	jobs := b.Jobs()
	for i, c := range b.Candidates {
		j := jobs[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.QualityScore, c.Freshness, j.ExperienceLevel, j.Title, j.Company, j.Location, j.Source,
			strings.Join(j.RequiredSkills, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d admitted of %d fetched, %d duplicates", len(b.Candidates), b.Fetched, b.Duplicates)
	if len(b.Rejected) > 0 {
		parts := make([]string, 0, len(b.Rejected))
		for _, reason := range []string{discovery.RejectSpam, discovery.RejectInvalid, discovery.RejectTooOld, discovery.RejectLowConfidence} {
			if n := b.Rejected[reason]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
			}
		}
		fmt.Fprintf(out, ", rejected %s", strings.Join(parts, " "))
	}
	fmt.Fprintln(out)
	if failed := b.FailedSources(); len(failed) > 0 {
		fmt.Fprintf(out, "failed sources: %s\n", strings.Join(failed, ", "))
	}
	return nil
}

func pick(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func pickInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
