package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jobmatch/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loopOnce bool

var loopCmd = &cobra.Command{
	Use:   "loop",
	Short: "Run discovery.queries on discovery.interval until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runLoop()
	},
}

func init() {
	rootCmd.AddCommand(loopCmd)
	loopCmd.Flags().BoolVar(&loopOnce, "once", false, "run a single iteration and exit")
}

func runLoop() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	if err := c.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if len(c.Requests()) == 0 {
		return errors.New("discovery.queries is empty")
	}

	loop, err := c.NewLoop()
	if err != nil {
		return err
	}

	if loopOnce {
		var failed int
		for _, r := range loop.RunOnce(ctx) {
			if r.Err != nil {
				failed++
			}
			log.Info("iteration result",
				zap.String("search_term", r.Request.SearchTerm),
				zap.Int("candidates", r.Candidates),
				zap.Bool("skipped", r.Skipped),
				zap.Error(r.Err),
			)
		}
		if failed > 0 {
			return fmt.Errorf("%d discovery requests failed", failed)
		}
		return nil
	}

	if err := loop.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	log.Info("shutting down discovery loop")
	loop.Stop()
	return nil
}
