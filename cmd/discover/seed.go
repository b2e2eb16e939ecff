package main

import (
	"context"
	"fmt"
	"time"

	"jobmatch/internal/database/migration"
	dbpostgres "jobmatch/internal/database/postgres"
	"jobmatch/internal/database/seeder"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Apply migrations and insert the demo résumés",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		db, err := dbpostgres.Connect(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := (migration.Runner{Dir: cfg.Database.MigrationsDir, Log: log}).Run(ctx, db.SQLDB()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if err := (seeder.Runner{Seeders: seeder.Defaults(), Log: log}).Run(ctx, db); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, id := range []fmt.Stringer{seeder.DemoBackendResumeID, seeder.DemoFrontendResumeID, seeder.DemoDataResumeID} {
			if _, err := fmt.Fprintln(out, id.String()); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
