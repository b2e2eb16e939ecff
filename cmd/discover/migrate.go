package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"jobmatch/internal/database/migration"
	dbpostgres "jobmatch/internal/database/postgres"

	"github.com/spf13/cobra"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
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

		r := migration.Runner{Dir: cfg.Database.MigrationsDir, Log: log}
		if !migrateStatus {
			return r.Run(ctx, db.SQLDB())
		}

		st, err := r.Status(ctx, db.SQLDB())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tNAME\tSTATE\tAPPLIED AT")
		for _, s := range st {
			state, at := "pending", "-"
			if s.Applied {
				state, at = "applied", s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, state, at)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "list migrations and whether each is applied, without applying")
}
