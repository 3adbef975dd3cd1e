package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nlsql/nlsql/internal/dbinit"
	"github.com/nlsql/nlsql/internal/query/sqlstore"
)

func newInitDBCmd() *cobra.Command {
	var schemaPath, seedPath string
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the database from the schema and seed scripts",
		Long: `Apply the schema script and then the seed script to the configured
database. Applied scripts are recorded, so running init-db again is a no-op;
editing a script after it was applied is reported as an error.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, "nlsql-init-db")
			if err != nil {
				return err
			}
			if schemaPath == "" {
				schemaPath = cfg.Schema.Path
			}
			if seedPath == "" {
				seedPath = cfg.Schema.SeedPath
			}

			paths := []string{schemaPath}
			if seedPath != "-" {
				paths = append(paths, seedPath)
			}
			scripts, err := dbinit.LoadFiles(paths...)
			if err != nil {
				return err
			}

			executor, err := sqlstore.New(sqlstore.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN, AllowMissing: true})
			if err != nil {
				return err
			}
			db, err := executor.Open()
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			runner := &dbinit.Runner{Logger: logger}
			result, err := runner.Apply(cmd.Context(), db, scripts)
			if err != nil {
				return err
			}
			logger.Info("database ready",
				slog.String("driver", cfg.Store.Driver),
				slog.String("dsn", cfg.Store.DSN),
				slog.Int("applied", len(result.Applied)),
				slog.Int("skipped", len(result.Skipped)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d script(s), %d already applied.\n", len(result.Applied), len(result.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "Schema script (default from NLSQL_SCHEMA_PATH)")
	cmd.Flags().StringVar(&seedPath, "seed", "", `Seed script, or "-" to skip (default from NLSQL_SEED_PATH)`)
	return cmd
}
