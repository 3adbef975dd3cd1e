package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nlsql/nlsql/internal/config"
	"github.com/nlsql/nlsql/internal/nl2sql"
	"github.com/nlsql/nlsql/internal/observability"
	"github.com/nlsql/nlsql/internal/query/sqlstore"
	"github.com/nlsql/nlsql/internal/schema"
)

const rootLongDesc string = `nlsql answers plain-language questions by generating SQL against a
relational database and running it.

  nlsql chat       Interactive terminal session
  nlsql serve      HTTP session API
  nlsql test       Replay a test-case file and write reports
  nlsql init-db    Create the database from the schema and seed scripts`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nlsql",
		Short:         "Natural language to SQL assistant",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	cmd.AddCommand(
		newChatCmd(),
		newServeCmd(),
		newTestCmd(),
		newInitDBCmd(),
	)
	return cmd
}

// loadConfig resolves configuration for one subcommand and builds its
// logger. Terminal commands log to stderr so stdout stays readable.
func loadConfig(cmd *cobra.Command, serviceName string) (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFromEnv(serviceName)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Observability.LogLevel = slog.LevelDebug
	}
	return cfg, observability.NewLogger(cfg, os.Stderr), nil
}

type assistant struct {
	schema     *schema.Loader
	executor   *sqlstore.Executor
	translator *nl2sql.OpenAITranslator
}

// newAssistant wires the schema, store and inference adapter. Missing schema
// or database files are reported here, before any input is read.
func newAssistant(cfg config.Config) (*assistant, error) {
	loader := schema.NewLoader(cfg.Schema.Path)
	if _, err := loader.Text(); err != nil {
		return nil, err
	}
	executor, err := sqlstore.New(sqlstore.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN})
	if err != nil {
		return nil, err
	}
	translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize inference client: %w", err)
	}
	return &assistant{schema: loader, executor: executor, translator: translator}, nil
}
