package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nlsql/nlsql/internal/harness"
	"github.com/nlsql/nlsql/internal/report"
	"github.com/nlsql/nlsql/internal/storage"
	s3store "github.com/nlsql/nlsql/internal/storage/s3"
)

var errSuiteAborted = errors.New("test suite aborted")

type testCommander struct {
	casesPath   string
	outDir      string
	parallelism int
	publish     bool
	noParquet   bool
}

func newTestCmd() *cobra.Command {
	cmder := &testCommander{}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Replay test cases and write HTML, XLSX and Parquet reports",
		Long: `Replay every case of a test-case file (.xlsx first sheet, or .csv) with
columns "Test Case ID" and "Natural Language Query". Each question is sent
on its own, without conversation history, and classified as PASSED, FAILED
or CLARIFICATION_REQUESTED.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&cmder.casesPath, "cases", "c", "", "Test-case file (default from NLSQL_TEST_CASES_PATH)")
	cmd.Flags().StringVarP(&cmder.outDir, "out", "o", "", "Report directory (default from NLSQL_REPORTS_DIR)")
	cmd.Flags().IntVarP(&cmder.parallelism, "parallel", "p", 0, "Concurrent cases (default from NLSQL_TEST_PARALLELISM)")
	cmd.Flags().BoolVar(&cmder.publish, "publish", false, "Upload reports to the configured object store")
	cmd.Flags().BoolVar(&cmder.noParquet, "no-parquet", false, "Skip the Parquet export")
	return cmd
}

func (c *testCommander) run(cmd *cobra.Command) error {
	cfg, logger, err := loadConfig(cmd, "nlsql-test")
	if err != nil {
		return err
	}
	if c.casesPath != "" {
		cfg.Harness.CasesPath = c.casesPath
	}
	if c.outDir != "" {
		cfg.Reports.Dir = c.outDir
	}
	if c.parallelism > 0 {
		cfg.Harness.Parallelism = c.parallelism
	}
	if c.publish {
		cfg.Reports.Publish = true
	}
	if c.noParquet {
		cfg.Reports.Parquet = false
	}

	cases, err := harness.LoadCases(cfg.Harness.CasesPath)
	if err != nil {
		return err
	}
	deps, err := newAssistant(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := report.Console{Out: cmd.OutOrStdout()}
	tables, err := deps.executor.Tables(ctx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Database connection failed: %v\n", err)
		return fmt.Errorf("%w: %v", errSuiteAborted, err)
	}
	console.Tables(tables)
	console.Banner(len(cases))

	runner := &harness.Runner{
		Translator:  deps.translator,
		Executor:    deps.executor,
		Schema:      deps.schema,
		Parallelism: cfg.Harness.Parallelism,
		Logger:      logger,
		Progress:    console.Case,
	}
	results := runner.Run(ctx, cases)

	generatedAt := time.Now()
	runID := uuid.NewString()
	doc := report.NewDocument(runID, generatedAt, results)
	console.Assessment(doc.Summary)

	formats := []report.Format{report.FormatHTML, report.FormatXLSX}
	if cfg.Reports.Parquet {
		formats = append(formats, report.FormatParquet)
	}
	files, err := report.WriteFiles(cfg.Reports.Dir, doc, formats...)
	if err != nil {
		return err
	}
	for _, file := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "Report written: %s\n", file)
	}

	if !cfg.Reports.Publish {
		return nil
	}
	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}
	publisher := &storage.Publisher{Store: store, Logger: logger}
	published, err := publisher.Publish(ctx, runID, generatedAt, files)
	if err != nil {
		return fmt.Errorf("publish reports: %w", err)
	}
	for _, info := range published {
		logger.Info("report uploaded", slog.String("bucket", store.Bucket()), slog.String("key", info.Key))
	}
	return nil
}
