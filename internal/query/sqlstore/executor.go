// Package sqlstore executes generated SQL against a database/sql backend:
// SQLite or DuckDB files, or a PostgreSQL DSN.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nlsql/nlsql/internal/config"
	"github.com/nlsql/nlsql/internal/observability"
	"github.com/nlsql/nlsql/internal/query"
	"github.com/nlsql/nlsql/internal/schema"
)

type OpenFunc func(driver, dsn string) (*sql.DB, error)

type Config struct {
	Driver string
	DSN    string
	// AllowMissing skips the startup check that a file-backed database
	// exists. Only the bootstrap path sets it.
	AllowMissing bool
}

type Executor struct {
	driver string
	dsn    string
	open   OpenFunc
}

func New(cfg Config) (*Executor, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	dsn := strings.TrimSpace(cfg.DSN)
	switch driver {
	case config.DriverSQLite, config.DriverDuckDB, config.DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if IsFileBacked(driver) && !cfg.AllowMissing {
		if err := schema.RequireFile(dsn, "set NLSQL_DB_DSN or run `nlsql init-db`"); err != nil {
			return nil, err
		}
	}
	return &Executor{driver: driver, dsn: dsn, open: sql.Open}, nil
}

// NewWithOpener builds an Executor around a custom opener, e.g. sqlmock.
func NewWithOpener(driver, dsn string, open OpenFunc) (*Executor, error) {
	if open == nil {
		return nil, fmt.Errorf("open func is required")
	}
	return &Executor{driver: driver, dsn: dsn, open: open}, nil
}

func IsFileBacked(driver string) bool {
	return driver == config.DriverSQLite || driver == config.DriverDuckDB
}

func (e *Executor) Driver() string {
	return e.driver
}

func (e *Executor) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	start := time.Now()
	result, err := e.execute(ctx, sqlText)
	observability.ObserveQueryExecution(time.Since(start), err)
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: err}
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (e *Executor) execute(ctx context.Context, sqlText string) (query.Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return query.Result{}, errors.New("sql is required")
	}

	db, err := e.connect()
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, err
	}

	return query.Result{Columns: columns, Rows: resultRows}, nil
}

// Tables lists the user tables of the store. It doubles as a connectivity
// probe before batch runs.
func (e *Executor) Tables(ctx context.Context) ([]string, error) {
	result, err := e.Execute(ctx, tablesQuery(e.driver))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) == 0 {
			continue
		}
		names = append(names, fmt.Sprint(row[0]))
	}
	return names, nil
}

// Open hands out a single-connection handle for multi-statement work such as
// bootstrap. The caller closes it.
func (e *Executor) Open() (*sql.DB, error) {
	return e.connect()
}

func (e *Executor) connect() (*sql.DB, error) {
	db, err := e.open(e.driver, e.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", e.driver, err)
	}
	// One connection per call, released on Close.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)
	return db, nil
}

func tablesQuery(driver string) string {
	if driver == config.DriverSQLite {
		return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	}
	return `SELECT table_name FROM information_schema.tables WHERE table_schema NOT IN ('information_schema', 'pg_catalog') ORDER BY table_name`
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
