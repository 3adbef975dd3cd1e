// Package dbinit bootstraps a database from ordered SQL scripts (schema, then
// seed data). Applied scripts are recorded so re-running is a no-op.
package dbinit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const bookkeepingTable = "nlsql_applied_scripts"

type Script struct {
	Name string
	SQL  string
}

func (s Script) checksum() string {
	sum := sha256.Sum256([]byte(s.SQL))
	return hex.EncodeToString(sum[:])
}

// LoadScripts reads scripts from fsys in the given order. Script names are the
// base file names.
func LoadScripts(fsys fs.FS, paths ...string) ([]Script, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one script is required")
	}
	scripts := make([]Script, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read script %q: %w", p, err)
		}
		name := filepath.Base(p)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate script name %q", name)
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(string(raw)) == "" {
			return nil, fmt.Errorf("script %q is empty", p)
		}
		scripts = append(scripts, Script{Name: name, SQL: string(raw)})
	}
	return scripts, nil
}

// LoadFiles reads scripts from local paths, relative or absolute.
func LoadFiles(paths ...string) ([]Script, error) {
	scripts := make([]Script, 0, len(paths))
	for _, p := range paths {
		dir, file := filepath.Split(p)
		if dir == "" {
			dir = "."
		}
		loaded, err := LoadScripts(os.DirFS(dir), file)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, loaded...)
	}
	return scripts, nil
}

type Runner struct {
	Logger *slog.Logger
}

type Report struct {
	Applied []string
	Skipped []string
}

// Apply runs every script that is not yet recorded, each in its own
// transaction together with its bookkeeping row. A recorded script whose
// contents changed is an error.
func (r *Runner) Apply(ctx context.Context, db *sql.DB, scripts []Script) (Report, error) {
	var report Report
	if err := ensureBookkeepingTable(ctx, db); err != nil {
		return report, err
	}
	applied, err := listApplied(ctx, db)
	if err != nil {
		return report, err
	}

	for _, script := range scripts {
		checksum := script.checksum()
		if recorded, ok := applied[script.Name]; ok {
			if recorded != checksum {
				return report, fmt.Errorf("script %q changed since it was applied", script.Name)
			}
			report.Skipped = append(report.Skipped, script.Name)
			continue
		}
		if err := applyScript(ctx, db, script, checksum); err != nil {
			return report, err
		}
		report.Applied = append(report.Applied, script.Name)
		if r.Logger != nil {
			r.Logger.InfoContext(ctx, "sql script applied", slog.String("script", script.Name))
		}
	}
	return report, nil
}

func ensureBookkeepingTable(ctx context.Context, db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS ` + bookkeepingTable + ` (
	name TEXT PRIMARY KEY,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure bookkeeping table: %w", err)
	}
	return nil
}

func listApplied(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, checksum FROM `+bookkeepingTable+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query applied scripts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := map[string]string{}
	for rows.Next() {
		var name, checksum string
		if err := rows.Scan(&name, &checksum); err != nil {
			return nil, fmt.Errorf("scan applied script: %w", err)
		}
		applied[name] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return applied, nil
}

func applyScript(ctx context.Context, db *sql.DB, script Script, checksum string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script.SQL); err != nil {
		return fmt.Errorf("apply script %q: %w", script.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+bookkeepingTable+` (name, checksum) VALUES ($1, $2)`, script.Name, checksum); err != nil {
		return fmt.Errorf("record script %q: %w", script.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit script %q: %w", script.Name, err)
	}
	return nil
}
