// Package schema loads the database schema definition that is embedded in
// every inference request. The file is read once per Loader and cached for the
// lifetime of the process.
package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// ErrResourceMissing marks a startup resource (schema or database file) that
// does not exist. Callers treat it as fatal.
var ErrResourceMissing = errors.New("required resource is missing")

type Loader struct {
	path string

	once sync.Once
	text string
	err  error
}

func NewLoader(path string) *Loader {
	return &Loader{path: strings.TrimSpace(path)}
}

func (l *Loader) Path() string {
	return l.path
}

// Text returns the schema contents, reading the file on first use only. A
// failed read is cached too: the schema is immutable process-wide state.
func (l *Loader) Text() (string, error) {
	l.once.Do(func() {
		l.text, l.err = readSchema(l.path)
	})
	return l.text, l.err
}

func readSchema(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("schema path is empty: %w", ErrResourceMissing)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("schema file %q not found (set NLSQL_SCHEMA_PATH): %w", path, ErrResourceMissing)
		}
		return "", fmt.Errorf("read schema file %q: %w", path, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("schema file %q is empty: %w", path, ErrResourceMissing)
	}
	return text, nil
}

// RequireFile reports ErrResourceMissing when a file-backed database is absent,
// so a typo in the path is not silently turned into a new empty database.
func RequireFile(path, hint string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("database file %q not found (%s): %w", path, hint, ErrResourceMissing)
		}
		return fmt.Errorf("stat database file %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("database path %q is a directory: %w", path, ErrResourceMissing)
	}
	return nil
}
