package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("nlsql", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Observability.LogPretty {
		t.Fatal("LogPretty should default to true in dev")
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Fatalf("Store.Driver = %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "banking_system.db" {
		t.Fatalf("Store.DSN = %q", cfg.Store.DSN)
	}
	if cfg.Schema.Path != "data/banking_schema_sqlite.sql" {
		t.Fatalf("Schema.Path = %q", cfg.Schema.Path)
	}
	if cfg.AI.Model != "llama-3.1-8b-instant" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.APIKey != "" {
		t.Fatalf("AI.APIKey = %q, want empty", cfg.AI.APIKey)
	}
	if cfg.Harness.Parallelism != 1 {
		t.Fatalf("Harness.Parallelism = %d", cfg.Harness.Parallelism)
	}
	if cfg.Reports.Dir != "reports" {
		t.Fatalf("Reports.Dir = %q", cfg.Reports.Dir)
	}
	if cfg.Reports.Publish {
		t.Fatal("Reports.Publish should default to false")
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"NLSQL_PROFILE": "prod"})
	cfg, err := Load("nlsql", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Observability.LogJSON {
		t.Fatal("LogJSON should default to true in prod")
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("ObjectStore.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"NLSQL_PROFILE":                "test",
		"NLSQL_SERVICE_NAME":           "nlsql-custom",
		"NLSQL_HTTP_ADDR":              ":9999",
		"NLSQL_HTTP_READ_TIMEOUT":      "2s",
		"NLSQL_LOG_LEVEL":              "error",
		"NLSQL_SCHEMA_PATH":            "/srv/schema.sql",
		"NLSQL_DB_DRIVER":              "DuckDB",
		"NLSQL_DB_DSN":                 "/srv/bank.duckdb",
		"NLSQL_AI_BASE_URL":            "https://api.example.com",
		"NLSQL_AI_API_KEY":             "secret-key",
		"NLSQL_AI_MODEL":               "gpt-5.2",
		"NLSQL_AI_TEMPERATURE":         "0.3",
		"NLSQL_AI_TIMEOUT":             "21s",
		"NLSQL_TEST_CASES_PATH":        "cases.csv",
		"NLSQL_TEST_PARALLELISM":       "4",
		"NLSQL_REPORTS_DIR":            "/tmp/out",
		"NLSQL_REPORTS_PARQUET":        "false",
		"NLSQL_REPORTS_PUBLISH":        "true",
		"NLSQL_OBJECTSTORE_ENDPOINT":   "s3.example.com",
		"NLSQL_OBJECTSTORE_BUCKET":     "reports-prod",
		"NLSQL_OBJECTSTORE_USE_SSL":    "true",
		"NLSQL_OBJECTSTORE_PREFIX":     "nightly",
		"NLSQL_OBJECTSTORE_ACCESS_KEY": "abc",
		"NLSQL_OBJECTSTORE_SECRET_KEY": "def",
	})
	cfg, err := Load("nlsql", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "nlsql-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Schema.Path != "/srv/schema.sql" {
		t.Fatalf("Schema.Path = %q", cfg.Schema.Path)
	}
	if cfg.Store.Driver != DriverDuckDB {
		t.Fatalf("Store.Driver = %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "/srv/bank.duckdb" {
		t.Fatalf("Store.DSN = %q", cfg.Store.DSN)
	}
	if cfg.AI.BaseURL != "https://api.example.com" {
		t.Fatalf("AI.BaseURL = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "gpt-5.2" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.Harness.CasesPath != "cases.csv" {
		t.Fatalf("Harness.CasesPath = %q", cfg.Harness.CasesPath)
	}
	if cfg.Harness.Parallelism != 4 {
		t.Fatalf("Harness.Parallelism = %d", cfg.Harness.Parallelism)
	}
	if cfg.Reports.Dir != "/tmp/out" {
		t.Fatalf("Reports.Dir = %q", cfg.Reports.Dir)
	}
	if cfg.Reports.Parquet {
		t.Fatal("Reports.Parquet = true, want false")
	}
	if !cfg.Reports.Publish {
		t.Fatal("Reports.Publish = false, want true")
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.ObjectStore.Bucket != "reports-prod" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL = false, want true")
	}
	if cfg.ObjectStore.Prefix != "nightly" {
		t.Fatalf("ObjectStore.Prefix = %q", cfg.ObjectStore.Prefix)
	}
}

func TestLoadAcceptsLegacyVariables(t *testing.T) {
	cfg, err := Load("nlsql", mapLookup(map[string]string{
		"GROQ_API_KEY": "gsk-legacy",
		"DB_PATH":      "src/banking_system.db",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.APIKey != "gsk-legacy" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.Store.DSN != "src/banking_system.db" {
		t.Fatalf("Store.DSN = %q", cfg.Store.DSN)
	}

	cfg, err = Load("nlsql", mapLookup(map[string]string{
		"GROQ_API_KEY":     "gsk-legacy",
		"NLSQL_AI_API_KEY": "preferred",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.APIKey != "preferred" {
		t.Fatalf("AI.APIKey = %q, want NLSQL_AI_API_KEY to win", cfg.AI.APIKey)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"NLSQL_PROFILE": "oops"},
		{"NLSQL_HTTP_READ_TIMEOUT": "NaN"},
		{"NLSQL_DB_DRIVER": "oracle"},
		{"NLSQL_DB_DSN": ""},
		{"NLSQL_AI_TEMPERATURE": "bad"},
		{"NLSQL_TEST_PARALLELISM": "oops"},
		{"NLSQL_TEST_PARALLELISM": "0"},
		{"NLSQL_REPORTS_PUBLISH": "not-bool"},
		{"NLSQL_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("nlsql", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
