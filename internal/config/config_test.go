package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if cfg.ListenAddr != ":8050" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DefaultYear != 1996 || cfg.DefaultMetric != "total" {
		t.Errorf("default selection = %d/%s", cfg.DefaultYear, cfg.DefaultMetric)
	}
	if cfg.TopN != 10 {
		t.Errorf("TopN = %d", cfg.TopN)
	}
	if cfg.DataSource != SourceFile {
		t.Errorf("DataSource = %q, want file", cfg.DataSource)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %s", cfg.ReadTimeout)
	}
	if cfg.Excluded != nil {
		t.Errorf("Excluded should be unset, got %v", cfg.Excluded)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"APP_DATA_PATH":            "https://example.org/co2.csv",
		"APP_DATA_EXCLUDED":        "Global,World",
		"APP_DATA_RELOAD_INTERVAL": "5m",
		"APP_TOP_N":                "5",
		"APP_DB_PORT":              "3307",
	}))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if cfg.DataSource != SourceHTTP {
		t.Errorf("DataSource = %q, want http", cfg.DataSource)
	}
	if len(cfg.Excluded) != 2 || cfg.Excluded[1] != "World" {
		t.Errorf("Excluded = %v", cfg.Excluded)
	}
	if cfg.ReloadInterval != 5*time.Minute {
		t.Errorf("ReloadInterval = %s", cfg.ReloadInterval)
	}
	if cfg.TopN != 5 || cfg.DBPort != 3307 {
		t.Errorf("TopN=%d DBPort=%d", cfg.TopN, cfg.DBPort)
	}
}

func TestLoadWithRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown source": {"APP_DATA_SOURCE": "ftp"},
		"zero top n":     {"APP_TOP_N": "0"},
		"negative retry": {"APP_DATA_FETCH_RETRIES": "-1"},
		"bad duration":   {"APP_READ_TIMEOUT": "soon"},
		"bad metric":     {"APP_DEFAULT_METRIC": "methane"},
		"zero year":      {"APP_DEFAULT_YEAR": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadWith(context.Background(), envconfig.MapLookuper(env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestInferSource(t *testing.T) {
	tests := map[string]string{
		"data/co2.csv":         SourceFile,
		"HTTPS://host/co2.csv": SourceHTTP,
		"gs://bucket/co2.csv":  SourceGCS,
		"/var/lib/co2/data.db": SourceSQLite,
		"seed.sqlite3":         SourceSQLite,
		"":                     SourceFile,
	}
	for in, want := range tests {
		if got := InferSource(in); got != want {
			t.Errorf("InferSource(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyEnvDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "co2-dashboard.env")
	content := "# comment\nAPP_TEST_ONE=\"quoted\"\nexport APP_TEST_TWO=two\nAPP_TEST_KEEP=file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_TEST_KEEP", "env")
	t.Setenv("APP_TEST_ONE", "")
	t.Setenv("APP_TEST_TWO", "")

	if err := applyEnvDefaultsFromFile(path); err != nil {
		t.Fatalf("applyEnvDefaultsFromFile: %v", err)
	}
	if got := os.Getenv("APP_TEST_ONE"); got != "quoted" {
		t.Errorf("APP_TEST_ONE = %q", got)
	}
	if got := os.Getenv("APP_TEST_TWO"); got != "two" {
		t.Errorf("APP_TEST_TWO = %q", got)
	}
	if got := os.Getenv("APP_TEST_KEEP"); got != "env" {
		t.Errorf("existing value overridden: %q", got)
	}
}

func TestApplyEnvDefaultsFromFileRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "co2-dashboard.env")
	if err := os.WriteFile(path, []byte("APP_TEST_BAD=one\nAPP!KEY=two\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_TEST_BAD", "")

	if err := applyEnvDefaultsFromFile(path); err == nil {
		t.Fatal("expected a parse error")
	}
	if got := os.Getenv("APP_TEST_BAD"); got != "" {
		t.Errorf("malformed file applied APP_TEST_BAD = %q", got)
	}
	if err := applyEnvDefaultsFromFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := Config{
		DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: 3306, DBName: "co2",
		DBConnTimeout: 5 * time.Second, DBQueryTimeout: 10 * time.Second,
	}
	want := "u:p@tcp(db:3306)/co2?charset=utf8mb4&parseTime=true&readTimeout=10s&timeout=5s&writeTimeout=10s"
	if got := cfg.MySQLDSN(); got != want {
		t.Errorf("MySQLDSN() = %q, want %q", got, want)
	}
}
