package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"go-co2-emissions-dashboard/internal/emissions"
)

// Data source kinds accepted in APP_DATA_SOURCE.
const (
	SourceFile   = "file"
	SourceHTTP   = "http"
	SourceGCS    = "gcs"
	SourceSQLite = "sqlite"
	SourceMySQL  = "mysql"
)

// Config holds runtime configuration for the dashboard service and CLI.
type Config struct {
	ListenAddr      string        `env:"APP_LISTEN_ADDR,default=:8050"`
	ReadTimeout     time.Duration `env:"APP_READ_TIMEOUT,default=10s"`
	WriteTimeout    time.Duration `env:"APP_WRITE_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT,default=10s"`

	// DataSource is one of file, http, gcs, sqlite or mysql. Empty infers it
	// from DataPath.
	DataSource     string        `env:"APP_DATA_SOURCE"`
	DataPath       string        `env:"APP_DATA_PATH,default=data/co2_emissions.csv"`
	DataTable      string        `env:"APP_DATA_TABLE,default=emissions"`
	FetchTimeout   time.Duration `env:"APP_DATA_FETCH_TIMEOUT,default=20s"`
	FetchRetries   int           `env:"APP_DATA_FETCH_RETRIES,default=2"`
	ReloadInterval time.Duration `env:"APP_DATA_RELOAD_INTERVAL,default=0s"`
	// Excluded lists aggregate rows dropped on load. Unset keeps the built-in list.
	Excluded []string `env:"APP_DATA_EXCLUDED"`

	DefaultYear        int    `env:"APP_DEFAULT_YEAR,default=1996"`
	DefaultMetric      string `env:"APP_DEFAULT_METRIC,default=total"`
	TopN               int    `env:"APP_TOP_N,default=10"`
	CountryAliasesFile string `env:"APP_COUNTRY_ALIASES_FILE"`

	ViewsSQLitePath string `env:"APP_VIEWS_SQLITE_PATH"`

	DBHost         string        `env:"APP_DB_HOST,default=127.0.0.1"`
	DBPort         int           `env:"APP_DB_PORT,default=3306"`
	DBUser         string        `env:"APP_DB_USER,default=co2"`
	DBPassword     string        `env:"APP_DB_PASSWORD"`
	DBName         string        `env:"APP_DB_NAME,default=co2"`
	DBConnTimeout  time.Duration `env:"APP_DB_CONN_TIMEOUT,default=5s"`
	DBQueryTimeout time.Duration `env:"APP_DB_QUERY_TIMEOUT,default=10s"`

	SnapshotDir       string `env:"APP_SNAPSHOT_DIR,default=./snapshots"`
	SnapshotGCSBucket string `env:"APP_SNAPSHOT_GCS_BUCKET"`

	LogLevel  string `env:"APP_LOG_LEVEL,default=info"`
	LogFormat string `env:"APP_LOG_FORMAT,default=text"`
}

// Load reads env-file defaults and then processes the environment.
func Load(ctx context.Context) (Config, error) {
	loadConfigDefaultsFromFile()
	loadSecretsDefaultsFromFile()
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith processes configuration from the given lookuper only.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	cfg.DataSource = strings.ToLower(strings.TrimSpace(cfg.DataSource))
	if cfg.DataSource == "" {
		cfg.DataSource = InferSource(cfg.DataPath)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot check on its own.
func (c Config) Validate() error {
	switch c.DataSource {
	case SourceFile, SourceHTTP, SourceGCS, SourceSQLite, SourceMySQL:
	default:
		return fmt.Errorf("unknown data source %q", c.DataSource)
	}
	if _, err := emissions.ParseMetric(c.DefaultMetric); err != nil {
		return fmt.Errorf("APP_DEFAULT_METRIC: %w", err)
	}
	if c.DefaultYear <= 0 {
		return fmt.Errorf("APP_DEFAULT_YEAR must be positive, got %d", c.DefaultYear)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("APP_TOP_N must be positive, got %d", c.TopN)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("APP_DATA_FETCH_RETRIES must not be negative, got %d", c.FetchRetries)
	}
	if c.ReloadInterval < 0 {
		return fmt.Errorf("APP_DATA_RELOAD_INTERVAL must not be negative")
	}
	return nil
}

// InferSource guesses the source kind from a data path or URL.
func InferSource(path string) string {
	p := strings.ToLower(strings.TrimSpace(path))
	switch {
	case strings.HasPrefix(p, "http://"), strings.HasPrefix(p, "https://"):
		return SourceHTTP
	case strings.HasPrefix(p, "gs://"):
		return SourceGCS
	case strings.HasSuffix(p, ".db"), strings.HasSuffix(p, ".sqlite"), strings.HasSuffix(p, ".sqlite3"):
		return SourceSQLite
	default:
		return SourceFile
	}
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./co2-dashboard.env",
		"/etc/default/co2-dashboard",
	}

	for _, candidate := range bootstrapCandidates {
		_ = applyEnvDefaultsFromFile(absPath(candidate))
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/co2-dashboard/config.env")

	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(absPath(candidate)); err == nil {
			return
		}
	}
}

func loadSecretsDefaultsFromFile() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("APP_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("APP_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "app-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	candidates = append(candidates, "/etc/co2-dashboard/secrets.env")
	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(candidate); err == nil {
			return
		}
	}
}

func absPath(candidate string) string {
	if filepath.IsAbs(candidate) {
		return candidate
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, candidate)
	}
	return candidate
}

// applyEnvDefaultsFromFile sets the keys of a dotenv file unless the key is
// already set in the environment.
func applyEnvDefaultsFromFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for key, val := range values {
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
	return nil
}

// MySQLDSN returns a mysql driver DSN with safe defaults for TCP access.
func (c Config) MySQLDSN() string {
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", c.DBConnTimeout.String())
	params.Set("readTimeout", c.DBQueryTimeout.String())
	params.Set("writeTimeout", c.DBQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, params.Encode())
}
