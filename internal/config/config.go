// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Warehouse backend names accepted in WAREHOUSE_BACKEND.
const (
	BackendClickHouse = "clickhouse"
	BackendDatabricks = "databricks"
	BackendDuckDB     = "duckdb"
)

// ClickHouseConfig holds native-protocol connection settings.
type ClickHouseConfig struct {
	Addr     string // host:port, e.g. "localhost:9000"
	Database string
	Username string
	Password string
	UseTLS   bool
}

// DatabricksConfig holds SQL Statement Execution API settings.
type DatabricksConfig struct {
	Host        string // workspace base URL
	Token       string
	WarehouseID string
}

// Config holds the configuration for the gateway server and CLI.
type Config struct {
	CatalogPath       string // path to the generated catalog document
	CatalogReloadCron string // cron expression for periodic reload; empty disables
	HistoryDBPath     string // path to the SQLite run-history metastore
	ListenAddr        string // HTTP listen address (default ":8080")
	LogLevel          string // log level: debug, info, warn, error (default "info")
	Env               string // environment: "development" (default) or "production"

	// Warehouse selection and per-backend settings.
	WarehouseBackend string
	ClickHouse       ClickHouseConfig
	Databricks       DatabricksConfig
	DuckDBPath       string // empty means in-memory

	// Execution caps applied to every run.
	MaxResultRows    int           // default 10000
	MaxExecutionTime time.Duration // default 60s

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		CatalogPath:       os.Getenv("CATALOG_PATH"),
		CatalogReloadCron: os.Getenv("CATALOG_RELOAD_CRON"),
		HistoryDBPath:     os.Getenv("HISTORY_DB_PATH"),
		ListenAddr:        os.Getenv("LISTEN_ADDR"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		Env:               os.Getenv("ENV"),
		WarehouseBackend:  strings.ToLower(os.Getenv("WAREHOUSE_BACKEND")),
		DuckDBPath:        os.Getenv("DUCKDB_PATH"),
		ClickHouse: ClickHouseConfig{
			Addr:     os.Getenv("CLICKHOUSE_ADDR"),
			Database: os.Getenv("CLICKHOUSE_DATABASE"),
			Username: os.Getenv("CLICKHOUSE_USERNAME"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
			UseTLS:   parseBoolEnvDefault("CLICKHOUSE_TLS", false),
		},
		Databricks: DatabricksConfig{
			Host:        os.Getenv("DATABRICKS_HOST"),
			Token:       os.Getenv("DATABRICKS_TOKEN"),
			WarehouseID: os.Getenv("DATABRICKS_WAREHOUSE_ID"),
		},
	}

	// Execution caps
	if v := os.Getenv("MAX_RESULT_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_RESULT_ROWS must be a positive integer, got %q", v)
		}
		cfg.MaxResultRows = n
	}
	if v := os.Getenv("MAX_EXECUTION_TIME_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_EXECUTION_TIME_SECONDS must be a positive integer, got %q", v)
		}
		cfg.MaxExecutionTime = time.Duration(n) * time.Second
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = "catalog/catalog.json"
	}
	if cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = "lakegate_history.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.WarehouseBackend == "" {
		cfg.WarehouseBackend = BackendDuckDB
		cfg.Warnings = append(cfg.Warnings, "WAREHOUSE_BACKEND not set — defaulting to the local duckdb backend")
	}
	if cfg.MaxResultRows == 0 {
		cfg.MaxResultRows = 10000
	}
	if cfg.MaxExecutionTime == 0 {
		cfg.MaxExecutionTime = 60 * time.Second
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if err := cfg.validateBackend(); err != nil {
		return nil, err
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.WarehouseBackend == BackendDuckDB {
			return nil, fmt.Errorf("the duckdb backend is for local development only (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

// validateBackend checks that the selected warehouse backend is known and has
// the settings it needs.
func (c *Config) validateBackend() error {
	switch c.WarehouseBackend {
	case BackendClickHouse:
		if c.ClickHouse.Addr == "" {
			return fmt.Errorf("CLICKHOUSE_ADDR is required when WAREHOUSE_BACKEND=clickhouse")
		}
	case BackendDatabricks:
		if c.Databricks.Host == "" || c.Databricks.Token == "" || c.Databricks.WarehouseID == "" {
			return fmt.Errorf("DATABRICKS_HOST, DATABRICKS_TOKEN and DATABRICKS_WAREHOUSE_ID are required when WAREHOUSE_BACKEND=databricks")
		}
	case BackendDuckDB:
		// No required settings; empty DUCKDB_PATH means in-memory.
	default:
		return fmt.Errorf("unknown WAREHOUSE_BACKEND %q: must be one of clickhouse, databricks, duckdb", c.WarehouseBackend)
	}
	return nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
