// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
	BackofficeAPIKey     string        // shared secret for /admin; "" = no check (dev)
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// DirectoryConfig holds entity/KYC directory client settings.
type DirectoryConfig struct {
	BaseURL      string        // "" = use the in-memory stub (dev)
	FetchTimeout time.Duration // default 2s
	CacheTTL     time.Duration // default 5m
}

// LedgerConfig holds ledger behaviour settings.
type LedgerConfig struct {
	HistoryPageSize    int // default page size for history listings
	MaxHistoryPageSize int // hard ceiling on requested page sizes
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Directory DirectoryConfig
	Ledger    LedgerConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}
	if c.IsProd() && c.Directory.BaseURL == "" {
		errs = append(errs, errors.New("DIRECTORY_BASE_URL must be set in production"))
	}
	if c.IsProd() && c.Server.BackofficeAPIKey == "" {
		errs = append(errs, errors.New("BACKOFFICE_API_KEY must be set in production"))
	}

	if c.Ledger.HistoryPageSize <= 0 {
		errs = append(errs, fmt.Errorf(
			"LEDGER_HISTORY_PAGE_SIZE must be positive, got %d", c.Ledger.HistoryPageSize))
	}
	if c.Ledger.MaxHistoryPageSize < c.Ledger.HistoryPageSize {
		errs = append(errs, fmt.Errorf(
			"LEDGER_MAX_HISTORY_PAGE_SIZE (%d) must be >= LEDGER_HISTORY_PAGE_SIZE (%d)",
			c.Ledger.MaxHistoryPageSize, c.Ledger.HistoryPageSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	// .env is optional; real deployments set variables in the environment.
	_ = godotenv.Load()

	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
		BackofficeAPIKey:     getEnv("BACKOFFICE_API_KEY", ""),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "loanledger"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── Entity directory ──────────────────────────────────────────────────────
	cfg.Directory = DirectoryConfig{
		BaseURL:      getEnv("DIRECTORY_BASE_URL", ""),
		FetchTimeout: getDuration("DIRECTORY_FETCH_TIMEOUT", 2*time.Second),
		CacheTTL:     getDuration("DIRECTORY_CACHE_TTL", 5*time.Minute),
	}

	// ── Ledger ────────────────────────────────────────────────────────────────
	pageSize, err := getInt("LEDGER_HISTORY_PAGE_SIZE", 50)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_HISTORY_PAGE_SIZE: %w", err)
	}
	maxPageSize, err := getInt("LEDGER_MAX_HISTORY_PAGE_SIZE", 500)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_MAX_HISTORY_PAGE_SIZE: %w", err)
	}

	cfg.Ledger = LedgerConfig{
		HistoryPageSize:    pageSize,
		MaxHistoryPageSize: maxPageSize,
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Log warning and fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
