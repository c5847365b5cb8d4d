package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/2beens/tricoach/internal/training"

	"github.com/BurntSushi/toml"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendSheets   = "sheets"

	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// browser origins allowed to call the API
	CorsAllowedOrigins []string `toml:"cors_allowed_origins"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// prometheus
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// workout store
	StoreBackend            string `toml:"store_backend"`
	StoreRetryAttempts      int    `toml:"store_retry_attempts"`
	SheetsSpreadsheetID     string `toml:"sheets_spreadsheet_id"`
	SheetsRange             string `toml:"sheets_range"`
	SheetsCredentialsPath   string `toml:"sheets_credentials_path"`
	WorkoutsWritesPerMinute int    `toml:"workouts_writes_per_minute"`
	// analysis
	SnapshotCacheBackend string             `toml:"snapshot_cache_backend"`
	SnapshotCacheTTL     Duration           `toml:"snapshot_cache_ttl"`
	SnapshotCacheSizeMB  int                `toml:"snapshot_cache_size_mb"`
	DeloadCadence        int                `toml:"deload_cadence"`
	Timezone             string             `toml:"timezone"`
	EFScaling            training.EFScaling `toml:"ef_scaling"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		if t.Development == nil {
			return nil, errors.New("development config missing")
		}
		t.Development.Environment = "development"
		return t.Development, nil
	case "prod", "production":
		if t.Production == nil {
			return nil, errors.New("production config missing")
		}
		t.Production.Environment = "production"
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path and returns the section of env with defaults applied.
func Load(env, path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(env, string(content))
}

func Parse(env, content string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(content, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.StoreBackend == "" {
		c.StoreBackend = StoreBackendPostgres
	}
	if c.StoreRetryAttempts <= 0 {
		c.StoreRetryAttempts = 3
	}
	if c.SheetsRange == "" {
		c.SheetsRange = "Log!A:L"
	}
	if c.SnapshotCacheBackend == "" {
		c.SnapshotCacheBackend = CacheBackendMemory
	}
	if c.SnapshotCacheTTL.Duration == 0 {
		c.SnapshotCacheTTL.Duration = 7 * 24 * time.Hour
	}
	// a negative cadence in the file disables deload weeks
	switch {
	case c.DeloadCadence == 0:
		c.DeloadCadence = training.DefaultDeloadCadence
	case c.DeloadCadence < 0:
		c.DeloadCadence = 0
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	c.EFScaling = c.EFScaling.WithDefaults()
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" {
			return errors.New("postgres store needs postgres_host and postgres_db_name")
		}
	case StoreBackendSheets:
		if c.SheetsSpreadsheetID == "" || c.SheetsCredentialsPath == "" {
			return errors.New("sheets store needs sheets_spreadsheet_id and sheets_credentials_path")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.StoreBackend)
	}

	switch c.SnapshotCacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.RedisHost == "" || c.RedisPort == "" {
			return errors.New("redis snapshot cache needs redis_host and redis_port")
		}
	default:
		return fmt.Errorf("unknown snapshot cache backend: %s", c.SnapshotCacheBackend)
	}

	if c.WorkoutsWritesPerMinute > 0 && (c.RedisHost == "" || c.RedisPort == "") {
		return errors.New("workouts write rate limit needs redis_host and redis_port")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %s: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the timezone used to decide what "today" is.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Duration lets TOML hold values like "168h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}
