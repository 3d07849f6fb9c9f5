package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/samirrijal/criticaltracks/internal/pkg/logging"
)

// Config holds all application configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Server    ServerConfig    `mapstructure:"server"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Log       LogConfig       `mapstructure:"log"`
}

// StoreConfig selects the snapshot store. Driver is "sqlite" or "postgres".
// For postgres, a non-empty DSN takes precedence over Database.
type StoreConfig struct {
	Driver   string         `mapstructure:"driver"`
	Path     string         `mapstructure:"path"`
	DSN      string         `mapstructure:"dsn"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// FilterConfig parameterises the density filter.
// A point is kept when at least Neighbors points (itself included)
// lie strictly closer than RadiusMeters.
type FilterConfig struct {
	Neighbors    int     `mapstructure:"neighbors"`
	RadiusMeters float64 `mapstructure:"radius_meters"`
}

type PipelineConfig struct {
	Strict          bool `mapstructure:"strict"`
	Workers         int  `mapstructure:"workers"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, an optional config file, environment
// variables and, when flags is non-nil, command-line flags (highest priority).
func Load(service string, flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	v := viper.New()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "criticaltracks.sqlite")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.database.host", "localhost")
	v.SetDefault("store.database.port", 5432)
	v.SetDefault("store.database.user", "tracks")
	v.SetDefault("store.database.password", "")
	v.SetDefault("store.database.dbname", "criticaltracks")
	v.SetDefault("store.database.sslmode", "disable")
	v.SetDefault("filter.neighbors", 3)
	v.SetDefault("filter.radius_meters", 100.0)
	v.SetDefault("pipeline.strict", false)
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.cache_ttl_seconds", 300)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "analysis-queue")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CRITICALTRACKS_FILTER_NEIGHBORS → filter.neighbors
	v.SetEnvPrefix("CRITICALTRACKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"store-driver": "store.driver",
	"neighbors":    "filter.neighbors",
	"radius":       "filter.radius_meters",
	"strict":       "pipeline.strict",
	"workers":      "pipeline.workers",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// bindFlags binds only the flags the caller defined; unset flags keep
// lower-priority values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN != "" {
			break
		}
		if c.Store.Database.Host == "" {
			errs = append(errs, "store.database.host is required")
		}
		if c.Store.Database.Port <= 0 || c.Store.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("store.database.port must be 1-65535, got %d", c.Store.Database.Port))
		}
		if c.Store.Database.DBName == "" {
			errs = append(errs, "store.database.dbname is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Filter.Neighbors < 1 {
		errs = append(errs, fmt.Sprintf("filter.neighbors must be at least 1, got %d", c.Filter.Neighbors))
	}
	if c.Filter.RadiusMeters <= 0 {
		errs = append(errs, fmt.Sprintf("filter.radius_meters must be positive, got %g", c.Filter.RadiusMeters))
	}
	if c.Pipeline.Workers < 1 {
		errs = append(errs, fmt.Sprintf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers))
	}
	if c.Pipeline.CacheTTLSeconds < 0 {
		errs = append(errs, "pipeline.cache_ttl_seconds must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, "log.level: "+err.Error())
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
