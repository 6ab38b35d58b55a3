// Package config loads broker configuration from defaults, an optional
// YAML file, an optional .env file and WAF_* environment variables, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/logging"
)

// Run modes
const (
	ModeAPI     = "api"
	ModeMonitor = "monitor"
	ModeAll     = "all"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Lock backends. LockAuto picks the storage driver's native lock.
const (
	LockAuto     = ""
	LockNone     = "none"
	LockRedis    = "redis"
	LockPostgres = "postgres"
)

// Config is the complete broker configuration.
type Config struct {
	RunMode   string           `yaml:"run_mode"`
	Log       logging.Config   `yaml:"log"`
	Server    ServerConfig     `yaml:"server"`
	Admin     AdminConfig      `yaml:"admin"`
	Site      domain.Site      `yaml:"site"`
	Endpoints domain.Endpoints `yaml:"endpoints"`
	Client    ClientConfig     `yaml:"client"`
	Storage   StorageConfig    `yaml:"storage"`
	Secrets   SecretsConfig    `yaml:"secrets"`
	Monitor   MonitorConfig    `yaml:"monitor"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// ServerConfig configures the admin HTTP API.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AdminConfig configures admin login. An empty PasswordHash disables login.
type AdminConfig struct {
	PasswordHash string        `yaml:"password_hash"` // bcrypt
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

// ClientConfig tunes the remote API client.
type ClientConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxRedirects  int           `yaml:"max_redirects"`
	RequestBudget time.Duration `yaml:"request_budget"`
	RateLimit     float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst     int           `yaml:"rate_burst"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	LockWait      time.Duration `yaml:"lock_wait"`
}

// StorageConfig selects the settings backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
	Lock        string `yaml:"lock"`
}

// SecretsConfig selects where the installation secret comes from. The
// static value wins, then the OS keyring, then a generated secret kept
// in the settings store.
type SecretsConfig struct {
	InstallationSecret string `yaml:"installation_secret"`
	Keyring            bool   `yaml:"keyring"`
	KeyringService     string `yaml:"keyring_service"`
}

// MonitorConfig schedules the periodic protection status check.
type MonitorConfig struct {
	Schedule string        `yaml:"schedule"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a configuration that runs a single sqlite-backed
// instance against the hosted endpoints.
func Default() *Config {
	return &Config{
		RunMode: ModeAll,
		Log:     logging.DefaultConfig(),
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
		},
		Admin: AdminConfig{
			SessionTTL: 24 * time.Hour,
		},
		Endpoints: domain.DefaultEndpoints(),
		Client: ClientConfig{
			Timeout:      30 * time.Second,
			MaxRedirects: 5,
			LockTTL:      30 * time.Second,
			LockWait:     10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:      DriverSQLite,
			SQLitePath:  "wafbroker.db",
			RedisPrefix: "wafbroker:",
		},
		Monitor: MonitorConfig{
			Schedule: "@daily",
			LockTTL:  5 * time.Minute,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Options controls where Load looks for configuration.
type Options struct {
	// Path is a YAML file. Empty skips the file.
	Path string

	// EnvFile is loaded into the process environment before overrides
	// are read. Defaults to ".env"; a missing file is not an error.
	EnvFile string
}

// Load builds the configuration and validates it.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", opts.Path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", opts.Path, err)
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %q: %w", envFile, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envOverrides reads WAF_* variables, collecting parse errors.
type envOverrides struct {
	errs []error
}

func (e *envOverrides) str(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func (e *envOverrides) list(name string, dst *[]string) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func (e *envOverrides) integer(name string, dst *int) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = n
	}
}

func (e *envOverrides) float(name string, dst *float64) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = f
	}
}

func (e *envOverrides) boolean(name string, dst *bool) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = b
	}
}

func (e *envOverrides) duration(name string, dst *time.Duration) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = d
	}
}

func applyEnvOverrides(cfg *Config) error {
	e := &envOverrides{}

	e.str("RUN_MODE", &cfg.RunMode)
	e.str("WAF_RUN_MODE", &cfg.RunMode)

	e.str("WAF_LOG_LEVEL", &cfg.Log.Level)
	e.str("WAF_LOG_FORMAT", &cfg.Log.Format)
	e.str("WAF_LOG_OUTPUT", &cfg.Log.Output)
	e.boolean("WAF_DEBUG", &cfg.Log.Debug)

	e.str("WAF_HOST", &cfg.Server.Host)
	e.integer("WAF_PORT", &cfg.Server.Port)
	e.list("WAF_ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)
	e.duration("WAF_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	e.str("WAF_ADMIN_PASSWORD_HASH", &cfg.Admin.PasswordHash)
	e.str("WAF_JWT_SECRET", &cfg.Admin.JWTSecret)
	e.duration("WAF_SESSION_TTL", &cfg.Admin.SessionTTL)

	e.str("WAF_SITE_URL", &cfg.Site.URL)
	e.str("WAF_SITE_DOMAIN", &cfg.Site.Domain)
	e.str("WAF_SITE_SALT", &cfg.Site.Salt)

	e.str("WAF_AUTH_URL", &cfg.Endpoints.Auth)
	e.str("WAF_CONFIG_URL", &cfg.Endpoints.Config)
	e.str("WAF_BILLING_URL", &cfg.Endpoints.Billing)

	e.duration("WAF_CLIENT_TIMEOUT", &cfg.Client.Timeout)
	e.integer("WAF_CLIENT_MAX_REDIRECTS", &cfg.Client.MaxRedirects)
	e.duration("WAF_REQUEST_BUDGET", &cfg.Client.RequestBudget)
	e.float("WAF_RATE_LIMIT", &cfg.Client.RateLimit)
	e.integer("WAF_RATE_BURST", &cfg.Client.RateBurst)

	e.str("WAF_STORAGE_DRIVER", &cfg.Storage.Driver)
	e.str("WAF_SQLITE_PATH", &cfg.Storage.SQLitePath)
	e.str("WAF_DATABASE_URL", &cfg.Storage.PostgresURL)
	e.str("WAF_REDIS_URL", &cfg.Storage.RedisURL)
	e.str("WAF_REDIS_PREFIX", &cfg.Storage.RedisPrefix)
	e.str("WAF_STORAGE_LOCK", &cfg.Storage.Lock)

	e.str("WAF_INSTALLATION_SECRET", &cfg.Secrets.InstallationSecret)
	e.boolean("WAF_KEYRING", &cfg.Secrets.Keyring)
	e.str("WAF_KEYRING_SERVICE", &cfg.Secrets.KeyringService)

	e.str("WAF_STATUS_SCHEDULE", &cfg.Monitor.Schedule)
	e.boolean("WAF_METRICS_ENABLED", &cfg.Metrics.Enabled)

	if len(e.errs) > 0 {
		return fmt.Errorf("invalid environment override: %w", errors.Join(e.errs...))
	}
	return nil
}

// Validate checks the endpoints, storage and run mode.
func (c *Config) Validate() error {
	switch c.RunMode {
	case ModeAPI, ModeMonitor, ModeAll:
	default:
		return domain.NewValidationError("run_mode", "%q is not one of api, monitor, all", c.RunMode)
	}

	if err := c.Endpoints.Validate(); err != nil {
		return err
	}
	if c.Site.URL == "" {
		return domain.NewValidationError("site.url", "is required")
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return domain.NewValidationError("storage.sqlite_path", "is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			return domain.NewValidationError("storage.postgres_url", "is required for the postgres driver")
		}
	case DriverRedis:
		if c.Storage.RedisURL == "" {
			return domain.NewValidationError("storage.redis_url", "is required for the redis driver")
		}
	default:
		return domain.NewValidationError("storage.driver", "%q is not one of sqlite, postgres, redis", c.Storage.Driver)
	}

	switch c.LockBackend() {
	case LockNone:
	case LockRedis:
		if c.Storage.RedisURL == "" {
			return domain.NewValidationError("storage.lock", "redis lock needs storage.redis_url")
		}
	case LockPostgres:
		if c.Storage.PostgresURL == "" {
			return domain.NewValidationError("storage.lock", "postgres lock needs storage.postgres_url")
		}
	default:
		return domain.NewValidationError("storage.lock", "%q is not one of none, redis, postgres", c.Storage.Lock)
	}

	if c.Admin.PasswordHash != "" && c.Admin.JWTSecret == "" {
		return domain.NewValidationError("admin.jwt_secret", "is required when admin login is enabled")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return domain.NewValidationError("server.port", "%d is out of range", c.Server.Port)
	}
	return nil
}

// LockBackend resolves LockAuto to the storage driver's native lock.
func (c *Config) LockBackend() string {
	if c.Storage.Lock != LockAuto {
		return c.Storage.Lock
	}
	switch c.Storage.Driver {
	case DriverRedis:
		return LockRedis
	case DriverPostgres:
		return LockPostgres
	default:
		return LockNone
	}
}
