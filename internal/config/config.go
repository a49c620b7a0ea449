package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Store       StoreConfig     `yaml:"store"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Logging     LoggingConfig   `yaml:"logging"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Reconcile   ReconcileConfig `yaml:"reconcile"`
	Environment string          `yaml:"environment"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRTDB     = "rtdb"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type StoreConfig struct {
	Backend        string        `yaml:"backend"`
	URL            string        `yaml:"url"`
	AuthToken      string        `yaml:"auth_token"`
	Prefix         string        `yaml:"prefix"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	MaxConnections int           `yaml:"max_connections"`
	MigrationsPath string        `yaml:"migrations_path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`
	Issuer    string        `yaml:"issuer"`
}

type RateLimitConfig struct {
	PublicPerMinute   int      `yaml:"public_per_minute"`
	MemberPerMinute   int      `yaml:"member_per_minute"`
	LoginPer15Minutes int      `yaml:"login_per_15_minutes"`
	TrustedProxyCIDRs []string `yaml:"trusted_proxy_cidrs"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

type ReconcileConfig struct {
	// Interval between background sweeps in serve; zero disables them.
	Interval time.Duration `yaml:"interval"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Store: StoreConfig{
			Backend:        BackendMemory,
			Prefix:         "charity:",
			Timeout:        5 * time.Second,
			MaxRetries:     3,
			MaxConnections: 10,
			MigrationsPath: "internal/docstore/postgres/migrations",
		},
		Auth: AuthConfig{JWTExpiry: 24 * time.Hour, Issuer: "charity-events"},
		RateLimit: RateLimitConfig{
			PublicPerMinute:   60,
			MemberPerMinute:   300,
			LoginPer15Minutes: 5,
		},
		Logging:     LoggingConfig{Level: "info", Format: "json"},
		Tracing:     TracingConfig{Exporter: "stdout", ServiceName: "charity-events", OTLPEndpoint: "localhost:4317", SampleRate: 1.0},
		Environment: "development",
	}
}

// Load reads configuration from the environment on top of the defaults.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile reads the YAML file at path (when path is not empty) on top of the
// defaults, then applies environment variables, which win over the file.
func LoadFile(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)

	cfg.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", cfg.Store.Backend))
	cfg.Store.URL = getEnv("STORE_URL", cfg.Store.URL)
	cfg.Store.AuthToken = getEnv("STORE_AUTH_TOKEN", cfg.Store.AuthToken)
	cfg.Store.Prefix = getEnv("STORE_PREFIX", cfg.Store.Prefix)
	cfg.Store.Timeout = getEnvDuration("STORE_TIMEOUT", cfg.Store.Timeout)
	cfg.Store.MaxRetries = getEnvInt("STORE_MAX_RETRIES", cfg.Store.MaxRetries)
	cfg.Store.MaxConnections = getEnvInt("STORE_MAX_CONNECTIONS", cfg.Store.MaxConnections)
	cfg.Store.MigrationsPath = getEnv("STORE_MIGRATIONS_PATH", cfg.Store.MigrationsPath)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	if hours := getEnvInt("JWT_EXPIRY_HOURS", 0); hours > 0 {
		cfg.Auth.JWTExpiry = time.Duration(hours) * time.Hour
	}
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", cfg.Auth.Issuer)

	cfg.RateLimit.PublicPerMinute = getEnvInt("RATE_LIMIT_PUBLIC", cfg.RateLimit.PublicPerMinute)
	cfg.RateLimit.MemberPerMinute = getEnvInt("RATE_LIMIT_MEMBER", cfg.RateLimit.MemberPerMinute)
	cfg.RateLimit.LoginPer15Minutes = getEnvInt("RATE_LIMIT_LOGIN", cfg.RateLimit.LoginPer15Minutes)
	if cidrs := getEnv("TRUSTED_PROXY_CIDRS", ""); cidrs != "" {
		cfg.RateLimit.TrustedProxyCIDRs = splitList(cidrs)
	}

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.ServiceName = getEnv("TRACING_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)

	cfg.Reconcile.Interval = getEnvDuration("RECONCILE_INTERVAL", cfg.Reconcile.Interval)

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
}

// Validate checks settings that would otherwise fail at first use.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRTDB, BackendPostgres, BackendRedis:
		if c.Store.URL == "" {
			return fmt.Errorf("STORE_URL is required for the %s backend", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q (must be memory, rtdb, postgres or redis)", c.Store.Backend)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.Auth.JWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Reconcile.Interval < 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must not be negative")
	}
	return nil
}

// IsDevelopment reports whether the environment relaxes secret requirements.
func (c Config) IsDevelopment() bool {
	switch c.Environment {
	case "development", "test":
		return true
	default:
		return false
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
