package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Execution environments
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Database dialects
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Config holds all configuration for the application
// Sections are squashed so every field maps to a flat environment key.
type Config struct {
	Env       string          `mapstructure:"-"`
	App       AppConfig       `mapstructure:",squash"`
	DB        DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
	Logger    LoggerConfig    `mapstructure:",squash"`
	Metrics   MetricsConfig   `mapstructure:",squash"`
	GRPC      GRPCConfig      `mapstructure:",squash"`
	Tracing   TracingConfig   `mapstructure:",squash"`
}

// AppConfig holds configuration for the HTTP server
type AppConfig struct {
	Port                   string `mapstructure:"APP_PORT"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// DatabaseConfig holds configuration for the database
type DatabaseConfig struct {
	Dialect         string `mapstructure:"DB_DIALECT"`
	Host            string `mapstructure:"DB_HOST"`
	Port            int    `mapstructure:"DB_PORT"`
	Username        string `mapstructure:"DB_USERNAME"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Database        string `mapstructure:"DB_DATABASE"`
	SSLMode         string `mapstructure:"DB_SSLMODE"`
	AutoMigrate     bool   `mapstructure:"DB_AUTO_MIGRATE"`
	MaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `mapstructure:"DB_CONN_MAX_LIFETIME_SECONDS"`
	ConnMaxIdleTime int    `mapstructure:"DB_CONN_MAX_IDLE_TIME_SECONDS"`
}

// RedisConfig holds configuration for the optional Redis cache
type RedisConfig struct {
	Enabled     bool   `mapstructure:"REDIS_ENABLED"`
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
	CacheTTL    int    `mapstructure:"REDIS_CACHE_TTL_SECONDS"`
}

// RateLimitConfig holds configuration for the Redis token bucket limiter
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `mapstructure:"RATE_LIMIT_REQUESTS_PER_SECOND"`
	BurstCapacity     int     `mapstructure:"RATE_LIMIT_BURST_CAPACITY"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL"`
	Format           string  `mapstructure:"LOG_FORMAT"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName      string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"METRICS_ENABLED"`
}

// GRPCConfig controls the gRPC health server started in server mode
type GRPCConfig struct {
	Enabled bool   `mapstructure:"GRPC_ENABLED"`
	Port    string `mapstructure:"GRPC_PORT"`
}

// TracingConfig controls OpenTelemetry tracing
type TracingConfig struct {
	Enabled      bool    `mapstructure:"TRACING_ENABLED"`
	Endpoint     string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	SamplerRatio float64 `mapstructure:"OTEL_SAMPLER_RATIO"`
}

// Keys lists every variable the application reads from the environment.
var Keys = []string{
	"APP_ENV", "APP_PORT", "SHUTDOWN_TIMEOUT_SECONDS",
	"DB_DIALECT", "DB_HOST", "DB_PORT", "DB_USERNAME", "DB_PASSWORD", "DB_DATABASE", "DB_SSLMODE",
	"DB_AUTO_MIGRATE", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	"DB_CONN_MAX_LIFETIME_SECONDS", "DB_CONN_MAX_IDLE_TIME_SECONDS",
	"REDIS_ENABLED", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_MAX_RETRIES",
	"REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONN", "REDIS_CACHE_TTL_SECONDS",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_REQUESTS_PER_SECOND", "RATE_LIMIT_BURST_CAPACITY",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT_PATH", "LOG_SLOW_QUERY_SECONDS", "LOG_ENABLE_SAMPLING",
	"SERVICE_NAME", "SERVICE_VERSION",
	"METRICS_ENABLED", "GRPC_ENABLED", "GRPC_PORT",
	"TRACING_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SAMPLER_RATIO",
}

// requiredDBKeys have no defaults in production.
var requiredDBKeys = []string{"DB_HOST", "DB_PORT", "DB_USERNAME", "DB_PASSWORD", "DB_DATABASE"}

// MissingError reports required variables that were not supplied.
type MissingError struct {
	Env  string
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration for %s environment: %s", e.Env, strings.Join(e.Keys, ", "))
}

// LoadConfig reads app.env from path (if present) and the process environment,
// then resolves the result. Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	vars := make(map[string]string, len(Keys))
	for _, key := range v.AllKeys() {
		vars[strings.ToUpper(key)] = v.GetString(key)
	}
	for _, key := range Keys {
		if val, ok := os.LookupEnv(key); ok {
			vars[key] = val
		}
	}

	return Resolve(vars["APP_ENV"], vars)
}

// Resolve builds a Config from an environment mode and a raw variable mapping.
// It has no side effects. Non-production modes fall back to local defaults;
// production requires every database parameter to be supplied.
func Resolve(mode string, vars map[string]string) (*Config, error) {
	env, err := normalizeEnv(mode)
	if err != nil {
		return nil, err
	}

	dialect, err := normalizeDialect(vars["DB_DIALECT"])
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, env, dialect)
	for key, val := range vars {
		if strings.TrimSpace(val) == "" {
			continue
		}
		v.Set(strings.ToUpper(key), val)
	}

	if env == EnvProduction {
		if missing := missingKeys(v, dialect); len(missing) > 0 {
			return nil, &MissingError{Env: env, Keys: missing}
		}
	}

	if dialect == DialectSQLite {
		// sqlite is file based; a port is meaningless
		v.Set("DB_PORT", 0)
	} else {
		port, err := parsePort(v.GetString("DB_PORT"))
		if err != nil {
			return nil, err
		}
		v.Set("DB_PORT", port)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Env = env
	cfg.DB.Dialect = dialect

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, env, dialect string) {
	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)

	// Database connection parameters are only defaulted outside production
	if env != EnvProduction {
		v.SetDefault("DB_HOST", "localhost")
		v.SetDefault("DB_USERNAME", "app_user")
		v.SetDefault("DB_PASSWORD", "app_password")
		switch dialect {
		case DialectPostgres:
			v.SetDefault("DB_PORT", "5432")
		default:
			v.SetDefault("DB_PORT", "3306")
		}
		if env == EnvTest {
			v.SetDefault("DB_DATABASE", "users_db_test")
		} else {
			v.SetDefault("DB_DATABASE", "users_db")
		}
	}
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SECONDS", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONN", 2)
	v.SetDefault("REDIS_CACHE_TTL_SECONDS", 300)

	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_REQUESTS_PER_SECOND", 10.0)
	v.SetDefault("RATE_LIMIT_BURST_CAPACITY", 20)

	if env == EnvProduction {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("SERVICE_NAME", "serverless-user-api")
	v.SetDefault("SERVICE_VERSION", "1.0.0")

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("GRPC_ENABLED", false)
	v.SetDefault("GRPC_PORT", "50051")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("OTEL_SAMPLER_RATIO", 1.0)
}

func missingKeys(v *viper.Viper, dialect string) []string {
	keys := requiredDBKeys
	if dialect == DialectSQLite {
		keys = []string{"DB_DATABASE"}
	}

	var missing []string
	for _, key := range keys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func normalizeEnv(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", EnvDevelopment:
		return EnvDevelopment, nil
	case EnvTest:
		return EnvTest, nil
	case EnvProduction:
		return EnvProduction, nil
	default:
		return "", fmt.Errorf("unknown APP_ENV %q", mode)
	}
}

func normalizeDialect(dialect string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "", DialectMySQL:
		return DialectMySQL, nil
	case DialectPostgres, "postgresql":
		return DialectPostgres, nil
	case DialectSQLite:
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported DB_DIALECT %q", dialect)
	}
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid DB_PORT %q", raw)
	}
	return port, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.App.Port == "" {
		return errors.New("APP_PORT must not be empty")
	}
	if c.RateLimit.Enabled && !c.Redis.Enabled {
		return errors.New("RATE_LIMIT_ENABLED requires REDIS_ENABLED")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstCapacity <= 0) {
		return errors.New("rate limit requires positive RATE_LIMIT_REQUESTS_PER_SECOND and RATE_LIMIT_BURST_CAPACITY")
	}
	if c.Redis.Enabled && c.Redis.CacheTTL <= 0 {
		return errors.New("REDIS_CACHE_TTL_SECONDS must be positive")
	}
	return nil
}

// IsProduction reports whether the production environment is active
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// DSN returns the data source name for the configured dialect
func (c *DatabaseConfig) DSN() string {
	switch c.Dialect {
	case DialectPostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			c.Host, c.Username, c.Password, c.Database, c.Port, c.SSLMode)
	case DialectSQLite:
		return c.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.Username, c.Password, c.Host, c.Port, c.Database)
	}
}
