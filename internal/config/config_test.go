package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productionVars() map[string]string {
	return map[string]string{
		"DB_HOST":     "db.internal",
		"DB_PORT":     "3306",
		"DB_USERNAME": "svc",
		"DB_PASSWORD": "secret",
		"DB_DATABASE": "users",
	}
}

func TestResolve_DevelopmentDefaults(t *testing.T) {
	cfg, err := Resolve("", nil)
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, DialectMySQL, cfg.DB.Dialect)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, "app_user", cfg.DB.Username)
	assert.Equal(t, "app_password", cfg.DB.Password)
	assert.Equal(t, "users_db", cfg.DB.Database)
	assert.False(t, cfg.DB.AutoMigrate)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Redis.Enabled)
}

func TestResolve_TestDefaults(t *testing.T) {
	cfg, err := Resolve("test", map[string]string{"DB_DIALECT": "postgres"})
	require.NoError(t, err)

	assert.Equal(t, EnvTest, cfg.Env)
	assert.Equal(t, "users_db_test", cfg.DB.Database)
	assert.Equal(t, DialectPostgres, cfg.DB.Dialect)
	assert.Equal(t, 5432, cfg.DB.Port)
}

func TestResolve_OverridesWin(t *testing.T) {
	cfg, err := Resolve("development", map[string]string{
		"DB_HOST":            "mysql",
		"DB_PORT":            "3307",
		"DB_AUTO_MIGRATE":    "true",
		"LOG_LEVEL":          "warn",
		"REDIS_ENABLED":      "true",
		"RATE_LIMIT_ENABLED": "true",
		"OTEL_SAMPLER_RATIO": "0.25",
		"db_database":        "lowercase_key",
	})
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DB.Host)
	assert.Equal(t, 3307, cfg.DB.Port)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.True(t, cfg.Redis.Enabled)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.InDelta(t, 0.25, cfg.Tracing.SamplerRatio, 1e-9)
	assert.Equal(t, "lowercase_key", cfg.DB.Database)
}

func TestResolve_Production(t *testing.T) {
	cfg, err := Resolve("production", productionVars())
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "secret", cfg.DB.Password)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.True(t, cfg.Logger.EnableSampling)
}

func TestResolve_ProductionMissingPassword(t *testing.T) {
	vars := productionVars()
	delete(vars, "DB_PASSWORD")

	cfg, err := Resolve("production", vars)
	require.Error(t, err)
	assert.Nil(t, cfg)

	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"DB_PASSWORD"}, missing.Keys)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestResolve_ProductionEmptyValueIsMissing(t *testing.T) {
	vars := productionVars()
	vars["DB_HOST"] = "   "
	vars["DB_USERNAME"] = ""

	_, err := Resolve("production", vars)

	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"DB_HOST", "DB_USERNAME"}, missing.Keys)
}

func TestResolve_ProductionNothingSupplied(t *testing.T) {
	_, err := Resolve("production", nil)

	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, requiredDBKeys, missing.Keys)
}

func TestResolve_ProductionSQLiteOnlyNeedsDatabase(t *testing.T) {
	cfg, err := Resolve("production", map[string]string{
		"DB_DIALECT":  "sqlite",
		"DB_DATABASE": "/tmp/users.db",
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/users.db", cfg.DB.DSN())
}

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name string
		mode string
		vars map[string]string
		msg  string
	}{
		{name: "unknown env", mode: "staging", msg: "unknown APP_ENV"},
		{name: "unknown dialect", vars: map[string]string{"DB_DIALECT": "oracle"}, msg: "unsupported DB_DIALECT"},
		{name: "port not numeric", vars: map[string]string{"DB_PORT": "abc"}, msg: "invalid DB_PORT"},
		{name: "port out of range", vars: map[string]string{"DB_PORT": "70000"}, msg: "invalid DB_PORT"},
		{name: "redis db not numeric", vars: map[string]string{"REDIS_DB": "zero"}, msg: "failed to decode configuration"},
		{name: "rate limit without redis", vars: map[string]string{"RATE_LIMIT_ENABLED": "true"}, msg: "requires REDIS_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.mode, tt.vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	mysqlCfg := DatabaseConfig{Dialect: DialectMySQL, Host: "h", Port: 3306, Username: "u", Password: "p", Database: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=UTC", mysqlCfg.DSN())

	pgCfg := DatabaseConfig{Dialect: DialectPostgres, Host: "h", Port: 5432, Username: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h user=u password=p dbname=d port=5432 sslmode=disable", pgCfg.DSN())
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	content := "APP_ENV=production\nDB_HOST=file-host\nDB_PORT=3306\nDB_USERNAME=file-user\nDB_PASSWORD=file-pass\nDB_DATABASE=file-db\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))

	t.Setenv("DB_HOST", "env-host")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "env-host", cfg.DB.Host)
	assert.Equal(t, "file-user", cfg.DB.Username)
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, EnvTest, cfg.Env)
}

func TestResolve_SQLiteIgnoresPort(t *testing.T) {
	cfg, err := Resolve("test", map[string]string{
		"DB_DIALECT":  "sqlite",
		"DB_DATABASE": ":memory:",
		"DB_PORT":     "not-a-port",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.DB.Port)
	assert.Equal(t, DialectSQLite, cfg.DB.Dialect)
}

func TestResolve_DecodesEverySection(t *testing.T) {
	cfg, err := Resolve("development", map[string]string{
		"DB_DIALECT":                    "PostgreSQL",
		"APP_PORT":                      "8080",
		"REDIS_DB":                      "3",
		"RATE_LIMIT_BURST_CAPACITY":     "7",
		"LOG_SLOW_QUERY_SECONDS":        "1.5",
		"METRICS_ENABLED":               "false",
		"GRPC_PORT":                     "6000",
		"OTEL_EXPORTER_OTLP_ENDPOINT":   "collector:4317",
		"DB_CONN_MAX_IDLE_TIME_SECONDS": "30",
	})
	require.NoError(t, err)

	assert.Equal(t, DialectPostgres, cfg.DB.Dialect)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 7, cfg.RateLimit.BurstCapacity)
	assert.InDelta(t, 1.5, cfg.Logger.SlowQuerySeconds, 1e-9)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "6000", cfg.GRPC.Port)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, 30, cfg.DB.ConnMaxIdleTime)
	assert.Equal(t, EnvDevelopment, cfg.Env)
}
