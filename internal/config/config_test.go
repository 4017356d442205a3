package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := LoadFrom("")
		require.NoError(t, err)

		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, 30*time.Second, cfg.Stats.CacheTTL)
		assert.False(t, cfg.Ledger.UnallocatedIncludesCredit)
		assert.Equal(t, 1, cfg.Allocation.RetryOnConflict)
		assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORS.AllowOrigins)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("TECHPAY_APP_PORT", "9090")
		t.Setenv("TECHPAY_DATABASE_PORT", "6543")
		t.Setenv("TECHPAY_REDIS_ENABLED", "true")
		t.Setenv("TECHPAY_LEDGER_UNALLOCATED_INCLUDES_CREDIT", "true")
		t.Setenv("TECHPAY_STATS_CACHE_TTL", "2m")

		cfg, err := LoadFrom("")
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.App.Port)
		assert.Equal(t, 6543, cfg.Database.Port)
		assert.True(t, cfg.Redis.Enabled)
		assert.True(t, cfg.Ledger.UnallocatedIncludesCredit)
		assert.Equal(t, 2*time.Minute, cfg.Stats.CacheTTL)
	})

	t.Run("reads the env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("TECHPAY_DATABASE_DBNAME=fromfile\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("TECHPAY_DATABASE_DBNAME") })

		cfg, err := LoadFrom(path)
		require.NoError(t, err)
		assert.Equal(t, "fromfile", cfg.Database.DBName)
	})

	t.Run("missing env file is fine", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.env"))
		assert.NoError(t, err)
	})

	t.Run("production requires a jwt secret", func(t *testing.T) {
		t.Setenv("TECHPAY_APP_ENV", "production")
		_, err := LoadFrom("")
		assert.Error(t, err)

		t.Setenv("TECHPAY_JWT_SECRET", "s3cret")
		cfg, err := LoadFrom("")
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", DBName: "techpay", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/techpay?sslmode=disable", db.DSN())

	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
