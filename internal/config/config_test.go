package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"JUDGE_BASE_DIR", "JUDGE_WORKERS", "JUDGE_QUEUE_SIZE", "JUDGE_COMPILE_TIMEOUT", "JUDGE_MAX_RETRIES",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "/tmp/oj-judge", cfg.Judge.BaseDir)
	assert.Equal(t, 4, cfg.Judge.Workers)
	assert.Equal(t, 1024, cfg.Judge.QueueSize)
	assert.Equal(t, 10, cfg.Judge.CompileTimeoutSeconds)
	assert.Equal(t, 2, cfg.Judge.MaxRetries)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JUDGE_WORKERS", "16")
	t.Setenv("JUDGE_COMPILE_TIMEOUT", "30")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 16, cfg.Judge.Workers)
	assert.Equal(t, 30, cfg.Judge.CompileTimeoutSeconds)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsBadIntegers(t *testing.T) {
	t.Setenv("JUDGE_WORKERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Judge.Workers, "unparseable values fall back to defaults")
}
