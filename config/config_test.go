package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8000", cfg.AppPort)
	assert.Equal(t, "debug", cfg.AppMode)
	assert.Equal(t, int64(4096), cfg.WSReadLimit)
	assert.Equal(t, 60*time.Second, cfg.WSPongWait)
	assert.Equal(t, 10*time.Second, cfg.WSWriteWait)
	assert.Equal(t, []string{"*"}, cfg.WSAllowedOrigins)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("WS_PONG_WAIT", "15s")
	t.Setenv("WS_READ_LIMIT", "1024")
	t.Setenv("WS_ALLOWED_ORIGINS", "http://localhost:8000, ,http://example.com")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("WS_CONNECT_LIMIT", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, 15*time.Second, cfg.WSPongWait)
	assert.Equal(t, int64(1024), cfg.WSReadLimit)
	assert.Equal(t, []string{"http://localhost:8000", "http://example.com"}, cfg.WSAllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 30, cfg.WSConnectLimit)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("WS_WRITE_WAIT", "-3s")
	assert.Equal(t, 10*time.Second, LoadConfig().WSWriteWait)
}
