package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears variables for the duration of the test, restoring any
// values the environment carried before.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	unsetenv(t, "JWT_SECRET")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	unsetenv(t, "APP_ENV", "PORT", "LOG_LEVEL", "LOG_FORMAT", "REDIS_URL",
		"PUBSUB_CHANNEL", "HEARTBEAT_TIMEOUT", "HEARTBEAT_SCAN_INTERVAL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "websocket_messages", cfg.PubSubChannel)
	assert.Equal(t, 60*time.Second, cfg.HeartbeatTimeout)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatScanInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9999")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("PUBSUB_CHANNEL", "other_channel")
	t.Setenv("HEARTBEAT_TIMEOUT", "90s")
	t.Setenv("HEARTBEAT_SCAN_INTERVAL", "15s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "other_channel", cfg.PubSubChannel)
	assert.Equal(t, 90*time.Second, cfg.HeartbeatTimeout)
	assert.Equal(t, 15*time.Second, cfg.HeartbeatScanInterval)
}

func TestLoad_RejectsBadDurations(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		wantContains string
	}{
		{name: "unparseable timeout", key: "HEARTBEAT_TIMEOUT", value: "soon"},
		{name: "bare number timeout", key: "HEARTBEAT_TIMEOUT", value: "60"},
		{name: "zero timeout", key: "HEARTBEAT_TIMEOUT", value: "0s", wantContains: "HEARTBEAT_TIMEOUT"},
		{name: "negative scan interval", key: "HEARTBEAT_SCAN_INTERVAL", value: "-5s", wantContains: "HEARTBEAT_SCAN_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			unsetenv(t, "HEARTBEAT_TIMEOUT", "HEARTBEAT_SCAN_INTERVAL")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			if tt.wantContains != "" {
				assert.Contains(t, err.Error(), tt.wantContains)
			}
		})
	}
}
