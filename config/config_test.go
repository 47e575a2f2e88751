package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectvoice/events"
	"projectvoice/logging"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, logging.InfoLevel, cfg.Level())
	assert.Empty(t, cfg.MetadataURL)
	assert.Equal(t, 5*time.Second, cfg.MetadataTimeout)
	assert.Equal(t, 3, cfg.MetadataAttempts)
	assert.Zero(t, cfg.LifecycleTimeout)
	assert.Empty(t, cfg.SettingsDSN)
	assert.Equal(t, "PROJECTVOICE", cfg.NATSStream)
	assert.Equal(t, events.MessageRelayDefaults, cfg.RelayEvents)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PROJECTVOICE_LOG_LEVEL":         "debug",
		"PROJECTVOICE_METADATA_URL":      "https://example.invalid/meta.json",
		"PROJECTVOICE_METADATA_ATTEMPTS": "5",
		"PROJECTVOICE_LIFECYCLE_TIMEOUT": "2s",
		"PROJECTVOICE_NATS_URL":          "nats://127.0.0.1:4222",
		"PROJECTVOICE_REDIS_ADDR":        "127.0.0.1:6379",
		"PROJECTVOICE_RELAY_EVENTS":      "messaging:message-created,voice:connected",
	})
	require.NoError(t, err)

	assert.Equal(t, logging.DebugLevel, cfg.Level())
	assert.Equal(t, "https://example.invalid/meta.json", cfg.MetadataURL)
	assert.Equal(t, 5, cfg.MetadataAttempts)
	assert.Equal(t, 2*time.Second, cfg.LifecycleTimeout)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"messaging:message-created", "voice:connected"}, cfg.RelayEvents)
}

func TestLoadFrom_Invalid(t *testing.T) {
	_, err := LoadFrom(map[string]string{"PROJECTVOICE_LOG_LEVEL": "loud"})
	assert.ErrorContains(t, err, "LOG_LEVEL")

	_, err = LoadFrom(map[string]string{"PROJECTVOICE_METADATA_ATTEMPTS": "0"})
	assert.ErrorContains(t, err, "METADATA_ATTEMPTS")

	_, err = LoadFrom(map[string]string{"PROJECTVOICE_METADATA_TIMEOUT": "soon"})
	assert.ErrorContains(t, err, "parse env")
}
