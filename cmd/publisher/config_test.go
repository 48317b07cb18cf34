package main

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.EnableCORS)
	assert.Equal(t, 600, cfg.RateLimit)
	assert.False(t, cfg.Unsigned)
	assert.Empty(t, cfg.APIKeys)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PUBLISHER_PORT", "9090")
	t.Setenv("PUBLISHER_DATA_DIR", "/var/lib/publisher")
	t.Setenv("PUBLISHER_UNSIGNED", "true")
	t.Setenv("PUBLISHER_ID", "0x00000000000000000000000000000000000000aa")
	t.Setenv("PUBLISHER_API_KEYS", "first,second")
	t.Setenv("PUBLISHER_CORS", "false")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/var/lib/publisher", cfg.DataDir)
	assert.True(t, cfg.Unsigned)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", cfg.PublisherID)
	assert.Equal(t, []string{"first", "second"}, cfg.APIKeys)
	assert.False(t, cfg.EnableCORS)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	t.Setenv("PUBLISHER_PORT", "eighty")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestDatabasePath(t *testing.T) {
	cfg := &Config{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "publisher.db"), cfg.databasePath())

	cfg.DBPath = "/tmp/keys.db"
	assert.Equal(t, "/tmp/keys.db", cfg.databasePath())
}

func TestNewLogger(t *testing.T) {
	logger, err := (&Config{LogLevel: "debug"}).newLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	_, err = (&Config{LogLevel: "loud"}).newLogger()
	assert.Error(t, err)
}
