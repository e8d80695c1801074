package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  jwt_secret: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/societyhub.db", cfg.Database.Path)
	assert.Equal(t, 12*60, cfg.Server.TokenTTLMins)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "s3cret")
	path := writeConfig(t, "server:\n  jwt_secret: ${TEST_JWT_SECRET}\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 300.0, cfg.HoldTTL().Seconds())

	cfg.Booking.HoldTTLSeconds = 60
	assert.Equal(t, 60.0, cfg.HoldTTL().Seconds())
}
