package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, int64(10), cfg.Sandbox.MaxFileSizeMB)
	assert.Equal(t, []string{"*.pyc", "__pycache__", ".git"}, cfg.Sandbox.ExcludePatterns)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("WARDEN_PORT", "9090")
	t.Setenv("WARDEN_READ_ONLY", "true")
	t.Setenv("WARDEN_ALLOWED_PATHS", "/data,/srv/files")
	t.Setenv("WARDEN_MAX_FILE_SIZE_MB", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Sandbox.ReadOnly)
	assert.Equal(t, []string{"/data", "/srv/files"}, cfg.Sandbox.AllowedPaths)
	assert.Equal(t, int64(25), cfg.Sandbox.MaxFileSizeMB)
}
