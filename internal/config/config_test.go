package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sokone.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.NewProductsHidden)
	assert.Equal(t, 300*time.Millisecond, cfg.Scan.StartDelay)
	assert.Equal(t, "auto", cfg.S3.Region)
	assert.Empty(t, cfg.S3.Bucket)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SOKONE_PORT", "9090")
	t.Setenv("SOKONE_NEW_PRODUCTS_HIDDEN", "false")
	t.Setenv("SOKONE_S3_BUCKET", "groceries")
	t.Setenv("SOKONE_SCAN_START_DELAY", "1s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.NewProductsHidden)
	assert.Equal(t, "groceries", cfg.S3.Bucket)
	assert.Equal(t, time.Second, cfg.Scan.StartDelay)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sokone.yaml")
	content := `
db_path: /var/lib/sokone/data.db
log_level: debug
scan:
  rear_device: /dev/input/scanner0
s3:
  endpoint: https://r2.example.com
snapshot:
  passphrase: secret
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("SOKONE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/sokone/data.db", cfg.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel, "environment beats file")
	assert.Equal(t, "/dev/input/scanner0", cfg.Scan.RearDevice)
	assert.Equal(t, "https://r2.example.com", cfg.S3.Endpoint)
	assert.Equal(t, "secret", cfg.Snapshot.Passphrase)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
