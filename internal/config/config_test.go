package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/config"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/drive"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	v := config.New()
	v.Set("data_dir", t.TempDir())

	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, drive.DefaultBaseURL, cfg.Drive.APIBase)
	assert.Equal(t, 1000, cfg.Sync.MaxFiles)
	assert.Equal(t, int64(8<<20), cfg.Sync.MaxAttachmentBytes)
	assert.Equal(t, 1000, cfg.Sync.PageSize)
	assert.Zero(t, cfg.Drive.RedirectPort)
	assert.Empty(t, cfg.File)
}

func TestDataDirConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `
log_level: debug
drive:
  client_id: file-client
sync:
  max_files: 25
`)
	v := config.New()
	v.Set("data_dir", dir)

	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "file-client", cfg.Drive.ClientID)
	assert.Equal(t, 25, cfg.Sync.MaxFiles)
	assert.Equal(t, filepath.Join(dir, config.FileName), cfg.File)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "drive:\n  client_id: file-client\n")
	t.Setenv("DEBATE_VAULT_DRIVE_CLIENT_ID", "env-client")
	t.Setenv("DEBATE_VAULT_SYNC_PAGE_SIZE", "50")

	v := config.New()
	v.Set("data_dir", dir)
	cfg, err := config.Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, "env-client", cfg.Drive.ClientID)
	assert.Equal(t, 50, cfg.Sync.PageSize)
}

func TestMissingExplicitFile(t *testing.T) {
	v := config.New()
	_, err := config.Load(v, filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidation(t *testing.T) {
	v := config.New()
	v.Set("data_dir", t.TempDir())
	v.Set("sync.max_files", 0)
	v.Set("sync.page_size", 5000)

	_, err := config.Load(v, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.max_files")
	assert.Contains(t, err.Error(), "sync.page_size")
}
