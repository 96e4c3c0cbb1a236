package model_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daylist-io/daylist/internal/model"
)

func TestLoadConfigMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
storage:
  db_path: /tmp/daylist-test.db
sharing:
  invite_ttl_hours: 24
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/daylist-test.db", cfg.Storage.DBPath)
	require.Equal(t, 24*time.Hour, cfg.InviteTTL())
	// Keys absent from the file keep their defaults.
	require.NotEmpty(t, cfg.Storage.BlobRoot)
	require.Equal(t, 300, cfg.Notify.PollIntervalSec)
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, 72*time.Hour, cfg.InviteTTL())
	require.NotEmpty(t, cfg.Storage.DBPath)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [not: a map"), 0o644))

	_, err := model.LoadConfig(path)
	require.Error(t, err)
}
