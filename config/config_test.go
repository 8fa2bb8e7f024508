package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gcj.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvPath, "")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
		require.Equal(t, ".GCJ.plugin", cfg.Section)
	})

	t.Run("explicit", func(t *testing.T) {
		path := writeConfig(t, `
db = "/var/gcj"
trace = true
compact = true
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, &Config{
			DB:      "/var/gcj",
			Trace:   true,
			Compact: true,
			Section: ".GCJ.plugin",
		}, cfg)
	})

	t.Run("section override", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `section = ".units"`))
		require.NoError(t, err)
		require.Equal(t, ".units", cfg.Section)
	})

	t.Run("empty section", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `section = ""`))
		require.NoError(t, err)
		require.Equal(t, ".GCJ.plugin", cfg.Section)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvPath, writeConfig(t, `dump = true`))
		cfg, err := Load("")
		require.NoError(t, err)
		require.True(t, cfg.Dump)
	})

	t.Run("explicit missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("environment missing", func(t *testing.T) {
		t.Setenv(EnvPath, filepath.Join(t.TempDir(), "absent.toml"))
		_, err := Load("")
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := Load(writeConfig(t, `db = [`))
		require.ErrorContains(t, err, "parse config")
	})
}
