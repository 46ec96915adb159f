package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TASKLITE_HOME", "TASKLITE_FILE", "TASKLITE_DATE_FORMAT", "TASKLITE_STRICT_TAGS",
		"NO_COLOR", "TASKLITE_LOG_LEVEL", "TASKLITE_LOG_ENCODING",
	} {
		t.Setenv(key, "")
	}
	chdir(t, t.TempDir())
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DefaultDirName), cfg.Home)
	assert.Empty(t, cfg.File)
	assert.Empty(t, cfg.DateFormat)
	assert.False(t, cfg.StrictTags)
	assert.False(t, cfg.NoColor)
	assert.Equal(t, LoggerConfig{Level: "warn", Encoding: "console"}, cfg.Logger)
	assert.Equal(t, filepath.Join(home, DefaultDirName, DefaultFileName), cfg.DataPath())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TASKLITE_HOME", "/srv/tasks")
	t.Setenv("TASKLITE_DATE_FORMAT", "2006/01/02")
	t.Setenv("TASKLITE_STRICT_TAGS", "true")
	t.Setenv("NO_COLOR", "1")
	t.Setenv("TASKLITE_LOG_LEVEL", "debug")
	t.Setenv("TASKLITE_LOG_ENCODING", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/tasks", cfg.Home)
	assert.Equal(t, "2006/01/02", cfg.DateFormat)
	assert.True(t, cfg.StrictTags)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, LoggerConfig{Level: "debug", Encoding: "json"}, cfg.Logger)
	assert.Equal(t, "/srv/tasks/tasklite.json", cfg.DataPath())
}

func TestLoadIgnoresBadBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("TASKLITE_STRICT_TAGS", "sometimes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.StrictTags)
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("TASKLITE_FILE"))
	require.NoError(t, os.WriteFile(".env", []byte("TASKLITE_FILE=/tmp/dotenv/tasks.yaml\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dotenv/tasks.yaml", cfg.DataPath())
}

func TestDataPathFileOverridesHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := &Config{Home: "/ignored", File: "~/tasks.toml"}
	assert.Equal(t, filepath.Join(home, "tasks.toml"), cfg.DataPath())

	cfg = &Config{Home: "~"}
	assert.Equal(t, filepath.Join(home, DefaultFileName), cfg.DataPath())
}
