package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultDirName  = ".tasklite"
	DefaultFileName = "tasklite.json"
)

// Config holds runtime settings. Nothing here is persisted in the state
// file except DateFormat, which only seeds a brand-new store.
type Config struct {
	// Home is the directory holding the state file.
	Home string
	// File overrides the full state file path when set.
	File       string
	DateFormat string
	StrictTags bool
	NoColor    bool
	Logger     LoggerConfig
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads TASKLITE_* variables, optionally from a .env file in the
// working directory.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Home:       getString("TASKLITE_HOME", defaultHome()),
		File:       os.Getenv("TASKLITE_FILE"),
		DateFormat: getString("TASKLITE_DATE_FORMAT", ""),
		StrictTags: getBool("TASKLITE_STRICT_TAGS", false),
		NoColor:    os.Getenv("NO_COLOR") != "",
		Logger: LoggerConfig{
			Level:    getString("TASKLITE_LOG_LEVEL", "warn"),
			Encoding: getString("TASKLITE_LOG_ENCODING", "console"),
		},
	}
	return cfg, nil
}

// DataPath is the state file location.
func (c *Config) DataPath() string {
	if strings.TrimSpace(c.File) != "" {
		return expandHome(strings.TrimSpace(c.File))
	}
	return filepath.Join(expandHome(c.Home), DefaultFileName)
}

func defaultHome() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
