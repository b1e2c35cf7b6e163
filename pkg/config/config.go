package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gautamajay52/adbclone/pkg/sync"
)

// FileName is looked up in the user's home directory when no --config flag
// is given.
const FileName = ".adbclone.yaml"

// ADB configures how the adb binary is invoked.
type ADB struct {
	Bin     string            `yaml:"bin"`
	Flags   []string          `yaml:"flags"`
	Options map[string]string `yaml:"options"`
}

// Config holds file-supplied defaults. A zero value carries no opinion:
// flags the user typed always win, and file excludes are prepended to
// flag excludes rather than replaced by them.
type Config struct {
	ADB      ADB      `yaml:"adb"`
	Exclude  []string `yaml:"exclude"`
	Compare  string   `yaml:"compare"`
	LogLevel string   `yaml:"log-level"`
}

// DefaultPath returns ~/.adbclone.yaml, or "" when the home directory is
// unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, FileName)
}

// Load reads and validates a single config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads the file at the explicit path when one is given. Otherwise
// the default path is tried, and a missing file yields an empty config.
func Resolve(explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path := DefaultPath()
	if path == "" {
		return &Config{}, nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// Validate rejects values no run could accept.
func (c *Config) Validate() error {
	switch sync.CompareMode(c.Compare) {
	case "", sync.CompareMtime, sync.CompareMtimeSize:
	default:
		return fmt.Errorf("unknown comparison policy %q", c.Compare)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error", "none":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	for key := range c.ADB.Options {
		if key == "" || strings.HasPrefix(key, "-") {
			return fmt.Errorf("bad adb option key %q", key)
		}
	}
	return nil
}

// ReadPatternFile returns the non-empty lines of an exclude pattern file.
func ReadPatternFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}
