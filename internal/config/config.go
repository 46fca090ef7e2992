package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	FallbackDir string `toml:"fallback_dir"`
	LogDir      string `toml:"log_dir"`
}

// Capture contains epoch framing and pacing for exported images.
type Capture struct {
	EpochSeconds int    `toml:"epoch_seconds"`
	Frame        string `toml:"frame"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	FilePrefix   string `toml:"file_prefix"`
	// SettleDelayMS is the pause between moving to an epoch and capturing it
	// during auto-capture.
	SettleDelayMS int `toml:"settle_delay_ms"`
	// AutoDelayMS is the pause after each auto-captured epoch. Minimum 100.
	AutoDelayMS int `toml:"auto_delay_ms"`
	// InterEpochDelayMS paces folder batches. Zero derives max(50, auto_delay_ms).
	InterEpochDelayMS int  `toml:"inter_epoch_delay_ms"`
	InterFileDelayMS  int  `toml:"inter_file_delay_ms"`
	RowLabels         bool `toml:"row_labels"`
}

// SchemaRow describes one display row of a custom channel schema.
type SchemaRow struct {
	Name   string    `toml:"name"`
	Height int       `toml:"height"`
	Range  []float64 `toml:"range"`
}

// Schema overrides the built-in PSG row layout when Rows is non-empty.
type Schema struct {
	Rows []SchemaRow `toml:"rows"`
}

// Journal contains configuration for the capture-run ledger.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Batch          bool   `toml:"batch"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for epochcap.
//
// Configuration sections by subsystem:
//   - Paths: capture output, download fallback, and log directories
//   - Capture: epoch length, frame size, file naming, and pacing delays
//   - Schema: optional custom row layout
//   - Journal: SQLite ledger of batch and auto-capture runs
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Capture       Capture       `toml:"capture"`
	Schema        Schema        `toml:"schema"`
	Journal       Journal       `toml:"journal"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("epochcap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory and, when the journal is
// enabled, its parent directory. Capture output directories are created on
// demand by the exporter.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SettleDelay returns the auto-capture render settle delay.
func (c *Config) SettleDelay() time.Duration {
	return millis(c.Capture.SettleDelayMS)
}

// AutoDelay returns the pause after each auto-captured epoch.
func (c *Config) AutoDelay() time.Duration {
	return millis(c.Capture.AutoDelayMS)
}

// InterEpochDelay returns the pause between epochs of a folder batch.
func (c *Config) InterEpochDelay() time.Duration {
	return millis(c.Capture.InterEpochDelayMS)
}

// InterFileDelay returns the pause between files of a folder batch.
func (c *Config) InterFileDelay() time.Duration {
	return millis(c.Capture.InterFileDelayMS)
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

func millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
