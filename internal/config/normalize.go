package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeSchema()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.FallbackDir, err = expandPath(strings.TrimSpace(c.Paths.FallbackDir)); err != nil {
		return fmt.Errorf("paths.fallback_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	if c.Capture.EpochSeconds < 1 {
		c.Capture.EpochSeconds = 1
	}
	c.Capture.Frame = strings.ToLower(strings.TrimSpace(c.Capture.Frame))
	if c.Capture.Frame == "" {
		c.Capture.Frame = defaultFrame
	}
	c.Capture.FilePrefix = strings.TrimSpace(c.Capture.FilePrefix)
	if c.Capture.FilePrefix == "" {
		c.Capture.FilePrefix = defaultFilePrefix
	}
	if c.Capture.SettleDelayMS < 0 {
		c.Capture.SettleDelayMS = 0
	}
	if c.Capture.AutoDelayMS < minAutoDelayMS {
		c.Capture.AutoDelayMS = minAutoDelayMS
	}
	if c.Capture.InterEpochDelayMS <= 0 {
		c.Capture.InterEpochDelayMS = max(minInterEpochDelayMS, c.Capture.AutoDelayMS)
	}
	if c.Capture.InterFileDelayMS < 0 {
		c.Capture.InterFileDelayMS = 0
	}
}

func (c *Config) normalizeSchema() {
	for i := range c.Schema.Rows {
		c.Schema.Rows[i].Name = strings.TrimSpace(c.Schema.Rows[i].Name)
	}
}

func (c *Config) normalizeJournal() error {
	var err error
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.LogDir, defaultJournalFile)
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("EPOCHCAP_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
