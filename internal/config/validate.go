package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateSchema(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.EpochSeconds < 1 {
		return errors.New("capture.epoch_seconds must be at least 1")
	}
	switch c.Capture.Frame {
	case FrameWide, FrameTall:
	case FrameCustom:
		if c.Capture.Width <= 0 {
			return errors.New("capture.width must be positive when capture.frame is custom")
		}
		if c.Capture.Height <= 0 {
			return errors.New("capture.height must be positive when capture.frame is custom")
		}
		if c.Capture.Width > maxFrameDimension || c.Capture.Height > maxFrameDimension {
			return fmt.Errorf("capture.width and capture.height must not exceed %d", maxFrameDimension)
		}
	default:
		return fmt.Errorf("capture.frame must be one of %s, %s, %s (got %q)", FrameWide, FrameTall, FrameCustom, c.Capture.Frame)
	}
	if strings.ContainsAny(c.Capture.FilePrefix, `/\`) {
		return errors.New("capture.file_prefix must not contain path separators")
	}
	if c.Capture.AutoDelayMS < minAutoDelayMS {
		return fmt.Errorf("capture.auto_delay_ms must be at least %d", minAutoDelayMS)
	}
	if err := ensureNonNegativeMap(map[string]int{
		"capture.settle_delay_ms":      c.Capture.SettleDelayMS,
		"capture.inter_epoch_delay_ms": c.Capture.InterEpochDelayMS,
		"capture.inter_file_delay_ms":  c.Capture.InterFileDelayMS,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSchema() error {
	for i, row := range c.Schema.Rows {
		if row.Height <= 0 {
			return fmt.Errorf("schema.rows[%d].height must be positive", i)
		}
		switch len(row.Range) {
		case 0:
		case 2:
			if row.Range[0] >= row.Range[1] {
				return fmt.Errorf("schema.rows[%d].range minimum must be below maximum", i)
			}
		default:
			return fmt.Errorf("schema.rows[%d].range must be [min, max]", i)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
