package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"epochcap/internal/config"
	"epochcap/internal/dataset"
	"epochcap/internal/export"
	"epochcap/internal/faults"
	"epochcap/internal/logging"
	"epochcap/internal/render"
	"epochcap/internal/schema"
)

type globalFlags struct {
	config       string
	epochSeconds int
	frame        string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.flags != nil {
			path = strings.TrimSpace(c.flags.config)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyOverrides(cfg *config.Config) error {
	if c.flags == nil {
		return nil
	}
	if c.flags.epochSeconds < 0 {
		return faults.Wrap(faults.ErrInvalidInput, "cli", "--epoch-seconds", "must be positive", nil)
	}
	if c.flags.epochSeconds > 0 {
		cfg.Capture.EpochSeconds = c.flags.epochSeconds
	}
	if frame := strings.ToLower(strings.TrimSpace(c.flags.frame)); frame != "" {
		cfg.Capture.Frame = frame
	}
	if err := cfg.Validate(); err != nil {
		return faults.Wrap(faults.ErrConfiguration, "cli", "flags", "", err)
	}
	return nil
}

// loggerFor returns the process logger, creating it on first use. Log files
// older than logging.retention_days are pruned at that point.
func (c *commandContext) loggerFor() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			fallback, fallbackErr := logging.New(logging.Options{Level: cfg.Logging.Level, OutputPaths: []string{"stderr"}})
			if fallbackErr != nil {
				c.logger = logging.NewNop()
				return
			}
			logging.WarnWithContext(fallback, "log file unavailable; logging to stderr only", "log_setup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.log_dir permissions"),
				logging.String(logging.FieldImpact, "this run is not recorded in the log file"),
			)
			c.logger = fallback
			return
		}
		logging.CleanupOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays,
			filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) composer() (render.Composer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return render.Composer{}, err
	}
	size, err := render.SizeFor(cfg.Capture.Frame, cfg.Capture.Width, cfg.Capture.Height)
	if err != nil {
		return render.Composer{}, err
	}
	rows, err := schema.FromConfig(cfg)
	if err != nil {
		return render.Composer{}, err
	}
	comp := render.NewComposer(rows, size)
	comp.Labels = cfg.Capture.RowLabels
	return comp, nil
}

// exporter pairs output writes with the configured fallback folder. A
// fallback folder that cannot be created is logged and left out.
func (c *commandContext) exporter() *export.Exporter {
	logger := c.loggerFor()
	exp := &export.Exporter{Logger: logger}
	cfg, err := c.ensureConfig()
	if err != nil || strings.TrimSpace(cfg.Paths.FallbackDir) == "" {
		return exp
	}
	fallback, err := export.EnsureOSDirectory(cfg.Paths.FallbackDir)
	if err != nil {
		logging.WarnWithContext(logger, "fallback folder unavailable", "fallback_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.fallback_dir"),
			logging.String(logging.FieldImpact, "failed writes will not be retried"),
		)
		return exp
	}
	exp.Fallback = fallback
	return exp
}

// outputDir resolves an --out flag or the configured output folder,
// creating it when needed.
func (c *commandContext) outputDir(flagValue string) (*export.OSDirectory, error) {
	path := strings.TrimSpace(flagValue)
	if path == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Paths.OutputDir
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve output folder: %w", err)
	}
	return export.EnsureOSDirectory(expanded)
}

func (c *commandContext) loadDataset(ctx context.Context, path string) (*dataset.Dataset, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	ds, err := dataset.LoadFile(ctx, path, nil, cfg.Capture.EpochSeconds)
	if err != nil {
		return nil, err
	}
	if dups := ds.Duplicates(); len(dups) > 0 {
		c.loggerFor().Debug("duplicate canonical channels; first occurrence is displayed",
			logging.String(logging.FieldFile, ds.Source),
			logging.Any("channels", dups),
		)
	}
	return ds, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
