package testsupport

import (
	"path/filepath"
	"testing"

	"epochcap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Every capture delay is zeroed so controller tests run without sleeping.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "captures")
	cfgVal.Paths.FallbackDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Journal.Path = filepath.Join(base, "logs", "journal.db")
	cfgVal.Capture.SettleDelayMS = 0
	cfgVal.Capture.AutoDelayMS = 0
	cfgVal.Capture.InterEpochDelayMS = 0
	cfgVal.Capture.InterFileDelayMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithEpochSeconds overrides the epoch length on the test config.
func WithEpochSeconds(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.EpochSeconds = seconds
	}
}

// WithFrame sets a custom frame size, keeping rendering cheap in tests.
func WithFrame(width, height int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Frame = config.FrameCustom
		b.cfg.Capture.Width = width
		b.cfg.Capture.Height = height
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
