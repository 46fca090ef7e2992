package config

const (
	defaultConfigPath        = "~/.config/epochcap/config.toml"
	defaultOutputDir         = "~/epochcap/captures"
	defaultFallbackDir       = "~/Downloads"
	defaultLogDir            = "~/.local/share/epochcap/logs"
	defaultJournalFile       = "journal.db"
	defaultLogRetentionDays  = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultEpochSeconds      = 30
	defaultFrame             = FrameWide
	defaultFilePrefix        = "edf_epoch"
	defaultSettleDelayMS     = 350
	defaultAutoDelayMS       = 800
	minAutoDelayMS           = 100
	minInterEpochDelayMS     = 50
	defaultInterFileDelayMS  = 200
	defaultRequestTimeout    = 10
	maxFrameDimension        = 16384
)

// Frame presets accepted by capture.frame.
const (
	FrameWide   = "wide"
	FrameTall   = "tall"
	FrameCustom = "custom"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			FallbackDir: defaultFallbackDir,
			LogDir:      defaultLogDir,
		},
		Capture: Capture{
			EpochSeconds:     defaultEpochSeconds,
			Frame:            defaultFrame,
			FilePrefix:       defaultFilePrefix,
			SettleDelayMS:    defaultSettleDelayMS,
			AutoDelayMS:      defaultAutoDelayMS,
			InterFileDelayMS: defaultInterFileDelayMS,
		},
		Journal: Journal{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultRequestTimeout,
			Batch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
