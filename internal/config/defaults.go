package config

const (
	defaultDataDir      = "~/.local/share/eventpulse/data"
	defaultContractsDir = "~/.config/eventpulse/contracts"
	defaultIncomingDir  = "~/.local/share/eventpulse/incoming"
	defaultArchiveDir   = "~/.local/share/eventpulse/archive"
	defaultLogDir       = "~/.local/share/eventpulse/logs"
	defaultAPIBind      = "127.0.0.1:7519"

	defaultMaxFileMB          = 50
	defaultDriftPolicy        = "warn"
	defaultMaxAttempts        = 5
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 900
	defaultReclaimInterval    = 60
	defaultReclaimMaxPerRun   = 50
	defaultWatchPollInterval  = 3
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			ContractsDir: defaultContractsDir,
			IncomingDir:  defaultIncomingDir,
			ArchiveDir:   defaultArchiveDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Ingest: Ingest{
			AllowedExtensions:  []string{".csv", ".xlsx"},
			MaxFileMB:          defaultMaxFileMB,
			DriftPolicyDefault: defaultDriftPolicy,
			MaxAttempts:        defaultMaxAttempts,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			ReclaimInterval:    defaultReclaimInterval,
			ReclaimMaxPerRun:   defaultReclaimMaxPerRun,
			WatchPollInterval:  defaultWatchPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
