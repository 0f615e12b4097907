package config

import "time"

const (
	DefaultPort              = 5679
	DefaultRemoteRoot        = "/app"
	DefaultStagingDir        = "/tmp"
	DefaultPythonBinary      = "python3"
	DefaultExecTimeout       = 10 * time.Second
	DefaultForwardGrace      = 2 * time.Second
	DefaultPollInterval      = 2 * time.Second
	DefaultSettle            = 2 * time.Second
	DefaultReconnectInterval = 5 * time.Second
	DefaultReconnectTimeout  = 300 * time.Second
)

// GetDefaultConfig returns the configuration used when no file overrides it.
func GetDefaultConfig() DebugwandConfig {
	enabled := true
	return DebugwandConfig{
		Debug: DebugSettings{
			Port:         DefaultPort,
			RemoteRoot:   DefaultRemoteRoot,
			StagingDir:   DefaultStagingDir,
			PythonBinary: DefaultPythonBinary,
		},
		Timeouts: TimeoutSettings{
			Exec:         DefaultExecTimeout,
			ForwardGrace: DefaultForwardGrace,
			PollInterval: DefaultPollInterval,
			Settle:       DefaultSettle,
		},
		Reconnect: ReconnectSettings{
			Enabled:  &enabled,
			Interval: DefaultReconnectInterval,
			Timeout:  DefaultReconnectTimeout,
		},
	}
}
