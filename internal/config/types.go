package config

import "time"

// DebugwandConfig is the top-level configuration structure for debugwand.
type DebugwandConfig struct {
	Debug      DebugSettings      `yaml:"debug"`
	Timeouts   TimeoutSettings    `yaml:"timeouts"`
	Reconnect  ReconnectSettings  `yaml:"reconnect"`
	Kubernetes KubernetesSettings `yaml:"kubernetes"`
}

// DebugSettings control the injected debugpy listener.
type DebugSettings struct {
	// Port is both the remote debugpy port and the local forwarded port.
	Port int `yaml:"port"`
	// RemoteRoot is the application path inside the target, used for the
	// pathMappings of the generated launch configuration.
	RemoteRoot   string `yaml:"remoteRoot"`
	StagingDir   string `yaml:"stagingDir"`
	PythonBinary string `yaml:"pythonBinary"`
}

// TimeoutSettings bound every blocking call against a target.
type TimeoutSettings struct {
	Exec         time.Duration `yaml:"exec"`
	ForwardGrace time.Duration `yaml:"forwardGrace"`
	PollInterval time.Duration `yaml:"pollInterval"`
	// Settle is how long to wait after an injection before forwarding, to
	// give debugpy time to bind.
	Settle time.Duration `yaml:"settle"`
}

// ReconnectSettings drive the replacement-target search.
type ReconnectSettings struct {
	Enabled  *bool         `yaml:"enabled,omitempty"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// KubernetesSettings select the kubeconfig and context.
type KubernetesSettings struct {
	Context    string `yaml:"context"`
	Kubeconfig string `yaml:"kubeconfig"`
}

// AutoReconnect reports the effective reconnect switch.
func (r ReconnectSettings) AutoReconnect() bool {
	return r.Enabled == nil || *r.Enabled
}
