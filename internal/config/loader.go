package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"debugwand/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/debugwand"
	projectConfigDir = ".debugwand"
	configFileName   = "config.yaml"
)

// LoadConfig loads the debugwand configuration by layering default, user, and project settings.
func LoadConfig() (DebugwandConfig, error) {
	config := GetDefaultConfig()

	layers := []struct {
		name string
		path func() (string, error)
	}{
		{"user", getUserConfigPath},
		{"project", getProjectConfigPath},
	}

	for _, layer := range layers {
		path, err := layer.path()
		if err != nil {
			// Optional layer; keep going without it.
			logging.Warn("Config", "Could not determine %s config path: %v", layer.name, err)
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		overlay, err := loadConfigFromFile(path)
		if err != nil {
			return DebugwandConfig{}, fmt.Errorf("error loading %s config from %s: %w", layer.name, path, err)
		}
		logging.Debug("Config", "Applied %s config from %s", layer.name, path)
		config = mergeConfigs(config, overlay)
	}

	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a DebugwandConfig from a YAML file.
func loadConfigFromFile(filePath string) (DebugwandConfig, error) {
	var config DebugwandConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return DebugwandConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return DebugwandConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Zero values in
// the overlay leave the base untouched.
func mergeConfigs(base, overlay DebugwandConfig) DebugwandConfig {
	merged := base

	if overlay.Debug.Port != 0 {
		merged.Debug.Port = overlay.Debug.Port
	}
	if overlay.Debug.RemoteRoot != "" {
		merged.Debug.RemoteRoot = overlay.Debug.RemoteRoot
	}
	if overlay.Debug.StagingDir != "" {
		merged.Debug.StagingDir = overlay.Debug.StagingDir
	}
	if overlay.Debug.PythonBinary != "" {
		merged.Debug.PythonBinary = overlay.Debug.PythonBinary
	}

	if overlay.Timeouts.Exec != 0 {
		merged.Timeouts.Exec = overlay.Timeouts.Exec
	}
	if overlay.Timeouts.ForwardGrace != 0 {
		merged.Timeouts.ForwardGrace = overlay.Timeouts.ForwardGrace
	}
	if overlay.Timeouts.PollInterval != 0 {
		merged.Timeouts.PollInterval = overlay.Timeouts.PollInterval
	}
	if overlay.Timeouts.Settle != 0 {
		merged.Timeouts.Settle = overlay.Timeouts.Settle
	}

	// Enabled is a pointer so an explicit "false" can override the default.
	if overlay.Reconnect.Enabled != nil {
		merged.Reconnect.Enabled = overlay.Reconnect.Enabled
	}
	if overlay.Reconnect.Interval != 0 {
		merged.Reconnect.Interval = overlay.Reconnect.Interval
	}
	if overlay.Reconnect.Timeout != 0 {
		merged.Reconnect.Timeout = overlay.Reconnect.Timeout
	}

	if overlay.Kubernetes.Context != "" {
		merged.Kubernetes.Context = overlay.Kubernetes.Context
	}
	if overlay.Kubernetes.Kubeconfig != "" {
		merged.Kubernetes.Kubeconfig = overlay.Kubernetes.Kubeconfig
	}

	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
