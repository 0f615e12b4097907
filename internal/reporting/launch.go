package reporting

import (
	"encoding/json"
	"fmt"
)

// LaunchConfig is a VS Code debugpy "attach" configuration.
type LaunchConfig struct {
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Request      string        `json:"request"`
	Connect      LaunchConnect `json:"connect"`
	PathMappings []PathMapping `json:"pathMappings"`
	JustMyCode   bool          `json:"justMyCode"`
}

type LaunchConnect struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type PathMapping struct {
	LocalRoot  string `json:"localRoot"`
	RemoteRoot string `json:"remoteRoot"`
}

type launchFile struct {
	Version        string         `json:"version"`
	Configurations []LaunchConfig `json:"configurations"`
}

// NewLaunchConfig builds the attach configuration for a forwarded port.
func NewLaunchConfig(port int, service, remoteRoot string) LaunchConfig {
	name := "debugwand: attach"
	if service != "" {
		name = fmt.Sprintf("debugwand: %s", service)
	}
	return LaunchConfig{
		Name:    name,
		Type:    "debugpy",
		Request: "attach",
		Connect: LaunchConnect{Host: "localhost", Port: port},
		PathMappings: []PathMapping{
			{LocalRoot: "${workspaceFolder}", RemoteRoot: remoteRoot},
		},
		JustMyCode: false,
	}
}

// LaunchJSON renders a complete launch.json document for the configuration.
func LaunchJSON(port int, service, remoteRoot string) (string, error) {
	doc := launchFile{
		Version:        "0.2.0",
		Configurations: []LaunchConfig{NewLaunchConfig(port, service, remoteRoot)},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render launch configuration: %w", err)
	}
	return string(data), nil
}
