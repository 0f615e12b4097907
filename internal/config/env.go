package config

import "strings"

const (
	EnvAutoSelectPod = "DEBUGWAND_AUTO_SELECT_POD"
	EnvPlain         = "DEBUGWAND_PLAIN"
	EnvLogLevel      = "DEBUGWAND_LOG_LEVEL"
)

// Environment holds the switches read from the process environment.
type Environment struct {
	AutoSelectTarget bool
	Plain            bool
	LogLevel         string
}

// ReadEnvironment reads the debugwand switches through getenv, usually os.Getenv.
func ReadEnvironment(getenv func(string) string) Environment {
	return Environment{
		AutoSelectTarget: truthy(getenv(EnvAutoSelectPod)),
		Plain:            truthy(getenv(EnvPlain)),
		LogLevel:         strings.TrimSpace(getenv(EnvLogLevel)),
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
