package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func withConfigPaths(t *testing.T, user, project string) {
	t.Helper()
	originalGetUserConfigPath := getUserConfigPath
	originalGetProjectConfigPath := getProjectConfigPath
	t.Cleanup(func() {
		getUserConfigPath = originalGetUserConfigPath
		getProjectConfigPath = originalGetProjectConfigPath
	})
	getUserConfigPath = func() (string, error) { return user, nil }
	getProjectConfigPath = func() (string, error) { return project, nil }
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	tempDir := t.TempDir()
	withConfigPaths(t,
		filepath.Join(tempDir, "non-existent-user-config.yaml"),
		filepath.Join(tempDir, "non-existent-project-config.yaml"),
	)

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
	assert.Equal(t, 5679, loaded.Debug.Port)
	assert.Equal(t, 2*time.Second, loaded.Timeouts.PollInterval)
	assert.Equal(t, 300*time.Second, loaded.Reconnect.Timeout)
	assert.True(t, loaded.Reconnect.AutoReconnect())
}

func TestLoadConfig_ProjectOverridesUser(t *testing.T) {
	tempDir := t.TempDir()
	userPath := filepath.Join(tempDir, "home", userConfigDir, configFileName)
	projectPath := filepath.Join(tempDir, "project", projectConfigDir, configFileName)
	withConfigPaths(t, userPath, projectPath)

	writeConfigFile(t, userPath, `
debug:
  port: 6000
  remoteRoot: /srv
timeouts:
  pollInterval: 500ms
`)
	writeConfigFile(t, projectPath, `
debug:
  port: 7000
reconnect:
  enabled: false
  timeout: 1m
`)

	loaded, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7000, loaded.Debug.Port)
	assert.Equal(t, "/srv", loaded.Debug.RemoteRoot)
	assert.Equal(t, DefaultStagingDir, loaded.Debug.StagingDir)
	assert.Equal(t, 500*time.Millisecond, loaded.Timeouts.PollInterval)
	assert.Equal(t, time.Minute, loaded.Reconnect.Timeout)
	assert.Equal(t, DefaultReconnectInterval, loaded.Reconnect.Interval)
	assert.False(t, loaded.Reconnect.AutoReconnect())
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	userPath := filepath.Join(tempDir, "user.yaml")
	withConfigPaths(t, userPath, filepath.Join(tempDir, "missing.yaml"))
	writeConfigFile(t, userPath, "debug: [not, a, map")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading user config")
}

func TestLoadConfig_PathErrorIsNotFatal(t *testing.T) {
	withConfigPaths(t, "", "")
	getUserConfigPath = func() (string, error) { return "", errors.New("no home") }
	getProjectConfigPath = func() (string, error) { return "", errors.New("no cwd") }

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, loaded.Debug.Port)
}

func TestGetUserConfigDir(t *testing.T) {
	original := osUserHomeDir
	defer func() { osUserHomeDir = original }()
	osUserHomeDir = func() (string, error) { return "/home/dev", nil }

	dir, err := GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/.config/debugwand", dir)
}

func TestReadEnvironment(t *testing.T) {
	env := map[string]string{
		EnvAutoSelectPod: "1",
		EnvPlain:         "true",
		EnvLogLevel:      " debug ",
	}
	got := ReadEnvironment(func(k string) string { return env[k] })
	assert.True(t, got.AutoSelectTarget)
	assert.True(t, got.Plain)
	assert.Equal(t, "debug", got.LogLevel)

	none := ReadEnvironment(func(string) string { return "" })
	assert.False(t, none.AutoSelectTarget)
	assert.False(t, none.Plain)
}
