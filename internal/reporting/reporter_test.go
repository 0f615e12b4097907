package reporting

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugwand/internal/failure"
)

func noEnv(string) string { return "" }

func TestDetectMode(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, ModePlain, DetectMode(true, &buf, noEnv))
	assert.Equal(t, ModePlain, DetectMode(false, &buf, func(k string) string {
		if k == "CI" {
			return "true"
		}
		return ""
	}))
	assert.Equal(t, ModePlain, DetectMode(false, &buf, func(k string) string {
		if k == "TERM" {
			return "dumb"
		}
		return ""
	}))
	// A bytes.Buffer is not a terminal.
	assert.Equal(t, ModePlain, DetectMode(false, &buf, noEnv))
}

func TestConsoleReporter_PlainHasNoEscapes(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewConsoleReporter(&out, &errOut, ModePlain)

	r.Step("Injecting into PID %d", 55)
	r.Success("done")
	r.Advisory("Reload mode detected", "Worker PID 55 will be re-injected on restart")
	r.Table([]string{"Name", "Status"}, [][]string{{"checkout-abc", "Running"}, {"x y", "Pending"}})
	r.Error(&failure.PortInUseError{Port: 5679, PID: 1, Command: "other-app"})

	assert.NotContains(t, out.String(), "\x1b[")
	assert.NotContains(t, errOut.String(), "\x1b[")
	assert.Contains(t, out.String(), `level=step msg="Injecting into PID 55"`)
	assert.Contains(t, out.String(), `level=advisory title="Reload mode detected"`)
	assert.Contains(t, out.String(), "name=checkout-abc status=Running")
	assert.Contains(t, out.String(), `name="x y" status=Pending`)
	assert.Contains(t, errOut.String(), "level=error")
	assert.Contains(t, errOut.String(), "--port")
}

func TestConsoleReporter_DecoratedTable(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewConsoleReporter(&out, &errOut, ModeDecorated)
	r.Table([]string{"PID", "Command"}, [][]string{{"1", "python -m app"}})

	s := out.String()
	assert.Contains(t, s, "PID")
	assert.Contains(t, s, "python -m app")
	assert.Contains(t, s, "╭")
}

func TestConsoleReporter_ConnectionInfo(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewConsoleReporter(&out, &errOut, ModePlain)
	r.ConnectionInfo(5679, "checkout", "/app")

	s := out.String()
	assert.Contains(t, s, "port=5679")
	assert.Contains(t, s, `"remoteRoot": "/app"`)
}

func TestLaunchJSON(t *testing.T) {
	raw, err := LaunchJSON(5679, "checkout", "/srv/app")
	require.NoError(t, err)

	var doc struct {
		Version        string         `json:"version"`
		Configurations []LaunchConfig `json:"configurations"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Len(t, doc.Configurations, 1)

	cfg := doc.Configurations[0]
	assert.Equal(t, "debugpy", cfg.Type)
	assert.Equal(t, "attach", cfg.Request)
	assert.Equal(t, 5679, cfg.Connect.Port)
	assert.Equal(t, "${workspaceFolder}", cfg.PathMappings[0].LocalRoot)
	assert.Equal(t, "/srv/app", cfg.PathMappings[0].RemoteRoot)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	got := Truncate(strings.Repeat("a", 100), 28)
	assert.Equal(t, 28, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestCaptureReporter(t *testing.T) {
	c := NewCaptureReporter()
	c.Warn("worker %d absent", 10)
	c.Advisory("Reload", "line")
	assert.True(t, c.Has("warn", "worker 10"))
	assert.Equal(t, 1, c.Count("advisory"))
}
