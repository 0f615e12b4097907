package reporting

import (
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// Reporter is the user-facing output sink. Diagnostic logging goes through
// pkg/logging instead; the Reporter only carries what the user acts on.
type Reporter interface {
	// Step announces a phase of the session, e.g. "Injecting debugpy into PID 55".
	Step(format string, args ...any)
	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	// Error prints err and its remediation hint, if any.
	Error(err error)
	// Advisory prints a highlighted panel, used for the reload-mode notice.
	Advisory(title string, lines ...string)
	// ConnectionInfo prints where to attach and the editor launch configuration.
	ConnectionInfo(port int, service, remoteRoot string)
	Table(headers []string, rows [][]string)
}

// Mode selects how the ConsoleReporter renders.
type Mode int

const (
	ModeDecorated Mode = iota
	ModePlain
)

func (m Mode) String() string {
	if m == ModePlain {
		return "plain"
	}
	return "decorated"
}

// DetectMode picks plain output when forced, when running in CI or a dumb
// terminal, when NO_COLOR is set, or when w is not a terminal.
func DetectMode(forcePlain bool, w io.Writer, getenv func(string) string) Mode {
	if forcePlain {
		return ModePlain
	}
	if getenv("CI") != "" || strings.EqualFold(getenv("TERM"), "dumb") || getenv("NO_COLOR") != "" {
		return ModePlain
	}
	if termenv.NewOutput(w).Profile == termenv.Ascii {
		return ModePlain
	}
	return ModeDecorated
}
