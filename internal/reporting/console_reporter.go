package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"debugwand/internal/failure"
	"debugwand/pkg/logging"
)

// ConsoleReporter writes session output to a terminal. In ModePlain it
// emits one key=value line per message and never writes escape sequences.
type ConsoleReporter struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	st     styles
}

// NewConsoleReporter creates a reporter writing regular output to out and
// errors to errOut.
func NewConsoleReporter(out, errOut io.Writer, mode Mode) *ConsoleReporter {
	profile := termenv.Ascii
	if mode == ModeDecorated {
		profile = termenv.NewOutput(out).EnvColorProfile()
	}
	r := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	r.SetColorProfile(profile)
	return &ConsoleReporter{
		out:    out,
		errOut: errOut,
		mode:   mode,
		st:     newStyles(r),
	}
}

func (c *ConsoleReporter) Step(format string, args ...any) {
	c.line("step", c.st.accent.Render("●"), format, args...)
}

func (c *ConsoleReporter) Info(format string, args ...any) {
	c.line("info", c.st.muted.Render("·"), format, args...)
}

func (c *ConsoleReporter) Success(format string, args ...any) {
	c.line("ok", c.st.success.Render("✓"), format, args...)
}

func (c *ConsoleReporter) Warn(format string, args ...any) {
	c.line("warn", c.st.warn.Render("!"), format, args...)
}

func (c *ConsoleReporter) Error(err error) {
	if err == nil {
		return
	}
	hint := failure.Hint(err)
	logging.Debug("Reporter", "reporting error kind=%s: %v", failure.KindOf(err), err)

	if c.mode == ModePlain {
		fmt.Fprintf(c.errOut, "level=error msg=%s\n", strconv.Quote(err.Error()))
		if hint != "" {
			fmt.Fprintf(c.errOut, "level=hint msg=%s\n", strconv.Quote(hint))
		}
		return
	}

	fmt.Fprintf(c.errOut, "%s %s\n", c.st.failure.Render("✗"), err.Error())
	if hint != "" {
		for _, l := range strings.Split(hint, "\n") {
			fmt.Fprintf(c.errOut, "  %s\n", c.st.muted.Render(l))
		}
	}
}

func (c *ConsoleReporter) Advisory(title string, lines ...string) {
	if c.mode == ModePlain {
		fmt.Fprintf(c.out, "level=advisory title=%s\n", strconv.Quote(title))
		for _, l := range lines {
			fmt.Fprintf(c.out, "level=advisory msg=%s\n", strconv.Quote(l))
		}
		return
	}
	body := c.st.bold.Render(title)
	if len(lines) > 0 {
		body += "\n" + strings.Join(lines, "\n")
	}
	fmt.Fprintln(c.out, c.st.panel.Render(body))
}

func (c *ConsoleReporter) ConnectionInfo(port int, service, remoteRoot string) {
	launch, err := LaunchJSON(port, service, remoteRoot)
	if err != nil {
		logging.Error("Reporter", err, "could not render launch configuration")
	}

	if c.mode == ModePlain {
		fmt.Fprintf(c.out, "level=ready host=localhost port=%d service=%s remote_root=%s\n",
			port, strconv.Quote(service), strconv.Quote(remoteRoot))
		if launch != "" {
			fmt.Fprintln(c.out, launch)
		}
		return
	}

	fmt.Fprintf(c.out, "%s Debugger ready on %s\n",
		c.st.success.Render("✓"), c.st.bold.Render(fmt.Sprintf("localhost:%d", port)))
	fmt.Fprintf(c.out, "  %s %s\n", c.st.muted.Render("service:    "), service)
	fmt.Fprintf(c.out, "  %s %s\n", c.st.muted.Render("remote root:"), remoteRoot)
	if launch != "" {
		fmt.Fprintln(c.out, c.st.muted.Render("  VS Code launch.json:"))
		fmt.Fprintln(c.out, launch)
	}
}

func (c *ConsoleReporter) Table(headers []string, rows [][]string) {
	if c.mode == ModePlain {
		keys := make([]string, len(headers))
		for i, h := range headers {
			keys[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		}
		for _, row := range rows {
			parts := make([]string, 0, len(row))
			for i, cell := range row {
				if i >= len(keys) {
					break
				}
				parts = append(parts, keys[i]+"="+quoteIfNeeded(cell))
			}
			fmt.Fprintln(c.out, strings.Join(parts, " "))
		}
		return
	}

	oddStyle := c.st.cell.Foreground(dim)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(c.st.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return c.st.header
			case row%2 == 0:
				return c.st.cell
			default:
				return oddStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(c.out, t.String())
}

func (c *ConsoleReporter) line(level, icon, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.mode == ModePlain {
		fmt.Fprintf(c.out, "level=%s msg=%s\n", level, strconv.Quote(msg))
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", icon, msg)
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}
