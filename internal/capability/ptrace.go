package capability

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

// capSysPtrace is the bit number of CAP_SYS_PTRACE in a capability mask.
const capSysPtrace = 19

// Result is the outcome of a capability probe.
type Result int

const (
	Unknown Result = iota
	Present
	Missing
)

func (r Result) String() string {
	switch r {
	case Present:
		return "present"
	case Missing:
		return "missing"
	default:
		return "unknown"
	}
}

// Check reports whether a target can ptrace its own processes and how that
// was determined.
type Check struct {
	Result Result
	// Source is the probe that produced Result: "capsh" or "/proc/1/status".
	Source string
	Detail string
}

// CheckPtrace probes t for CAP_SYS_PTRACE. capsh is preferred; images
// without it fall back to the effective capability mask of PID 1.
// An error means the target could not be reached at all.
func CheckPtrace(ctx context.Context, rt target.Runtime, t target.Target) (Check, error) {
	res, err := rt.Exec(ctx, t, []string{"capsh", "--print"})
	if err != nil {
		return Check{}, fmt.Errorf("failed to run capsh in %s: %w", t, err)
	}
	if res.ExitCode == 0 {
		if r, detail := ParseCapsh(res.Stdout); r != Unknown {
			return Check{Result: r, Source: "capsh", Detail: detail}, nil
		}
	}
	logging.Debug("Capability", "capsh unavailable in %s (exit %d), reading /proc/1/status", t, res.ExitCode)

	res, err = rt.Exec(ctx, t, []string{"cat", "/proc/1/status"})
	if err != nil {
		return Check{}, fmt.Errorf("failed to read /proc/1/status in %s: %w", t, err)
	}
	if res.ExitCode != 0 {
		return Check{Result: Unknown, Detail: strings.TrimSpace(res.Combined())}, nil
	}
	r, detail := ParseCapEff(res.Stdout)
	return Check{Result: r, Source: "/proc/1/status", Detail: detail}, nil
}

// ParseCapsh reads the "Current:" line of capsh --print output.
func ParseCapsh(out string) (Result, string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Current:") {
			continue
		}
		current := strings.TrimSpace(strings.TrimPrefix(line, "Current:"))
		switch {
		case strings.Contains(current, "cap_sys_ptrace"):
			return Present, current
		// "=ep" alone grants every capability.
		case current == "=ep":
			return Present, current
		default:
			return Missing, current
		}
	}
	return Unknown, ""
}

// ParseCapEff tests the CAP_SYS_PTRACE bit of the CapEff mask in a
// /proc/<pid>/status document.
func ParseCapEff(status string) (Result, string) {
	for _, line := range strings.Split(status, "\n") {
		if !strings.HasPrefix(line, "CapEff:") {
			continue
		}
		hex := strings.TrimSpace(strings.TrimPrefix(line, "CapEff:"))
		mask, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return Unknown, hex
		}
		if mask&(1<<capSysPtrace) != 0 {
			return Present, "CapEff=" + hex
		}
		return Missing, "CapEff=" + hex
	}
	return Unknown, ""
}
