package selector

import (
	"fmt"
	"time"

	"debugwand/internal/failure"
	"debugwand/internal/process"
	"debugwand/internal/prompt"
	"debugwand/internal/reporting"
	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

const commandWidth = 80

// Options tune a single PID resolution.
type Options struct {
	// ExplicitPID is the --pid flag; 0 means none.
	ExplicitPID int
	// NonInteractive picks the recommended candidate instead of prompting.
	// Reconnects run this way.
	NonInteractive bool
}

// Resolver decides which target and which process a session attaches to.
type Resolver struct {
	Prompter prompt.Prompter
	Reporter reporting.Reporter
	// Now is used to render target ages; defaults to time.Now.
	Now func() time.Time
}

func NewResolver(p prompt.Prompter, r reporting.Reporter) *Resolver {
	return &Resolver{Prompter: p, Reporter: r, Now: time.Now}
}

// ResolvePID picks the PID to inject into from a process listing of one target.
func (r *Resolver) ResolvePID(ps []process.Record, where string, opts Options) (int, error) {
	if len(ps) == 0 {
		return 0, &failure.NoProcessesError{Target: where}
	}

	if opts.ExplicitPID != 0 {
		if _, ok := process.Find(ps, opts.ExplicitPID); !ok {
			return 0, &failure.PIDNotFoundError{PID: opts.ExplicitPID, Available: process.PIDs(ps)}
		}
		return opts.ExplicitPID, nil
	}

	reload, worker := process.DetectReloadMode(ps)
	if reload {
		if worker != nil {
			if n := len(process.Workers(ps)); n > 1 {
				logging.Warn("Selector", "Found %d reload workers in %s, using the first (PID %d)", n, where, worker.PID)
			}
			r.Reporter.Advisory("Reload mode detected",
				fmt.Sprintf("Attaching to worker PID %d, not the reloader (PID 1).", worker.PID),
				"When the worker restarts after a code change, debugpy is injected into the new worker automatically.",
				"Breakpoints may need to be re-sent after a reload.",
			)
			return worker.PID, nil
		}
		r.Reporter.Warn("Reload mode detected but no worker process is running yet; choosing from all processes")
	}

	candidates := process.MainCandidates(ps)
	if len(candidates) == 1 {
		return candidates[0].PID, nil
	}

	if opts.NonInteractive {
		pid := process.Recommended(candidates)
		logging.Info("Selector", "Auto-selected PID %d out of %d candidates in %s", pid, len(candidates), where)
		return pid, nil
	}

	options := make([]string, len(candidates))
	for i, p := range candidates {
		options[i] = fmt.Sprintf("PID %-6d %s", p.PID, reporting.Truncate(p.Command, commandWidth))
	}
	n, err := r.Prompter.Choose(fmt.Sprintf("Multiple Python processes in %s:", where), options)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > len(candidates) {
		return 0, &failure.InvalidSelectionError{
			Input:  fmt.Sprint(n),
			Reason: fmt.Sprintf("choose a number between 1 and %d", len(candidates)),
		}
	}
	return candidates[n-1].PID, nil
}

// SelectTarget picks one running target. With auto set the newest is used
// without prompting.
func (r *Resolver) SelectTarget(targets []target.Target, auto bool, describe string) (target.Target, error) {
	running := target.SortNewestFirst(target.RunningOnly(targets))
	if len(running) == 0 {
		return target.Target{}, &failure.NoRunningTargetsError{Selector: describe}
	}
	if len(running) == 1 {
		return running[0], nil
	}
	if auto {
		logging.Info("Selector", "Auto-selected newest target %s of %d", running[0], len(running))
		r.Reporter.Info("Auto-selected %s (newest of %d running)", running[0].Name, len(running))
		return running[0], nil
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	options := make([]string, len(running))
	for i, t := range running {
		options[i] = fmt.Sprintf("%s (age %s)", t.Name, HumanAge(t.Age(now())))
	}
	n, err := r.Prompter.Choose(fmt.Sprintf("Multiple running targets for %s:", describe), options)
	if err != nil {
		return target.Target{}, err
	}
	if n < 1 || n > len(running) {
		return target.Target{}, &failure.InvalidSelectionError{
			Input:  fmt.Sprint(n),
			Reason: fmt.Sprintf("choose a number between 1 and %d", len(running)),
		}
	}
	return running[n-1], nil
}

// HumanAge renders d the way kubectl does: 45s, 12m, 3h, 2d.
func HumanAge(d time.Duration) string {
	switch {
	case d <= 0:
		return "?"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
