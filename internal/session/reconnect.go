package session

import (
	"context"
	"errors"
	"time"

	"debugwand/internal/config"
	"debugwand/internal/failure"
	"debugwand/internal/selector"
	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

// reconnect runs the Reconnecting state until a replacement target is
// injected and forwarded, the timeout expires, or ctx is cancelled.
func (c *Controller) reconnect(ctx context.Context) error {
	c.setState(StateReconnecting)
	c.closeHandle()

	if !c.cfg.AutoReconnect {
		c.reporter.Warn("Connection to %s lost and auto-reconnect is disabled", c.target)
		return errStopped
	}

	timeout := orDefault(c.cfg.ReconnectTimeout, config.DefaultReconnectTimeout)
	interval := orDefault(c.cfg.ReconnectInterval, config.DefaultReconnectInterval)
	deadline := timeNow().Add(timeout)
	c.reporter.Step("Waiting up to %s for a replacement of %s", timeout, c.target)

	for attempt := 1; ; attempt++ {
		err := c.tryReconnect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isTerminal(err) {
			return err
		}
		logging.Debug("Session", "Reconnect attempt %d: %v", attempt, err)

		remaining := deadline.Sub(timeNow())
		if remaining <= 0 {
			return &failure.ReconnectTimeoutError{Waited: timeout}
		}
		if err := sleep(ctx, min(interval, remaining)); err != nil {
			return err
		}
		c.setState(StateReconnecting)
	}
}

// For mocking in tests
var timeNow = time.Now

func (c *Controller) tryReconnect(ctx context.Context) error {
	targets, err := c.runtime.ListTargets(ctx)
	if err != nil {
		return err
	}
	found := c.lookupReplacement(targets)
	if found.Outcome == target.NotFound {
		return errors.New(found.Reason)
	}
	t := found.Target

	ps, err := c.runtime.ListProcesses(ctx, t)
	if err != nil {
		return err
	}
	if len(ps) == 0 {
		return &failure.NoProcessesError{Target: t.String()}
	}

	c.setState(StateSelecting)
	if found.Matched != "" {
		logging.Info("Session", "Replacement %s matched on label %s", t, found.Matched)
	}
	pid, err := c.resolver.ResolvePID(ps, t.String(), selector.Options{NonInteractive: true})
	if err != nil {
		return err
	}

	if err := c.inject(ctx, t, pid, false); err != nil {
		return err
	}
	c.commit(t, pid)
	c.reporter.Success("Reconnected to %s (PID %d)", t, pid)
	return c.forward(ctx)
}

// lookupReplacement finds a successor of the current target. When nothing
// else qualifies and the current target is still running (the tunnel died
// but the workload did not), it is reused.
func (c *Controller) lookupReplacement(targets []target.Target) target.LookupResult {
	found := target.FindReplacement(c.target, targets)
	if found.Outcome == target.Found {
		return found
	}
	for _, t := range targets {
		if t.Identity() == c.target.Identity() && t.Running() {
			return target.FoundTarget(t, "")
		}
	}
	return found
}
