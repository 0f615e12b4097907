package session

import (
	"context"
	"time"

	"debugwand/internal/config"
	"debugwand/internal/process"
	"debugwand/pkg/logging"
)

// monitor runs the Monitoring state. It returns nil when the target should
// be reconnected and an error when the session must end.
func (c *Controller) monitor(ctx context.Context) error {
	c.setState(StateMonitoring)
	interval := orDefault(c.cfg.PollInterval, config.DefaultPollInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.handle.Done():
			c.reporter.Warn("Port forward to %s closed", c.target)
			return nil
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		outcome, pid := c.evaluateTick(ctx)
		logging.Debug("Session", "Tick: %s (pid %d)", outcome, pid)
		switch outcome {
		case TickUnchanged:
		case TickWorkerChanged:
			if err := c.reinject(ctx, pid); err != nil {
				if ctx.Err() != nil || isTerminal(err) {
					return err
				}
				c.reporter.Warn("Re-injection into PID %d failed: %v", pid, err)
				return nil
			}
			c.setState(StateMonitoring)
		case TickNotReload:
			// Nothing to follow; the session lives as long as the tunnel
			// and the target.
			return c.awaitLoss(ctx, ticker.C)
		case TickLost:
			c.reporter.Warn("%s is no longer reachable", c.target)
			return nil
		}

		if c.hooks.OnPoll != nil {
			c.hooks.OnPoll(c.pid)
		}
	}
}

// evaluateTick polls the target once and reports what changed. The returned
// PID is the worker to switch to for TickWorkerChanged and the current PID
// otherwise.
func (c *Controller) evaluateTick(ctx context.Context) (TickOutcome, int) {
	ps, err := c.runtime.ListProcesses(ctx, c.target)
	if err != nil {
		logging.Debug("Session", "Process listing for %s failed: %v", c.target, err)
		return TickLost, c.pid
	}
	reload, worker := process.DetectReloadMode(ps)
	switch {
	case !reload, c.cfg.ExplicitPID != 0:
		return TickNotReload, c.pid
	case worker == nil, worker.PID == c.pid:
		return TickUnchanged, c.pid
	default:
		return TickWorkerChanged, worker.PID
	}
}

// awaitLoss blocks until the tunnel closes or the target stops answering.
// A published container port has no tunnel to watch, so the process
// listing is the only signal there.
func (c *Controller) awaitLoss(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.handle.Done():
			c.reporter.Warn("Connection to %s lost", c.target)
			return nil
		case <-tick:
		}
		if _, err := c.runtime.ListProcesses(ctx, c.target); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Debug("Session", "Process listing for %s failed: %v", c.target, err)
			c.reporter.Warn("%s is no longer reachable", c.target)
			return nil
		}
		if c.hooks.OnPoll != nil {
			c.hooks.OnPoll(c.pid)
		}
	}
}

// reinject moves the session to a restarted worker. The tracked PID only
// changes once the injection succeeded.
func (c *Controller) reinject(ctx context.Context, pid int) error {
	c.setState(StateReinjecting)
	c.reporter.Info("Worker restarted (PID %d -> %d)", c.pid, pid)
	if err := c.inject(ctx, c.target, pid, false); err != nil {
		return err
	}
	c.setPID(pid)
	if c.hooks.OnReinject != nil {
		c.hooks.OnReinject(pid)
	}
	logging.Info("Session", "Re-injected debugpy into worker PID %d in %s", pid, c.target)
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
