package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"debugwand/internal/failure"
	"debugwand/internal/injector"
	"debugwand/internal/portforwarding"
	"debugwand/internal/reporting"
	"debugwand/internal/selector"
	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

// cleanupTimeout bounds the best-effort removal of staged files. The target
// may already be gone.
const cleanupTimeout = 10 * time.Second

// Injector starts a debug listener inside a process.
type Injector interface {
	Inject(ctx context.Context, t target.Target, pid int, p injector.Payload) (injector.Result, error)
}

// Forwarder opens the local tunnel to the debug port.
type Forwarder interface {
	Open(ctx context.Context, t target.Target, localPort, remotePort int) (*portforwarding.Handle, error)
}

// Config holds the knobs of one session.
type Config struct {
	Port int
	// Wait makes the first injection block the process until a client attaches.
	Wait        bool
	ExplicitPID int
	// AutoSelectTarget picks the newest running target instead of prompting.
	AutoSelectTarget bool
	AutoReconnect    bool

	PollInterval      time.Duration
	ReconnectInterval time.Duration
	ReconnectTimeout  time.Duration
	// Settle is a pause between injecting and forwarding so the listener is
	// bound before the tunnel's first connection.
	Settle time.Duration

	// Service and RemoteRoot only feed the printed launch configuration.
	Service    string
	RemoteRoot string
}

// Hooks observe a running session. Every hook is optional and runs on the
// controller goroutine.
type Hooks struct {
	OnState func(State)
	// OnPoll reports the tracked PID after every monitor tick.
	OnPoll      func(pid int)
	OnPIDChange func(oldPID, newPID int)
	OnReinject  func(pid int)
	// OnConnected fires each time the debug port becomes reachable.
	OnConnected func(t target.Target, pid int)
}

// errStopped ends a session that lost its target with auto-reconnect off.
var errStopped = errors.New("session stopped")

// Controller drives a session through its states. It is not safe for
// concurrent use; Run owns it.
type Controller struct {
	cfg       Config
	runtime   target.Runtime
	resolver  *selector.Resolver
	injector  Injector
	forwarder Forwarder
	reporter  reporting.Reporter
	hooks     Hooks

	state  State
	target target.Target
	pid    int
	handle *portforwarding.Handle

	remote     map[string]*staged
	remoteKeys []string
	local      []string

	cleanupOnce sync.Once
}

type staged struct {
	target target.Target
	files  []string
}

func New(rt target.Runtime, resolver *selector.Resolver, inj Injector, fwd Forwarder, rep reporting.Reporter, cfg Config) *Controller {
	return &Controller{
		cfg:       cfg,
		runtime:   rt,
		resolver:  resolver,
		injector:  inj,
		forwarder: fwd,
		reporter:  rep,
		remote:    map[string]*staged{},
	}
}

func (c *Controller) WithHooks(h Hooks) *Controller {
	c.hooks = h
	return c
}

func (c *Controller) State() State          { return c.state }
func (c *Controller) PID() int              { return c.pid }
func (c *Controller) Target() target.Target { return c.target }

// Run executes the session until the user cancels ctx, the target is lost
// with auto-reconnect disabled, or an unrecoverable error occurs. Cancellation
// is not an error.
func (c *Controller) Run(ctx context.Context) (err error) {
	defer c.cleanup()
	defer func() {
		if ctx.Err() != nil || errors.Is(err, errStopped) {
			err = nil
		}
	}()

	if err := c.start(ctx); err != nil {
		return err
	}
	for {
		if err := c.monitor(ctx); err != nil {
			return err
		}
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	logging.Debug("Session", "State %s -> %s", c.state, s)
	c.state = s
	if c.hooks.OnState != nil {
		c.hooks.OnState(s)
	}
}

func (c *Controller) setPID(pid int) {
	old := c.pid
	c.pid = pid
	if old != pid && c.hooks.OnPIDChange != nil {
		c.hooks.OnPIDChange(old, pid)
	}
}

// start runs Selecting, Injecting and Forwarding for the first target.
func (c *Controller) start(ctx context.Context) error {
	c.setState(StateSelecting)
	c.reporter.Step("Resolving %s", c.runtime.Describe())
	targets, err := c.runtime.ListTargets(ctx)
	if err != nil {
		return err
	}
	t, err := c.resolver.SelectTarget(targets, c.cfg.AutoSelectTarget, c.runtime.Describe())
	if err != nil {
		return err
	}
	c.reporter.Success("Using %s", t)

	ps, err := c.runtime.ListProcesses(ctx, t)
	if err != nil {
		return err
	}
	pid, err := c.resolver.ResolvePID(ps, t.String(), selector.Options{ExplicitPID: c.cfg.ExplicitPID})
	if err != nil {
		return err
	}

	if err := c.inject(ctx, t, pid, c.cfg.Wait); err != nil {
		return err
	}
	c.commit(t, pid)
	return c.forward(ctx)
}

// inject runs the Injecting (or Reinjecting) step and records staged files
// whatever the outcome.
func (c *Controller) inject(ctx context.Context, t target.Target, pid int, wait bool) error {
	if c.state != StateReinjecting {
		c.setState(StateInjecting)
	}
	c.reporter.Step("Injecting debugpy into PID %d in %s", pid, t)
	res, err := c.injector.Inject(ctx, t, pid, injector.Payload{Port: c.cfg.Port, Wait: wait})
	c.track(t, res)
	if err != nil {
		return err
	}
	if res.AlreadyActive {
		c.reporter.Info("debugpy is already listening on port %d, reusing it", c.cfg.Port)
	} else {
		c.reporter.Success("debugpy listening on port %d in PID %d", c.cfg.Port, pid)
	}
	if wait {
		c.reporter.Info("The process is paused until a debugger attaches")
	}
	return sleep(ctx, c.cfg.Settle)
}

// commit makes (t, pid) the session's debug target. Only called after a
// successful injection.
func (c *Controller) commit(t target.Target, pid int) {
	c.target = t
	c.setPID(pid)
}

func (c *Controller) forward(ctx context.Context) error {
	c.setState(StateForwarding)
	c.reporter.Step("Forwarding localhost:%d to %s", c.cfg.Port, c.target)
	h, err := c.forwarder.Open(ctx, c.target, c.cfg.Port, c.cfg.Port)
	if err != nil {
		return err
	}
	c.handle = h
	c.reporter.ConnectionInfo(c.cfg.Port, c.cfg.Service, c.cfg.RemoteRoot)
	if c.hooks.OnConnected != nil {
		c.hooks.OnConnected(c.target, c.pid)
	}
	return nil
}

func (c *Controller) track(t target.Target, res injector.Result) {
	c.local = appendUnique(c.local, res.LocalFiles...)
	if len(res.RemoteFiles) == 0 {
		return
	}
	key := t.Identity()
	entry, ok := c.remote[key]
	if !ok {
		entry = &staged{target: t}
		c.remote[key] = entry
		c.remoteKeys = append(c.remoteKeys, key)
	}
	entry.files = appendUnique(entry.files, res.RemoteFiles...)
}

func (c *Controller) closeHandle() {
	if c.handle == nil {
		return
	}
	if err := c.handle.Close(); err != nil {
		logging.Warn("Session", "Closing port forward: %v", err)
	}
	c.handle = nil
}

// cleanup tears the session down. It runs once, whatever got created.
func (c *Controller) cleanup() {
	c.cleanupOnce.Do(func() {
		c.setState(StateTerminated)
		c.closeHandle()

		for _, f := range c.local {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				logging.Warn("Session", "Removing %s: %v", f, err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		for _, key := range c.remoteKeys {
			entry := c.remote[key]
			cmd := append([]string{"rm", "-f"}, entry.files...)
			res, err := c.runtime.Exec(ctx, entry.target, cmd)
			switch {
			case err != nil:
				logging.Debug("Session", "Could not remove staged files from %s: %v", entry.target, err)
			case res.ExitCode != 0:
				logging.Debug("Session", "rm in %s exited %d: %s", entry.target, res.ExitCode, res.Combined())
			default:
				logging.Debug("Session", "Removed %d staged files from %s", len(entry.files), entry.target)
			}
		}
	})
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, d := range dst {
			if d == it {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, it)
		}
	}
	return dst
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isTerminal(err error) bool {
	return failure.KindOf(err).Terminal()
}
