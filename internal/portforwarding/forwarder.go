package portforwarding

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"debugwand/internal/failure"
	"debugwand/internal/prompt"
	"debugwand/internal/reporting"
	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

const (
	DefaultGrace           = 2 * time.Second
	DefaultReclaimAttempts = 10
	DefaultReclaimInterval = time.Second
)

// Forwarder opens tunnels through a runtime.
type Forwarder struct {
	Runtime  target.Runtime
	Prompter prompt.Prompter
	Reporter reporting.Reporter

	// Grace is how long a fresh tunnel must stay up to count as established.
	Grace           time.Duration
	ReclaimAttempts int
	ReclaimInterval time.Duration

	available  func(port int) bool
	probeOwner func(port int) (Owner, bool)
	terminate  func(pid int) error
	selfPID    int
}

func NewForwarder(rt target.Runtime, p prompt.Prompter, r reporting.Reporter, grace time.Duration) *Forwarder {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Forwarder{
		Runtime:         rt,
		Prompter:        p,
		Reporter:        r,
		Grace:           grace,
		ReclaimAttempts: DefaultReclaimAttempts,
		ReclaimInterval: DefaultReclaimInterval,
		available:       IsPortAvailable,
		probeOwner:      ProbeOwner,
		terminate:       terminateProcess,
		selfPID:         os.Getpid(),
	}
}

// Open forwards 127.0.0.1:localPort to remotePort in t.
func (f *Forwarder) Open(ctx context.Context, t target.Target, localPort, remotePort int) (*Handle, error) {
	if da, ok := f.Runtime.(target.DirectAccess); ok {
		if hostPort, ok := da.PublishedPort(ctx, t, remotePort); ok && hostPort == localPort {
			logging.Info("PortForward", "Port %d of %s is published on the host, no tunnel needed", remotePort, t)
			return NewDirectHandle(t, localPort, remotePort), nil
		}
	}

	if err := f.ensurePortFree(ctx, localPort, remotePort); err != nil {
		return nil, err
	}

	logging.Debug("PortForward", "Forwarding 127.0.0.1:%d to %s:%d", localPort, t, remotePort)
	tun, err := f.Runtime.Forward(ctx, t, localPort, remotePort)
	if err != nil {
		return nil, &failure.ForwardSetupFailedError{Port: localPort, Err: err}
	}

	select {
	case <-tun.Ready():
	case <-tun.Done():
		return nil, &failure.ForwardSetupFailedError{Port: localPort, Err: exitErr(tun)}
	case <-ctx.Done():
		tun.Close()
		return nil, ctx.Err()
	}

	grace := time.NewTimer(f.Grace)
	defer grace.Stop()
	select {
	case <-tun.Done():
		return nil, &failure.ForwardSetupFailedError{Port: localPort, Err: exitErr(tun)}
	case <-ctx.Done():
		tun.Close()
		return nil, ctx.Err()
	case <-grace.C:
	}

	logging.Info("PortForward", "Port forward 127.0.0.1:%d -> %s:%d established", localPort, t, remotePort)
	return NewTunnelHandle(t, localPort, remotePort, tun), nil
}

func exitErr(tun target.Tunnel) error {
	if err := tun.Err(); err != nil {
		return err
	}
	return fmt.Errorf("tunnel exited during startup")
}

// ensurePortFree makes localPort bindable or explains why it is not.
func (f *Forwarder) ensurePortFree(ctx context.Context, port, remotePort int) error {
	if f.available(port) {
		return nil
	}

	owner, known := f.probeOwner(port)
	switch {
	case !known:
		logging.Warn("PortForward", "Port %d is busy and its owner could not be determined; waiting for it to be released", port)
	case owner.PID == f.selfPID:
		// A tunnel this process closed a moment ago is still unbinding.
		logging.Debug("PortForward", "Port %d is still held by this process; waiting for it to be released", port)
	case IsStaleForwarder(owner, port, remotePort):
		if err := f.reclaim(port, owner); err != nil {
			return err
		}
	default:
		return &failure.PortInUseError{Port: port, PID: owner.PID, Command: owner.Command}
	}

	for i := 0; i < f.ReclaimAttempts; i++ {
		if f.available(port) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.ReclaimInterval):
		}
	}
	// Let the forward itself report the conflict.
	logging.Warn("PortForward", "Port %d still appears busy, attempting the forward anyway", port)
	return nil
}

func (f *Forwarder) reclaim(port int, owner Owner) error {
	msg := fmt.Sprintf("Port %d is held by a previous forwarder (PID %d: %s). Terminate it?", port, owner.PID, owner.Command)
	ok, err := f.Prompter.Confirm(msg, false)
	if err != nil {
		return err
	}
	if !ok {
		return &failure.PortInUseError{Port: port, PID: owner.PID, Command: owner.Command}
	}
	if err := f.terminate(owner.PID); err != nil {
		return fmt.Errorf("failed to terminate PID %d holding port %d: %w", owner.PID, port, err)
	}
	if f.Reporter != nil {
		f.Reporter.Info("Terminated stale forwarder PID %d on port %d", owner.PID, port)
	}
	return nil
}

// Handle is an open forward.
type Handle struct {
	Target     target.Target
	LocalPort  int
	RemotePort int

	tunnel target.Tunnel
	closed chan struct{}
	once   sync.Once
}

// NewTunnelHandle wraps a running tunnel.
func NewTunnelHandle(t target.Target, localPort, remotePort int, tun target.Tunnel) *Handle {
	return &Handle{Target: t, LocalPort: localPort, RemotePort: remotePort, tunnel: tun, closed: make(chan struct{})}
}

// NewDirectHandle is a handle for a port that needs no tunnel.
func NewDirectHandle(t target.Target, localPort, remotePort int) *Handle {
	return &Handle{Target: t, LocalPort: localPort, RemotePort: remotePort, closed: make(chan struct{})}
}

// Done is closed when the forward stops, either on its own or through Close.
func (h *Handle) Done() <-chan struct{} {
	if h.tunnel == nil {
		return h.closed
	}
	return h.tunnel.Done()
}

func (h *Handle) Alive() bool {
	select {
	case <-h.Done():
		return false
	case <-h.closed:
		return false
	default:
		return true
	}
}

// Close stops the forward. It is safe to call more than once.
func (h *Handle) Close() error {
	var err error
	h.once.Do(func() {
		close(h.closed)
		if h.tunnel != nil {
			err = h.tunnel.Close()
		}
		logging.Debug("PortForward", "Closed forward on port %d", h.LocalPort)
	})
	return err
}

func (h *Handle) Status() StatusDetail {
	select {
	case <-h.closed:
		return StatusDetailStopped
	default:
	}
	if h.tunnel == nil {
		return StatusDetailDirect
	}
	select {
	case <-h.tunnel.Done():
		return StatusDetailFailed
	case <-h.tunnel.Ready():
		return StatusDetailForwardingActive
	default:
		return StatusDetailInitializing
	}
}
