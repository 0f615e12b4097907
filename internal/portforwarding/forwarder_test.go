package portforwarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugwand/internal/failure"
	"debugwand/internal/process"
	"debugwand/internal/reporting"
	"debugwand/internal/target"
)

type fakeRuntime struct {
	forwards  int
	forward   func() (target.Tunnel, error)
	published map[int]int
}

func (f *fakeRuntime) Describe() string  { return "fake" }
func (f *fakeRuntime) Kind() target.Kind { return target.KindPod }
func (f *fakeRuntime) ListTargets(context.Context) ([]target.Target, error) {
	return nil, nil
}
func (f *fakeRuntime) ListProcesses(context.Context, target.Target) ([]process.Record, error) {
	return nil, nil
}
func (f *fakeRuntime) Exec(context.Context, target.Target, []string) (target.ExecResult, error) {
	return target.ExecResult{}, nil
}
func (f *fakeRuntime) CopyFile(context.Context, target.Target, string, string) error { return nil }

func (f *fakeRuntime) Forward(context.Context, target.Target, int, int) (target.Tunnel, error) {
	f.forwards++
	return f.forward()
}

type directRuntime struct {
	fakeRuntime
}

func (d *directRuntime) PublishedPort(_ context.Context, _ target.Target, remote int) (int, bool) {
	p, ok := d.published[remote]
	return p, ok
}

type fakePrompter struct {
	confirm  bool
	confirms []string

	// unattended answers every question with its default, as a prompter
	// without a terminal does.
	unattended bool
}

func (p *fakePrompter) Choose(string, []string) (int, error) { return 1, nil }
func (p *fakePrompter) Confirm(msg string, def bool) (bool, error) {
	p.confirms = append(p.confirms, msg)
	if p.unattended {
		return def, nil
	}
	return p.confirm, nil
}

func readyTunnel() (target.Tunnel, error) {
	tun := target.NewChanTunnel()
	tun.MarkReady()
	go func() {
		<-tun.StopChan()
		tun.Finish(nil)
	}()
	return tun, nil
}

var pod = target.Target{Kind: target.KindPod, Name: "checkout-abc", Namespace: "prod"}

func newTestForwarder(rt target.Runtime, p *fakePrompter, rep reporting.Reporter) *Forwarder {
	f := NewForwarder(rt, p, rep, 10*time.Millisecond)
	f.ReclaimInterval = time.Millisecond
	f.ReclaimAttempts = 3
	f.available = func(int) bool { return true }
	f.probeOwner = func(int) (Owner, bool) { return Owner{}, false }
	f.terminate = func(int) error { return errors.New("unexpected terminate") }
	return f
}

func TestOpen_Established(t *testing.T) {
	rt := &fakeRuntime{forward: readyTunnel}
	f := newTestForwarder(rt, &fakePrompter{}, reporting.NewCaptureReporter())

	h, err := f.Open(context.Background(), pod, 5679, 5679)
	require.NoError(t, err)
	assert.True(t, h.Alive())
	assert.Equal(t, StatusDetailForwardingActive, h.Status())

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.False(t, h.Alive())
	assert.Equal(t, StatusDetailStopped, h.Status())
}

func TestOpen_PortHeldByOtherProcess(t *testing.T) {
	rt := &fakeRuntime{forward: readyTunnel}
	f := newTestForwarder(rt, &fakePrompter{confirm: true}, reporting.NewCaptureReporter())
	f.available = func(int) bool { return false }
	f.probeOwner = func(int) (Owner, bool) { return Owner{PID: 4242, Command: "other-app --serve"}, true }

	_, err := f.Open(context.Background(), pod, 5679, 5679)
	var pe *failure.PortInUseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "5679")
	assert.Contains(t, err.Error(), "other-app")
	assert.Equal(t, 0, rt.forwards)
}

func TestOpen_ReclaimsStaleForwarder(t *testing.T) {
	rt := &fakeRuntime{forward: readyTunnel}
	prompter := &fakePrompter{confirm: true}
	rep := reporting.NewCaptureReporter()
	f := newTestForwarder(rt, prompter, rep)

	free := false
	var killed int
	f.available = func(int) bool { return free }
	f.probeOwner = func(int) (Owner, bool) {
		return Owner{PID: 777, Command: "kubectl kubectl port-forward pod/checkout-abc 5679:5679"}, true
	}
	f.terminate = func(pid int) error {
		killed = pid
		free = true
		return nil
	}

	h, err := f.Open(context.Background(), pod, 5679, 5679)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, 777, killed)
	require.Len(t, prompter.confirms, 1)
	assert.Contains(t, prompter.confirms[0], "PID 777")
	assert.True(t, rep.Has("info", "Terminated stale forwarder PID 777"))
	assert.Equal(t, 1, rt.forwards)
}

func TestOpen_StaleForwarderDeclined(t *testing.T) {
	rt := &fakeRuntime{forward: readyTunnel}
	f := newTestForwarder(rt, &fakePrompter{confirm: false}, reporting.NewCaptureReporter())
	f.available = func(int) bool { return false }
	f.probeOwner = func(int) (Owner, bool) { return Owner{PID: 9, Command: "debugwand debug"}, true }

	_, err := f.Open(context.Background(), pod, 5679, 5679)
	var pe *failure.PortInUseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, 0, rt.forwards)
}

func TestOpen_UnattendedNeverTerminates(t *testing.T) {
	rt := &fakeRuntime{forward: readyTunnel}
	prompter := &fakePrompter{unattended: true}
	f := newTestForwarder(rt, prompter, reporting.NewCaptureReporter())
	f.available = func(int) bool { return false }
	f.probeOwner = func(int) (Owner, bool) {
		return Owner{PID: 4321, Command: "kubectl port-forward pod/checkout-old 5679:5679"}, true
	}

	_, err := f.Open(context.Background(), pod, 5679, 5679)
	var pe *failure.PortInUseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 4321, pe.PID)
	assert.Len(t, prompter.confirms, 1)
	assert.Equal(t, 0, rt.forwards)
}

func TestOpen_ForeignKubectlIsAConflict(t *testing.T) {
	rt := &fakeRuntime{forward: readyTunnel}
	prompter := &fakePrompter{confirm: true}
	f := newTestForwarder(rt, prompter, reporting.NewCaptureReporter())
	f.available = func(int) bool { return false }
	f.probeOwner = func(int) (Owner, bool) {
		return Owner{PID: 4321, Command: "kubectl port-forward svc/grafana 5679:3000"}, true
	}

	_, err := f.Open(context.Background(), pod, 5679, 5679)
	var pe *failure.PortInUseError
	require.True(t, errors.As(err, &pe))
	assert.Empty(t, prompter.confirms)
}

func TestOpen_OwnListenerIsNotTerminated(t *testing.T) {
	rt := &fakeRuntime{forward: readyTunnel}
	prompter := &fakePrompter{confirm: true}
	f := newTestForwarder(rt, prompter, reporting.NewCaptureReporter())
	f.selfPID = 555
	checks := 0
	f.available = func(int) bool {
		checks++
		return checks > 2
	}
	f.probeOwner = func(int) (Owner, bool) { return Owner{PID: 555, Command: "debugwand debug -s checkout"}, true }

	h, err := f.Open(context.Background(), pod, 5679, 5679)
	require.NoError(t, err)
	defer h.Close()
	assert.Empty(t, prompter.confirms)
	assert.Equal(t, 1, rt.forwards)
}

func TestOpen_UnknownOwnerAttemptsAnyway(t *testing.T) {
	rt := &fakeRuntime{forward: readyTunnel}
	f := newTestForwarder(rt, &fakePrompter{}, reporting.NewCaptureReporter())
	probes := 0
	f.available = func(int) bool {
		probes++
		return false
	}

	h, err := f.Open(context.Background(), pod, 5679, 5679)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, 1+f.ReclaimAttempts, probes)
	assert.Equal(t, 1, rt.forwards)
}

func TestOpen_DeadOnArrival(t *testing.T) {
	rt := &fakeRuntime{forward: func() (target.Tunnel, error) {
		tun := target.NewChanTunnel()
		tun.MarkReady()
		go func() {
			time.Sleep(time.Millisecond)
			tun.Finish(fmt.Errorf("error forwarding port 5679: connection refused"))
		}()
		return tun, nil
	}}
	f := newTestForwarder(rt, &fakePrompter{}, reporting.NewCaptureReporter())
	f.Grace = time.Second

	_, err := f.Open(context.Background(), pod, 5679, 5679)
	var fe *failure.ForwardSetupFailedError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Error(), "connection refused")
}

func TestOpen_ForwardError(t *testing.T) {
	rt := &fakeRuntime{forward: func() (target.Tunnel, error) {
		return nil, errors.New("pods \"checkout-abc\" not found")
	}}
	f := newTestForwarder(rt, &fakePrompter{}, reporting.NewCaptureReporter())

	_, err := f.Open(context.Background(), pod, 5679, 5679)
	var fe *failure.ForwardSetupFailedError
	assert.True(t, errors.As(err, &fe))
}

func TestOpen_DirectAccess(t *testing.T) {
	rt := &directRuntime{fakeRuntime{forward: readyTunnel, published: map[int]int{5679: 5679}}}
	f := newTestForwarder(rt, &fakePrompter{}, reporting.NewCaptureReporter())
	f.available = func(int) bool { return false }

	h, err := f.Open(context.Background(), target.Target{Kind: target.KindContainer, Name: "api"}, 5679, 5679)
	require.NoError(t, err)
	assert.Equal(t, StatusDetailDirect, h.Status())
	assert.True(t, h.Alive())
	assert.Equal(t, 0, rt.forwards)

	require.NoError(t, h.Close())
	select {
	case <-h.Done():
	default:
		t.Fatal("direct handle not done after close")
	}
}

func TestHandle_TunnelExit(t *testing.T) {
	tun := target.NewChanTunnel()
	tun.MarkReady()
	h := NewTunnelHandle(pod, 5679, 5679, tun)
	assert.True(t, h.Alive())

	tun.Finish(errors.New("lost connection to pod"))
	assert.False(t, h.Alive())
	assert.Equal(t, StatusDetailFailed, h.Status())
}

func TestIsStaleForwarder(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{"kubectl port-forward svc/x 5679", true},
		{"kubectl kubectl port-forward pod/checkout-abc 5679:5679", true},
		{"/usr/local/bin/debugwand debug -s x", true},
		{"kubectl port-forward svc/grafana 5679:3000", false},
		{"kubectl port-forward svc/x 8080:5679", false},
		{"kubectl get pods -w", false},
		{"postgres", false},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStaleForwarder(Owner{PID: 10, Command: tt.command}, 5679, 5679))
		})
	}
}

func TestProbeOwner(t *testing.T) {
	orig := commandOutput
	defer func() { commandOutput = orig }()

	t.Run("lsof", func(t *testing.T) {
		commandOutput = func(name string, args ...string) ([]byte, error) {
			switch name {
			case "lsof":
				assert.Contains(t, args, "-iTCP:5679")
				return []byte("812\n311\n"), nil
			case "ps":
				assert.Equal(t, "311", args[len(args)-1])
				return []byte("kubectl kubectl port-forward pod/x 5679\n"), nil
			}
			return nil, errors.New("unexpected " + name)
		}
		owner, ok := ProbeOwner(5679)
		require.True(t, ok)
		assert.Equal(t, 311, owner.PID)
		assert.True(t, strings.HasPrefix(owner.Command, "kubectl"))
	})

	t.Run("ss fallback", func(t *testing.T) {
		commandOutput = func(name string, args ...string) ([]byte, error) {
			switch name {
			case "lsof":
				return nil, errors.New("executable file not found")
			case "ss":
				return []byte("State  Recv-Q Send-Q Local Address:Port Peer Address:Port Process\n" +
					"LISTEN 0      4096   127.0.0.1:8080     0.0.0.0:*     users:((\"nginx\",pid=10,fd=6))\n" +
					"LISTEN 0      4096   127.0.0.1:5679     0.0.0.0:*     users:((\"other-app\",pid=2024,fd=8))\n"), nil
			case "ps":
				return []byte(""), nil
			}
			return nil, errors.New("unexpected " + name)
		}
		owner, ok := ProbeOwner(5679)
		require.True(t, ok)
		assert.Equal(t, 2024, owner.PID)
		assert.Equal(t, "unknown", owner.Command)
	})

	t.Run("no tools", func(t *testing.T) {
		commandOutput = func(string, ...string) ([]byte, error) { return nil, errors.New("not found") }
		_, ok := ProbeOwner(5679)
		assert.False(t, ok)
	})
}
