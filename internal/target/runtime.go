package target

import (
	"context"

	"debugwand/internal/process"
)

// ExecResult captures the output of a command run inside a target.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout followed by stderr.
func (r ExecResult) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runtime is the control plane a session talks to. Implementations exist for
// Kubernetes (internal/kube) and Docker (internal/container).
//
// A non-zero exit code from Exec is reported through ExecResult, not as an
// error; errors mean the command could not be run at all.
type Runtime interface {
	// Describe names the workload the runtime is scoped to, e.g. "service prod/checkout".
	Describe() string
	Kind() Kind
	ListTargets(ctx context.Context) ([]Target, error)
	ListProcesses(ctx context.Context, t Target) ([]process.Record, error)
	Exec(ctx context.Context, t Target, cmd []string) (ExecResult, error)
	CopyFile(ctx context.Context, t Target, localPath, remotePath string) error
	Forward(ctx context.Context, t Target, localPort, remotePort int) (Tunnel, error)
}

// Tunnel is a running port forward. Ready is closed once the local listener
// accepts connections; Done is closed when the tunnel has stopped.
type Tunnel interface {
	Ready() <-chan struct{}
	Done() <-chan struct{}
	Err() error
	Close() error
}

// DirectAccess is implemented by runtimes that can reach a port without a
// tunnel, e.g. a container that already publishes it on the host.
type DirectAccess interface {
	PublishedPort(ctx context.Context, t Target, remotePort int) (hostPort int, ok bool)
}
