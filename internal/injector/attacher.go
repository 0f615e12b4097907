package injector

import (
	"context"
	"strconv"

	"debugwand/internal/target"
)

// Attacher invokes the in-target attach primitive for a staged script.
type Attacher interface {
	Attach(ctx context.Context, t target.Target, pid int, remoteScript string, port int) (target.ExecResult, error)
}

// PythonAttacher runs the staged attacher.py with the target's interpreter.
type PythonAttacher struct {
	Runtime      target.Runtime
	PythonBinary string
	AttacherPath string
}

func (a *PythonAttacher) Attach(ctx context.Context, t target.Target, pid int, remoteScript string, port int) (target.ExecResult, error) {
	cmd := []string{a.PythonBinary, a.AttacherPath, "--pid", strconv.Itoa(pid), "--script", remoteScript}
	if port > 0 {
		cmd = append(cmd, "--port", strconv.Itoa(port))
	}
	return a.Runtime.Exec(ctx, t, cmd)
}
