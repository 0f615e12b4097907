package injector

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"debugwand/internal/failure"
	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

const (
	attacherName = "debugwand_attacher.py"
	// attachTimeout bounds one attach exec. sys.remote_exec only schedules
	// the script, so it returns quickly even when the payload waits.
	attachTimeout = 60 * time.Second
)

var alreadyActiveMarkers = []string{"already listening", "already in use", "already been called"}

var permissionMarkers = []string{"cap_sys_ptrace", "permission denied", "operation not permitted"}

// Result describes one completed injection.
type Result struct {
	PID           int
	AlreadyActive bool
	// RemoteFiles are staged in the target and removed at session end.
	RemoteFiles []string
	// LocalFiles are temporary files on this machine.
	LocalFiles []string
	Output     string
}

// Config holds the Injector's settings.
type Config struct {
	StagingDir   string
	PythonBinary string
	// LocalTempDir is where rendered payloads are written; "" uses os.TempDir.
	LocalTempDir string
}

// Injector stages scripts in a target and runs them inside a live process.
type Injector struct {
	runtime  target.Runtime
	attacher Attacher
	cfg      Config
}

func New(rt target.Runtime, cfg Config) *Injector {
	if cfg.StagingDir == "" {
		cfg.StagingDir = "/tmp"
	}
	if cfg.PythonBinary == "" {
		cfg.PythonBinary = "python3"
	}
	return &Injector{
		runtime: rt,
		cfg:     cfg,
		attacher: &PythonAttacher{
			Runtime:      rt,
			PythonBinary: cfg.PythonBinary,
			AttacherPath: path.Join(cfg.StagingDir, attacherName),
		},
	}
}

// WithAttacher replaces the attach primitive.
func (i *Injector) WithAttacher(a Attacher) *Injector {
	i.attacher = a
	return i
}

// Inject starts a debugpy listener inside process pid of t.
func (i *Injector) Inject(ctx context.Context, t target.Target, pid int, p Payload) (Result, error) {
	source, err := p.Render()
	if err != nil {
		return Result{}, err
	}
	local, err := i.writeTemp("debugwand-payload-*.py", []byte(source))
	if err != nil {
		return Result{}, err
	}
	remote := path.Join(i.cfg.StagingDir, fmt.Sprintf("debugwand_payload_%d.py", p.Port))

	res, err := i.stageAndAttach(ctx, t, pid, local, remote, p.Port)
	res.LocalFiles = append(res.LocalFiles, local)
	if err != nil {
		return res, err
	}
	if res.AlreadyActive {
		logging.Info("Injector", "debugpy already listening on port %d in %s, reusing it", p.Port, t)
	} else {
		logging.Info("Injector", "Injected debugpy into PID %d in %s (port %d, wait=%t)", pid, t, p.Port, p.Wait)
	}
	return res, nil
}

// InjectScript runs an arbitrary local Python script inside process pid of t.
func (i *Injector) InjectScript(ctx context.Context, t target.Target, pid int, localScript string) (Result, error) {
	if _, err := os.Stat(localScript); err != nil {
		return Result{}, &failure.ValidationError{Field: "--script", Message: err.Error()}
	}
	remote := path.Join(i.cfg.StagingDir, "debugwand_script_"+filepath.Base(localScript))
	return i.stageAndAttach(ctx, t, pid, localScript, remote, 0)
}

func (i *Injector) stageAndAttach(ctx context.Context, t target.Target, pid int, local, remote string, port int) (Result, error) {
	result := Result{PID: pid}

	attacherLocal, err := i.writeTemp("debugwand-attacher-*.py", attacherScript)
	if err != nil {
		return result, err
	}
	defer os.Remove(attacherLocal)

	attacherRemote := path.Join(i.cfg.StagingDir, attacherName)
	if err := i.runtime.CopyFile(ctx, t, attacherLocal, attacherRemote); err != nil {
		return result, fmt.Errorf("failed to stage attacher: %w", err)
	}
	result.RemoteFiles = append(result.RemoteFiles, attacherRemote)

	if err := i.runtime.CopyFile(ctx, t, local, remote); err != nil {
		return result, fmt.Errorf("failed to stage script: %w", err)
	}
	result.RemoteFiles = append(result.RemoteFiles, remote)

	attachCtx, cancel := context.WithTimeout(ctx, attachTimeout)
	defer cancel()
	out, err := i.attacher.Attach(attachCtx, t, pid, remote, port)
	if err != nil {
		return result, fmt.Errorf("failed to run attacher in %s: %w", t, err)
	}
	result.Output = out.Combined()
	logging.Debug("Injector", "attacher exit=%d output=%q", out.ExitCode, result.Output)

	alreadyActive, err := classify(pid, t.Kind, out)
	result.AlreadyActive = alreadyActive
	return result, err
}

// classify maps attacher output onto a result. An already-active listener
// is success whatever the exit code.
func classify(pid int, kind target.Kind, out target.ExecResult) (bool, error) {
	text := strings.ToLower(out.Combined())
	if containsAny(text, alreadyActiveMarkers) {
		return true, nil
	}
	if containsAny(text, permissionMarkers) {
		return false, &failure.PermissionError{TargetKind: failure.TargetKind(kind), Output: out.Combined()}
	}
	if out.ExitCode != 0 {
		return false, &failure.InjectionFailedError{PID: pid, ExitCode: out.ExitCode, Output: out.Combined()}
	}
	return false, nil
}

func (i *Injector) writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(i.cfg.LocalTempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
