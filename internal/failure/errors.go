package failure

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind groups errors by how the session reacts to them.
type Kind int

const (
	KindInternal Kind = iota
	KindResolution
	KindPermission
	KindConflict
	KindTransientLiveness
	KindTimeout
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindPermission:
		return "permission"
	case KindConflict:
		return "conflict"
	case KindTransientLiveness:
		return "transient-liveness"
	case KindTimeout:
		return "timeout"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Terminal reports kinds that need operator action before any retry can
// succeed. A live session keeps retrying everything else until its
// reconnect deadline, since targets disappear while they are replaced.
func (k Kind) Terminal() bool {
	return k == KindPermission || k == KindValidation || k == KindConflict
}

// Classified is implemented by every typed error in this package.
type Classified interface {
	error
	Kind() Kind
	Hint() string
}

// KindOf returns the Kind of the first Classified error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var c Classified
	if errors.As(err, &c) {
		return c.Kind()
	}
	return KindInternal
}

// Hint returns the remediation text for err, or "" if it has none.
func Hint(err error) string {
	var c Classified
	if errors.As(err, &c) {
		return c.Hint()
	}
	return ""
}

// TargetKind mirrors target.Kind without importing it.
type TargetKind string

const (
	TargetPod       TargetKind = "pod"
	TargetContainer TargetKind = "container"
)

// NotFoundError is returned when a service, pod or container does not exist.
type NotFoundError struct {
	Resource  string
	Name      string
	Namespace string
	Knative   bool
}

func (e *NotFoundError) Error() string {
	if e.Namespace != "" {
		return fmt.Sprintf("%s %q not found in namespace %q", e.Resource, e.Name, e.Namespace)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
}

func (e *NotFoundError) Kind() Kind { return KindResolution }

func (e *NotFoundError) Hint() string {
	switch e.Resource {
	case "service":
		hint := fmt.Sprintf("List available services with: kubectl get svc -n %s", e.Namespace)
		return hint + "\nKnative services scaled to zero have no pods; send a request to wake them first."
	case "container":
		return "List running containers with: docker ps"
	default:
		return ""
	}
}

// ResolutionError is returned when a service exists but cannot be mapped to pods.
type ResolutionError struct {
	Service   string
	Namespace string
	Reason    string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve pods for service %q in namespace %q: %s", e.Service, e.Namespace, e.Reason)
}

func (e *ResolutionError) Kind() Kind { return KindResolution }

func (e *ResolutionError) Hint() string {
	return "Services without a selector are not backed by pods; target a container with -c instead."
}

// NotRunningError is returned when a target exists but is not in the Running state.
type NotRunningError struct {
	Target string
	Status string
}

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("target %s is not running (status %s)", e.Target, e.Status)
}

func (e *NotRunningError) Kind() Kind { return KindTransientLiveness }

func (e *NotRunningError) Hint() string { return "" }

// NoRunningTargetsError is returned when no candidate target is Running.
type NoRunningTargetsError struct {
	Selector string
}

func (e *NoRunningTargetsError) Error() string {
	if e.Selector == "" {
		return "no running targets found"
	}
	return fmt.Sprintf("no running targets found for %s", e.Selector)
}

func (e *NoRunningTargetsError) Kind() Kind { return KindResolution }

func (e *NoRunningTargetsError) Hint() string {
	return "Check the workload with: debugwand list-targets"
}

// NoProcessesError is returned when a target has no Python processes.
type NoProcessesError struct {
	Target string
}

func (e *NoProcessesError) Error() string {
	return fmt.Sprintf("no Python processes found in %s", e.Target)
}

func (e *NoProcessesError) Kind() Kind { return KindResolution }

func (e *NoProcessesError) Hint() string {
	return "Make sure the application is running under python inside the target."
}

// PIDNotFoundError is returned when an explicitly requested PID is not a Python process.
type PIDNotFoundError struct {
	PID       int
	Available []int
}

func (e *PIDNotFoundError) Error() string {
	return fmt.Sprintf("PID %d not found among Python processes", e.PID)
}

func (e *PIDNotFoundError) Kind() Kind { return KindResolution }

func (e *PIDNotFoundError) Hint() string {
	if len(e.Available) == 0 {
		return ""
	}
	pids := make([]string, 0, len(e.Available))
	for _, p := range e.Available {
		pids = append(pids, fmt.Sprint(p))
	}
	return "Available PIDs: " + strings.Join(pids, ", ")
}

// InvalidSelectionError is returned for an out of range or non-numeric selection.
type InvalidSelectionError struct {
	Input  string
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	if e.Input == "" {
		return "invalid selection: " + e.Reason
	}
	return fmt.Sprintf("invalid selection %q: %s", e.Input, e.Reason)
}

func (e *InvalidSelectionError) Kind() Kind { return KindValidation }

func (e *InvalidSelectionError) Hint() string {
	return "Pass --pid explicitly or set DEBUGWAND_AUTO_SELECT_POD=1 for non-interactive use."
}

// PermissionError is returned when the attach primitive lacks CAP_SYS_PTRACE.
type PermissionError struct {
	TargetKind TargetKind
	Output     string
}

func (e *PermissionError) Error() string {
	return "attaching requires the SYS_PTRACE capability, which the target does not have"
}

func (e *PermissionError) Kind() Kind { return KindPermission }

func (e *PermissionError) Hint() string {
	if e.TargetKind == TargetContainer {
		return strings.Join([]string{
			"Restart the container with: docker run --cap-add=SYS_PTRACE ...",
			"or in docker-compose.yml:",
			"  cap_add:",
			"    - SYS_PTRACE",
		}, "\n")
	}
	return strings.Join([]string{
		"Add the capability to the container securityContext:",
		"  securityContext:",
		"    capabilities:",
		"      add:",
		"        - SYS_PTRACE",
	}, "\n")
}

// InjectionFailedError carries the raw output of a failed attach.
type InjectionFailedError struct {
	PID      int
	ExitCode int
	Output   string
}

func (e *InjectionFailedError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("injection into PID %d failed (exit code %d)", e.PID, e.ExitCode)
	}
	return fmt.Sprintf("injection into PID %d failed (exit code %d): %s", e.PID, e.ExitCode, out)
}

func (e *InjectionFailedError) Kind() Kind { return KindInternal }

func (e *InjectionFailedError) Hint() string {
	return "The target needs Python 3.14+ (sys.remote_exec) and debugpy installed."
}

// PortInUseError is returned when the local port belongs to an unrelated process.
type PortInUseError struct {
	Port    int
	PID     int
	Command string
}

func (e *PortInUseError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("local port %d is in use by %s (PID %d)", e.Port, e.Command, e.PID)
	}
	return fmt.Sprintf("local port %d is in use", e.Port)
}

func (e *PortInUseError) Kind() Kind { return KindConflict }

func (e *PortInUseError) Hint() string {
	return fmt.Sprintf("Stop the process holding port %d or choose another one with --port.", e.Port)
}

// ForwardSetupFailedError is returned when the tunnel dies during setup.
type ForwardSetupFailedError struct {
	Port int
	Err  error
}

func (e *ForwardSetupFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("port forward on %d exited during setup", e.Port)
	}
	return fmt.Sprintf("port forward on %d failed: %v", e.Port, e.Err)
}

func (e *ForwardSetupFailedError) Unwrap() error { return e.Err }

func (e *ForwardSetupFailedError) Kind() Kind { return KindTransientLiveness }

func (e *ForwardSetupFailedError) Hint() string { return "" }

// ReconnectTimeoutError is returned when no replacement target appears in time.
type ReconnectTimeoutError struct {
	Waited time.Duration
}

func (e *ReconnectTimeoutError) Error() string {
	return fmt.Sprintf("no replacement target became ready within %s", e.Waited)
}

func (e *ReconnectTimeoutError) Kind() Kind { return KindTimeout }

func (e *ReconnectTimeoutError) Hint() string {
	return "Restart the session once the workload is healthy again."
}

// ValidationError is a command line usage error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Kind() Kind { return KindValidation }

func (e *ValidationError) Hint() string { return "" }
