package target

import (
	"fmt"
	"time"
)

// Kind distinguishes Kubernetes pods from local containers.
type Kind string

const (
	KindPod       Kind = "pod"
	KindContainer Kind = "container"
)

// Status is the lifecycle phase of a target. Docker states are mapped onto
// the pod phases.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusPending   Status = "Pending"
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
	StatusUnknown   Status = "Unknown"
)

// Target is a snapshot of a pod or container. Values are never updated in
// place; callers re-query the runtime for fresh state.
type Target struct {
	Kind      Kind
	Name      string
	Namespace string
	ID        string // container ID; empty for pods
	Status    Status
	Created   time.Time
	Labels    map[string]string
	NodeName  string
}

// Running reports whether the target is in the Running phase.
func (t Target) Running() bool {
	return t.Status == StatusRunning
}

// Identity is a stable key for the target incarnation.
func (t Target) Identity() string {
	if t.Kind == KindContainer {
		return "container/" + t.Name
	}
	return fmt.Sprintf("pod/%s/%s", t.Namespace, t.Name)
}

func (t Target) String() string {
	if t.Kind == KindContainer {
		return "container " + t.Name
	}
	return fmt.Sprintf("pod %s/%s", t.Namespace, t.Name)
}

// Age returns how long ago the target was created, relative to now.
func (t Target) Age(now time.Time) time.Duration {
	if t.Created.IsZero() {
		return 0
	}
	return now.Sub(t.Created)
}
