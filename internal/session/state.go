package session

// State is a phase of a debug session.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateInjecting
	StateForwarding
	StateMonitoring
	StateReinjecting
	StateReconnecting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSelecting:
		return "Selecting"
	case StateInjecting:
		return "Injecting"
	case StateForwarding:
		return "Forwarding"
	case StateMonitoring:
		return "Monitoring"
	case StateReinjecting:
		return "Reinjecting"
	case StateReconnecting:
		return "Reconnecting"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// TickOutcome is what one monitor poll observed.
type TickOutcome int

const (
	// TickUnchanged: the tracked worker is still there, or is transiently
	// absent (frozen at a breakpoint, or between fork and exec).
	TickUnchanged TickOutcome = iota
	// TickWorkerChanged: a different worker PID replaced the tracked one.
	TickWorkerChanged
	// TickNotReload: there is no worker to follow; only the forward's
	// lifetime matters.
	TickNotReload
	// TickLost: the process listing failed.
	TickLost
)

func (o TickOutcome) String() string {
	switch o {
	case TickUnchanged:
		return "Unchanged"
	case TickWorkerChanged:
		return "WorkerChanged"
	case TickNotReload:
		return "NotReload"
	case TickLost:
		return "Lost"
	default:
		return "Unknown"
	}
}
