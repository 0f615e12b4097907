package portforwarding

// StatusDetail describes where a forward is in its lifecycle.
type StatusDetail string

const (
	// StatusDetailInitializing indicates the port-forward is being set up.
	StatusDetailInitializing StatusDetail = "Initializing"
	// StatusDetailForwardingActive indicates that port forwarding is active and ready.
	StatusDetailForwardingActive StatusDetail = "ForwardingActive"
	// StatusDetailDirect means no tunnel was needed; the port is already
	// published on the host.
	StatusDetailDirect StatusDetail = "Direct"
	// StatusDetailStopped indicates the port-forward has been stopped.
	StatusDetailStopped StatusDetail = "Stopped"
	// StatusDetailFailed indicates the tunnel ended on its own.
	StatusDetailFailed StatusDetail = "Failed"
)

// Owner is the local process holding a port.
type Owner struct {
	PID     int
	Command string
}
