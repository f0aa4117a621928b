package bootstrap

// State is the lifecycle of the single document database connection attempt.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

// Status values used in ConnectResult.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ConnectResult is the outcome of a connection attempt.
type ConnectResult struct {
	Status    string `json:"status"` // "ok", "error"
	State     State  `json:"state"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// ProbeResult is returned by RunDeepHealth for each dependency.
type ProbeResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}
