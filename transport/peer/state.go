package peer

// State is the session lifecycle. Failed is terminal; there is no retry or resync.
type State uint8

const (
	StateDisconnected State = iota
	StateAwaitingHandshake
	StateActive
	StateFailed
)

func (that State) String() string {
	switch that {
	case StateDisconnected:
		return "disconnected"
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (that State) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}
