package espudp

// ConnectionState is the lifecycle state of a Driver.
type ConnectionState int32

const (
	// StateIdle means no connection has been requested.
	StateIdle ConnectionState = iota
	// StateAwaitingNetwork means Connect was called and the driver waits for
	// a network event reporting a usable connection.
	StateAwaitingNetwork
	// StateConnected means the socket is bound and both pumps are running.
	StateConnected
	// StateDisconnected means a session was torn down.
	StateDisconnected
)

// String returns a string representation of the state
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingNetwork:
		return "AwaitingNetwork"
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}
