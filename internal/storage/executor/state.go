package executor

import "time"

// State is the lifecycle state of the executor's connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Observer receives executor telemetry. StateChanged is called with the
// executor lock held and must not block or call back into the executor.
type Observer interface {
	StateChanged(from, to State)
	QueryCompleted(elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State, State)           {}
func (nopObserver) QueryCompleted(time.Duration, error) {}
