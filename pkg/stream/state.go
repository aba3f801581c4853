package stream

// State is the lifecycle phase of a stream session.
type State int32

const (
	// StateStarting covers sending the request and awaiting the status line.
	StateStarting State = iota

	// StateStreaming delivers decoded chunks as body fragments arrive.
	StateStreaming

	// StateDraining is entered on the sentinel, a terminal chunk or EOF while
	// the last buffered frames are delivered.
	StateDraining

	// StateCompleted is terminal: every chunk was delivered.
	StateCompleted

	// StateFailed is terminal: the stream ended with an error.
	StateFailed

	// StateClosed is terminal: the caller abandoned the stream.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateClosed
}
