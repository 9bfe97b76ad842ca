package voice

// State is the session lifecycle state. Idle is both the initial state
// and the terminal state after a clean stop.
type State int

const (
	StateIdle State = iota
	StateCalibrating
	StateListening
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCalibrating:
		return "calibrating"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Running reports whether a capture worker is active in this state.
func (s State) Running() bool {
	return s == StateCalibrating || s == StateListening
}
