package call

import "fmt"

// State is the call session state.
type State int

const (
	StateIdle State = iota
	StateGreeting
	StateListening
	StateAwaitingReply
	StateSpeaking
	StateError
	StateEnded
)

// String returns the state name used in logs, metrics and JSON.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGreeting:
		return "greeting"
	case StateListening:
		return "listening"
	case StateAwaitingReply:
		return "awaiting-reply"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var transitions = map[State][]State{
	StateIdle:          {StateGreeting, StateListening, StateEnded},
	StateGreeting:      {StateListening, StateIdle, StateEnded},
	StateListening:     {StateAwaitingReply, StateIdle, StateError, StateEnded},
	StateAwaitingReply: {StateSpeaking, StateError, StateEnded},
	StateSpeaking:      {StateIdle, StateListening, StateEnded},
	StateError:         {StateIdle, StateListening, StateEnded},
	StateEnded:         nil,
}

// CanTransition reports whether the state machine allows s -> to.
func (s State) CanTransition(to State) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionError is returned for a transition the state machine forbids.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("call: invalid transition %s -> %s", e.From, e.To)
}
