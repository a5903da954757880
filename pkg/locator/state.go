package locator

// State is the phase of a locate request.
type State int

const (
	StateIdle State = iota
	StatePlanning
	StateSeeking
	StateDecoding
	StateMatched
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateSeeking:
		return "seeking"
	case StateDecoding:
		return "decoding"
	case StateMatched:
		return "matched"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether a request ends in this state.
func (s State) Terminal() bool {
	return s == StateMatched || s == StateFailed
}

// allowed lists the legal transitions of a request.
var allowed = map[State][]State{
	StateIdle:     {StatePlanning},
	StatePlanning: {StateSeeking, StateFailed},
	StateSeeking:  {StateDecoding, StateFailed},
	StateDecoding: {StateMatched, StateFailed},
	StateMatched:  {StateIdle, StateFailed},
	StateFailed:   {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
