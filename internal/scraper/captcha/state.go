package captcha

// State is one step of the challenge resolution flow
type State string

const (
	StateDetect       State = "detect"
	StateCapture      State = "capture"
	StateSolve        State = "solve"
	StateSanitize     State = "sanitize"
	StateSubmit       State = "submit"
	StateVerify       State = "verify"
	StateRetryVariant State = "retry_variant"
	StateRefresh      State = "refresh"

	StateSolved      State = "solved"
	StateFailed      State = "failed"
	StateNoChallenge State = "no_challenge"
)

// transitions lists the legal successors of every non-terminal state. Any
// state may also move to StateFailed when a bound is exceeded.
var transitions = map[State][]State{
	StateDetect:       {StateCapture, StateNoChallenge},
	StateCapture:      {StateSolve, StateRefresh},
	StateSolve:        {StateSanitize, StateRefresh},
	StateSanitize:     {StateSubmit, StateRefresh},
	StateSubmit:       {StateVerify},
	StateVerify:       {StateSolved, StateRetryVariant, StateRefresh},
	StateRetryVariant: {StateSubmit},
	StateRefresh:      {StateCapture},
}

// Terminal reports whether the flow stops in s
func (s State) Terminal() bool {
	return s == StateSolved || s == StateFailed || s == StateNoChallenge
}

// canTransition reports whether from -> to is a legal move
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
