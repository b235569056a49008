package core

type CallState int

const (
	CallStateUnknown CallState = iota
	CallStateExecuting
	CallStateExecutingFailed
	CallStateRetrieving
	CallStateRetrievingFailed
	CallStateDone
	CallStateCanceled
)

func (s CallState) String() string {
	switch s {
	case CallStateUnknown:
		return "unknown"

	case CallStateExecuting:
		return "executing"
	case CallStateExecutingFailed:
		return "executing_failed"

	case CallStateRetrieving:
		return "retrieving"
	case CallStateRetrievingFailed:
		return "retrieving_failed"

	case CallStateDone:
		return "done"

	case CallStateCanceled:
		return "canceled"

	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further state change can happen.
func (s CallState) IsTerminal() bool {
	switch s {
	case CallStateExecutingFailed, CallStateRetrievingFailed, CallStateDone, CallStateCanceled:
		return true
	default:
		return false
	}
}
