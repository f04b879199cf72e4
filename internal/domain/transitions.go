package domain

// statusTransitions fixes the allowed-successor set for each status.
// Requests only move forward; completed and rejected are terminal.
var statusTransitions = map[RequestStatus][]RequestStatus{
	StatusSubmitted:  {StatusReceived},
	StatusReceived:   {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusRejected},
	StatusCompleted:  {},
	StatusRejected:   {},
}

// CanTransitionTo reports whether to is a legal successor of from.
func CanTransitionTo(from, to RequestStatus) bool {
	for _, candidate := range statusTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidNextStatuses returns the allowed successor statuses of current.
func ValidNextStatuses(current RequestStatus) []RequestStatus {
	next := statusTransitions[current]
	out := make([]RequestStatus, len(next))
	copy(out, next)
	return out
}
