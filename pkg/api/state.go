package api

import "fmt"

// SessionState is the lifecycle state of a generation session.
type SessionState string

const (
	SessionStateCreated   SessionState = "created"
	SessionStateActive    SessionState = "active"
	SessionStateCancelled SessionState = "cancelled"
	SessionStateCompleted SessionState = "completed"
	SessionStateFailed    SessionState = "failed"
)

// IsTerminal reports whether no transition leaves s.
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionStateCancelled, SessionStateCompleted, SessionStateFailed:
		return true
	}
	return false
}

// ValidateSessionTransition checks whether a session state transition is valid.
// An empty "from" state represents the moment before the session exists.
// Terminal states (cancelled, completed, failed) do not allow outgoing transitions.
func ValidateSessionTransition(from, to SessionState) *APIError {
	valid := map[SessionState][]SessionState{
		"":                  {SessionStateCreated},
		SessionStateCreated: {SessionStateActive},
		SessionStateActive:  {SessionStateCancelled, SessionStateCompleted, SessionStateFailed},
	}

	allowed, exists := valid[from]
	if !exists {
		return NewInvalidRequestError("state",
			fmt.Sprintf("invalid transition from %s to %s", from, to))
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return NewInvalidRequestError("state",
		fmt.Sprintf("invalid transition from %s to %s", from, to))
}
