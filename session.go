package drip

// SessionState is the lifecycle state of one stream session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionRequesting
	SessionStreaming
	SessionCompleted
	SessionCancelled
	SessionFailed
)

var sessionStateNames = [...]string{
	SessionIdle:       "idle",
	SessionRequesting: "requesting",
	SessionStreaming:  "streaming",
	SessionCompleted:  "completed",
	SessionCancelled:  "cancelled",
	SessionFailed:     "failed",
}

func (s SessionState) String() string {
	if s < 0 || int(s) >= len(sessionStateNames) {
		return "unknown"
	}
	return sessionStateNames[s]
}

// Terminal reports whether s ends a session.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled || s == SessionFailed
}
