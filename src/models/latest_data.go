package models

// -----------------------------------------------------------------------------
// Dashboard message pushed over /ws
// -----------------------------------------------------------------------------

type MAlertMessage struct {
	Type      string        `json:"type"` // "HISTORY" or "ALERT"
	Events    []MSpikeEvent `json:"events"`
	Timestamp int64         `json:"timestamp"`
}

// MClientCommand is what a dashboard may send over /ws.
type MClientCommand struct {
	Command string `json:"command"` // "history"
	Limit   int    `json:"limit,omitempty"`
}
