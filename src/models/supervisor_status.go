package models

import "time"

// MSupervisorStatus is a snapshot of the session supervisor.
type MSupervisorStatus struct {
	State            string    `json:"state"`
	Override         bool      `json:"override"`
	Held             bool      `json:"held"`
	WithinWindow     bool      `json:"within_window"`
	SessionStartedAt time.Time `json:"session_started_at,omitempty"`
	Restarts         int       `json:"restarts"`
	LastError        string    `json:"last_error,omitempty"`
	LastTransition   time.Time `json:"last_transition"`
}
