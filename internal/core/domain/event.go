package domain

import "time"

// EventType classifies an entry in the authentication audit trail.
type EventType string

const (
	EventSignup       EventType = "signup"
	EventLoginSuccess EventType = "login_success"
	EventLoginFailure EventType = "login_failure"
	EventLogout       EventType = "logout"
)

// AuthEvent records the outcome of an authentication flow.
type AuthEvent struct {
	Type   EventType
	Email  string
	Method string // "local" or "google"
	Reason string // failure reason, empty on success
	At     time.Time
}
