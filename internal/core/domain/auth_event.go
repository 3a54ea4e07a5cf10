package domain

import "time"

// AuthEventKind classifies an entry of the authentication audit trail.
type AuthEventKind string

const (
	AuthEventRegistered     AuthEventKind = "registered"
	AuthEventLoginSucceeded AuthEventKind = "login_succeeded"
	AuthEventLoginFailed    AuthEventKind = "login_failed"
	AuthEventLoginThrottled AuthEventKind = "login_throttled"
)

// AuthEvent records the outcome of a registration or login attempt.
type AuthEvent struct {
	Email      string
	Kind       AuthEventKind
	RemoteIP   string
	OccurredAt time.Time
}
