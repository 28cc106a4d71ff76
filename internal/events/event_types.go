package events

import (
	"time"

	"github.com/nexus-vita/session-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventLoginSucceeded    EventType = "login_succeeded"
	EventLoginFailed       EventType = "login_failed"
	EventSessionRejected   EventType = "session_rejected"
	EventAccessDenied      EventType = "access_denied"
)

// Event represents a security-relevant action emitted toward the audit channel.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload captures why a login attempt was refused.
type LoginFailedPayload struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// AccessDeniedPayload captures a policy denial on a protected route.
type AccessDeniedPayload struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// SessionRejectedPayload captures a request presenting no or an invalid token.
type SessionRejectedPayload struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}
