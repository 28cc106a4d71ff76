package session

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nexus-vita/session-service/internal/auth"
	"github.com/nexus-vita/session-service/internal/domain"
	"github.com/nexus-vita/session-service/internal/events"
	"github.com/nexus-vita/session-service/internal/observability"
	apperrors "github.com/nexus-vita/session-service/pkg/util"
)

// CookieName is the conventional cookie carrying the session token.
const CookieName = "nv_session"

const principalKey = "auth_principal"

// Principal represents the authenticated caller, as verified by the guard.
type Principal struct {
	SubjectID string
	Role      domain.Role
}

// Middleware adapts the framework-agnostic guard to Fiber: it extracts
// the session cookie, runs the policy check and maps rejections to 401/403.
type Middleware struct {
	guard      *auth.Guard
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

// NewMiddleware constructs the middleware.
func NewMiddleware(guard *auth.Guard, dispatcher events.Dispatcher, metrics *observability.Metrics) *Middleware {
	return &Middleware{guard: guard, dispatcher: dispatcher, metrics: metrics}
}

// Authenticated admits any valid, non-expired session.
func (m *Middleware) Authenticated() fiber.Handler {
	return m.require(func(c *fiber.Ctx) auth.Policy {
		return auth.AuthenticatedOnly()
	})
}

// RequireRole admits sessions carrying one of the allowed roles.
func (m *Middleware) RequireRole(allowed ...domain.Role) fiber.Handler {
	return m.require(func(c *fiber.Ctx) auth.Policy {
		return auth.RoleIn(allowed...)
	})
}

// RequireSelfOrRole admits the subject named by the route parameter, or any
// session carrying one of the allowed roles.
func (m *Middleware) RequireSelfOrRole(param string, allowed ...domain.Role) fiber.Handler {
	return m.require(func(c *fiber.Ctx) auth.Policy {
		return auth.SelfOrRole(c.Params(param), allowed...)
	})
}

func (m *Middleware) require(policyFor func(*fiber.Ctx) auth.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		outcome := m.guard.Authorize(c.Cookies(CookieName), policyFor(c))
		if !outcome.Authorized {
			return m.reject(c, outcome)
		}

		c.Locals(principalKey, &Principal{SubjectID: outcome.SubjectID, Role: outcome.Role})
		return c.Next()
	}
}

func (m *Middleware) reject(c *fiber.Ctx, outcome auth.Outcome) error {
	switch outcome.Reason {
	case auth.ReasonForbidden:
		m.metrics.RecordAuthRejection(c.Path(), "forbidden")
		m.emit(c, events.EventAccessDenied, events.AccessDeniedPayload{Path: c.Path(), Method: c.Method()})
		return apperrors.NewForbidden(outcome.Message)
	default:
		m.metrics.RecordAuthRejection(c.Path(), "unauthenticated")
		m.emit(c, events.EventSessionRejected, events.SessionRejectedPayload{Path: c.Path(), Method: c.Method()})
		return apperrors.NewUnauthorized(outcome.Message)
	}
}

func (m *Middleware) emit(c *fiber.Ctx, eventType events.EventType, payload interface{}) {
	if m.dispatcher == nil {
		return
	}
	_ = m.dispatcher.Publish(c.UserContext(), events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// Cookie shapes the cookie carrying a freshly issued token.
func Cookie(token string, expiresAt time.Time, secure bool) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expiresAt,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// ExpiredCookie clears the session cookie on logout. The token itself
// stays valid until expiry; clearing the cookie is the only logout mechanism.
func ExpiredCookie(secure bool) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
