package auth

import "github.com/nexus-vita/session-service/internal/domain"

// RejectReason distinguishes "no valid credential" from "valid credential,
// insufficient rights" so the transport layer can answer 401 vs 403.
type RejectReason int

const (
	ReasonUnauthenticated RejectReason = iota
	ReasonForbidden
)

// Outcome is the result of one authorization check. It is framework-agnostic;
// the HTTP adapter translates a rejection into a status code.
type Outcome struct {
	Authorized bool
	SubjectID  string
	Role       domain.Role
	Reason     RejectReason
	Message    string
}

// Guard bridges an inbound request's session cookie to an Outcome. Checks are
// pure computation and safe to run concurrently and repeatedly.
type Guard struct {
	codec *Codec
}

// NewGuard builds a guard on top of a token codec.
func NewGuard(codec *Codec) *Guard {
	return &Guard{codec: codec}
}

// Authorize verifies the presented cookie value under the policy. An empty
// value means the request carried no session cookie.
func (g *Guard) Authorize(cookieValue string, policy Policy) Outcome {
	if cookieValue == "" {
		return rejected(ReasonUnauthenticated, "missing session cookie")
	}

	cred, err := g.codec.Verify(cookieValue)
	if err != nil {
		return rejected(ReasonUnauthenticated, "invalid or expired session")
	}

	if !policy.permits(cred) {
		return rejected(ReasonForbidden, "insufficient rights")
	}

	return Outcome{Authorized: true, SubjectID: cred.SubjectID, Role: cred.Role}
}

func rejected(reason RejectReason, message string) Outcome {
	return Outcome{Reason: reason, Message: message}
}
