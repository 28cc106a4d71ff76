package auth

import "github.com/nexus-vita/session-service/internal/domain"

type policyKind int

const (
	policyAuthenticatedOnly policyKind = iota
	policySelfOrRole
	policyRoleIn
)

// Policy describes what is sufficient to authorize a request. The set of
// policies is closed; construct one through the functions below.
type Policy struct {
	kind            policyKind
	targetSubjectID string
	allowedRoles    map[domain.Role]struct{}
}

// AuthenticatedOnly accepts any valid, non-expired credential.
func AuthenticatedOnly() Policy {
	return Policy{kind: policyAuthenticatedOnly}
}

// SelfOrRole accepts the credential whose subject is targetSubjectID, or any
// credential carrying one of the allowed roles.
func SelfOrRole(targetSubjectID string, allowed ...domain.Role) Policy {
	return Policy{
		kind:            policySelfOrRole,
		targetSubjectID: targetSubjectID,
		allowedRoles:    roleSet(allowed),
	}
}

// RoleIn accepts any credential carrying one of the allowed roles.
func RoleIn(allowed ...domain.Role) Policy {
	return Policy{kind: policyRoleIn, allowedRoles: roleSet(allowed)}
}

func (p Policy) permits(cred *Credential) bool {
	switch p.kind {
	case policyAuthenticatedOnly:
		return true
	case policySelfOrRole:
		if cred.SubjectID == p.targetSubjectID {
			return true
		}
		_, ok := p.allowedRoles[cred.Role]
		return ok
	case policyRoleIn:
		_, ok := p.allowedRoles[cred.Role]
		return ok
	default:
		return false
	}
}

func roleSet(roles []domain.Role) map[domain.Role]struct{} {
	set := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}
