package domain

// Role enumerates the closed set of principal categories on the platform.
type Role string

const (
	RoleUser         Role = "USER"
	RoleAdmin        Role = "ADMIN"
	RoleDoctor       Role = "DOCTOR"
	RoleTrainer      Role = "TRAINER"
	RoleMerchant     Role = "MERCHANT"
	RolePsychologist Role = "PSYCHOLOGIST"
)

// ParseRole maps a raw label to a known Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleUser, RoleAdmin, RoleDoctor, RoleTrainer, RoleMerchant, RolePsychologist:
		return Role(raw), true
	default:
		return "", false
	}
}

// Roles returns every known role, useful for validation messages.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleDoctor, RoleTrainer, RoleMerchant, RolePsychologist}
}
