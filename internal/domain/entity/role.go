package entity

// Role represents the type of role a user can have inside a tenant.
type Role string

const (
	// RoleUser indicates a regular customer account.
	RoleUser Role = "user"
	// RoleAdmin indicates a tenant administrator allowed to manage the catalog.
	RoleAdmin Role = "admin"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleOrDefault returns r when valid and RoleUser otherwise.
func RoleOrDefault(r Role) Role {
	if r.IsValid() {
		return r
	}

	return RoleUser
}
