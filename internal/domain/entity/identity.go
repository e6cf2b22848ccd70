package entity

// Identity is the authenticated caller of one request. It is derived from a
// verified access token plus a fresh lookup in the tenant database and is never
// persisted.
type Identity struct {
	UserID int64
	Role   Role
	Tenant string
}

// HasRole reports whether the identity carries the given role.
func (i *Identity) HasRole(role Role) bool {
	return i != nil && i.Role == role
}
