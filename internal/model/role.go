package model

// AdminRole is the privilege level of an admin account.
type AdminRole string

const (
	RoleAdmin      AdminRole = "ADMIN"
	RoleSuperAdmin AdminRole = "SUPER_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r AdminRole) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsSuper reports whether r grants super admin privileges.
func (r AdminRole) IsSuper() bool {
	return r == RoleSuperAdmin
}
