package enums

import "fmt"

// IdentityRole is the role claim carried by access tokens.
type IdentityRole string

const (
	IdentityRoleUser  IdentityRole = "user"
	IdentityRoleAdmin IdentityRole = "admin"
	IdentityRoleGuest IdentityRole = "guest"
	// IdentityRoleEventViewer marks a view pass issued after a correct event PIN.
	IdentityRoleEventViewer IdentityRole = "event_viewer"
)

var validIdentityRoles = []IdentityRole{
	IdentityRoleUser,
	IdentityRoleAdmin,
	IdentityRoleGuest,
	IdentityRoleEventViewer,
}

func (r IdentityRole) String() string {
	return string(r)
}

func (r IdentityRole) IsValid() bool {
	for _, candidate := range validIdentityRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsRegistered reports whether the role belongs to a persisted user account.
func (r IdentityRole) IsRegistered() bool {
	return r == IdentityRoleUser || r == IdentityRoleAdmin
}

func ParseIdentityRole(value string) (IdentityRole, error) {
	for _, candidate := range validIdentityRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid identity role %q", value)
}
