package auth

import (
	"github.com/google/uuid"

	"github.com/snapwall/snapwall-backend/pkg/enums"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID   string
	Role enums.IdentityRole
}

// IdentityFromClaims converts verified access token claims.
func IdentityFromClaims(claims *AccessTokenClaims) *Identity {
	if claims == nil || claims.UserID == "" {
		return nil
	}
	return &Identity{ID: claims.UserID, Role: claims.Role}
}

// IsGuest reports whether the caller is an ephemeral guest session.
func (i *Identity) IsGuest() bool {
	if i == nil {
		return true
	}
	return i.Role == enums.IdentityRoleGuest || IsGuestID(i.ID)
}

// IsAdmin reports whether the caller carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == enums.IdentityRoleAdmin
}

// UserUUID returns the registered user id. Guests and malformed ids report false.
func (i *Identity) UserUUID() (uuid.UUID, bool) {
	if i == nil || i.IsGuest() || !i.Role.IsRegistered() {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(i.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
