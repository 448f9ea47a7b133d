package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/snapwall/snapwall-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	// UserID is a user uuid for registered identities or a guest_ prefixed id for guests.
	UserID string
	Role   enums.IdentityRole
	// EventID scopes event view passes; empty for regular access tokens.
	EventID string
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID  string             `json:"user_id"`
	Role    enums.IdentityRole `json:"role"`
	EventID string             `json:"event_id,omitempty"`
	jwt.RegisteredClaims
}

// IsGuest reports whether the token belongs to an ephemeral guest session.
func (c *AccessTokenClaims) IsGuest() bool {
	return c != nil && c.Role == enums.IdentityRoleGuest
}
