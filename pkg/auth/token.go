package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/enums"
)

// GuestIDPrefix marks uploader ids that do not belong to a registered account.
const GuestIDPrefix = "guest_"

var jwtSigningMethod = jwt.SigningMethodHS256

// NewGuestID mints a fresh ephemeral guest identity.
func NewGuestID() string {
	return GuestIDPrefix + uuid.NewString()
}

// IsGuestID reports whether the id was minted by NewGuestID.
func IsGuestID(id string) bool {
	rest, ok := strings.CutPrefix(id, GuestIDPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// MintAccessToken issues a signed JWT for the provided payload using the configured TTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("jwt expiration minutes must be positive")
	}
	if !payload.Role.IsRegistered() {
		return "", fmt.Errorf("access tokens require a registered role, got %q", payload.Role)
	}
	if _, err := uuid.Parse(payload.UserID); err != nil {
		return "", fmt.Errorf("invalid user id %q", payload.UserID)
	}
	return mint(cfg, now, time.Duration(cfg.ExpirationMinutes)*time.Minute, payload)
}

// MintGuestToken issues a session token that lets a guest keep the same uploader id.
func MintGuestToken(cfg config.JWTConfig, now time.Time, guestID string) (string, error) {
	if !IsGuestID(guestID) {
		return "", fmt.Errorf("invalid guest id %q", guestID)
	}
	if cfg.GuestSessionTTL <= 0 {
		return "", fmt.Errorf("guest session ttl must be positive")
	}
	return mint(cfg, now, cfg.GuestSessionTTL, AccessTokenPayload{
		UserID: guestID,
		Role:   enums.IdentityRoleGuest,
	})
}

// MintEventViewPass issues a short-lived pass proving the holder entered the event PIN.
func MintEventViewPass(cfg config.JWTConfig, now time.Time, eventID uuid.UUID, viewerID string) (string, error) {
	if eventID == uuid.Nil {
		return "", fmt.Errorf("event id is required")
	}
	if cfg.EventViewPassTTL <= 0 {
		return "", fmt.Errorf("event view pass ttl must be positive")
	}
	return mint(cfg, now, cfg.EventViewPassTTL, AccessTokenPayload{
		UserID:  viewerID,
		Role:    enums.IdentityRoleEventViewer,
		EventID: eventID.String(),
	})
}

func mint(cfg config.JWTConfig, now time.Time, ttl time.Duration, payload AccessTokenPayload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid identity role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := AccessTokenClaims{
		UserID:  payload.UserID,
		Role:    payload.Role,
		EventID: payload.EventID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("invalid identity role %q", claims.Role)
	}

	return claims, nil
}

// ParseEventViewPass validates a view pass and checks it was issued for eventID.
func ParseEventViewPass(cfg config.JWTConfig, tokenString string, eventID uuid.UUID) (*AccessTokenClaims, error) {
	claims, err := ParseAccessToken(cfg, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Role != enums.IdentityRoleEventViewer {
		return nil, fmt.Errorf("token is not an event view pass")
	}
	if claims.EventID != eventID.String() {
		return nil, fmt.Errorf("view pass issued for a different event")
	}
	return claims, nil
}
