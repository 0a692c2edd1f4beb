package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Name     string
	Verified bool
}

// AccessTokenClaims represents the typed JWT presented by clients. Tokens are
// issued by the identity service; this backend only validates them.
type AccessTokenClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name,omitempty"`
	Verified bool      `json:"verified"`
	jwt.RegisteredClaims
}
