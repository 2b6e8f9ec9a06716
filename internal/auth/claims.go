package auth

import (
	"time"

	"github.com/schoolhub/schoolhub-server/internal/domain"
)

// AccessClaims represents the claims stored in a PASETO access token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
//
// Role and Permissions are embedded in the token at login time and trusted
// as-is for the token's lifetime: consumers (the file gate in particular)
// authorize against the claims without re-reading the user record. Grant
// changes take effect when the user next obtains a token.
type AccessClaims struct {
	UserID      string             `json:"user_id"`
	Email       string             `json:"email"`
	Role        domain.Role        `json:"role"`
	Permissions domain.Permissions `json:"permissions"`

	// Standard PASETO claims.
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
