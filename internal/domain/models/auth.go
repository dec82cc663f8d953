package models

import "github.com/golang-jwt/jwt/v5"

// AuthClaims is the JWT claim set accepted by the API.
// Only the subject is required; it becomes the bookmark owner id.
type AuthClaims struct {
	jwt.RegisteredClaims        // sub, iss, aud, exp, iat
	Email                string `json:"email"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	SessionID            string `json:"session_id"`
	IsAnonymous          bool   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *AuthClaims) GetUserID() string {
	return c.Subject
}
