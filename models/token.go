package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the claim set of the session cookie. The subject is the
// user id and the JWT id is the session id.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// Token is a signed session token.
type Token struct {
	// Token is the parsed JWT. Excluded from JSON serialization because only
	// the compact form leaves the server.
	*jwt.Token `json:"-"`

	SignedString string `json:"-"`
	UserID       string `json:"-"`
	SessionID    string `json:"-"`
}

// String returns the compact JWS serialization of the token.
func (t Token) String() string {
	return t.SignedString
}
