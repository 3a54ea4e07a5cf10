package domain

import "time"

// TokenClaims is the identity carried by a bearer token.
type TokenClaims struct {
	Subject   string
	Role      Role
	FullName  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
