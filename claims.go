package multilogin

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents structured session token claims
type AuthClaims interface {
	Subject() string
	UserID() string
	Name() string
	Email() string
	Role() string
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims. The act claim
// carries the directory id the token acts for, mirroring sub.
type JWTClaims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"name,omitempty"`
	UserRole    string `json:"role,omitempty"`
	UserEmail   string `json:"email,omitempty"`
	ACT         string `json:"act,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the directory id the token acts for
func (c *JWTClaims) UserID() string {
	if c.ACT != "" {
		return c.ACT
	}
	return c.Subject()
}

// Name returns the display name claim
func (c *JWTClaims) Name() string {
	return c.DisplayName
}

// Email returns the email claim
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Role returns the role claim
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// HasRole checks if the token carries a specific role
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the token's role is at least the minimum required role
func (c *JWTClaims) IsAtLeast(minRole string) bool {
	return UserRole(c.UserRole).IsAtLeast(UserRole(minRole))
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
