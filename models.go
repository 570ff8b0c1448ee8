package multilogin

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Provider identifies where an account's credential lives
type Provider = string

const (
	// ProviderCredentials marks accounts with a locally stored password digest
	ProviderCredentials Provider = "credentials"
	// ProviderGoogle marks accounts provisioned from a Google identity assertion
	ProviderGoogle Provider = "google"
)

// NormalizeProvider lower-cases a caller supplied provider name
func NormalizeProvider(provider string) Provider {
	return strings.ToLower(strings.TrimSpace(provider))
}

// User is the directory principal model. The id is directory assigned and
// immutable; (email, provider) is unique across the directory.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	Provider      Provider   `bun:"provider,notnull" json:"provider,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Validate enforces field constraints before the record reaches storage
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.Required, validation.Length(1, 50)),
		validation.Field(&u.Email, validation.Required, validation.Length(3, 150), is.Email),
		validation.Field(&u.Role, validation.Required, validation.By(func(any) error {
			if !u.Role.IsValid() {
				return errors.New("must be a known role")
			}
			return nil
		})),
		validation.Field(&u.Provider, validation.Required, validation.Length(1, 50)),
		validation.Field(&u.PasswordHash, validation.Length(0, 300)),
	)
}

// HasLocalCredential reports whether password operations apply to this user
func (u *User) HasLocalCredential() bool {
	return u.Provider == ProviderCredentials
}
