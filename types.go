package multilogin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated principal
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
}

// Authenticator holds methods to exchange credentials for session tokens
type Authenticator interface {
	LoginWithPassword(ctx context.Context, email, password string) (string, Identity, error)
	LoginWithAssertion(ctx context.Context, rawAssertion string) (string, Identity, error)
}

// TokenService issues and validates session tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	Validate(token string) (AuthClaims, error)
}

// CredentialHasher digests plaintext credentials for storage and comparison
type CredentialHasher interface {
	HashCredential(plaintext string) string
	CompareCredential(plaintext, digest string) bool
}

// UserDirectory is the record-keeping surface the service reads and mutates
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmailAndProvider(ctx context.Context, email string, provider Provider) (*User, error)
	GetByCredentials(ctx context.Context, email, passwordHash string) (*User, error)
	Insert(ctx context.Context, user *User) (*User, error)
	Replace(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*User, error)
	ExistsByEmailAndProvider(ctx context.Context, email string, provider Provider) (bool, error)
	IsDuplicateEmail(ctx context.Context, excludingID uuid.UUID, email string, provider Provider) (bool, error)
}

// Config holds service options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetTokenTTL() time.Duration
	GetVerifyIssuer() bool
	GetVerifyAudience() bool
	GetHashingSecret() string
	GetAssertionIssuer() string
	GetAssertionAudience() string
	GetAutoProvision() bool
	GetForwardTarget() string
	GetForwardTimeout() time.Duration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] MLOGIN "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] MLOGIN "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] MLOGIN "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
