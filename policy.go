package multilogin

import (
	"context"

	"github.com/goliatone/go-errors"
)

// ProvisioningPolicy decides what happens when a verified external assertion
// names an identity the directory has never seen. The active policy is fixed
// at startup.
type ProvisioningPolicy interface {
	Resolve(ctx context.Context, dir UserDirectory, payload *AssertionPayload, provider Provider) (*User, error)
}

// StrictPolicy rejects assertions for unknown identities. The rejection is
// surfaced as a credential failure so probing cannot map the directory.
type StrictPolicy struct{}

// Verify interface compliance
var _ ProvisioningPolicy = (*StrictPolicy)(nil)

func (StrictPolicy) Resolve(ctx context.Context, dir UserDirectory, payload *AssertionPayload, provider Provider) (*User, error) {
	user, err := dir.GetByEmailAndProvider(ctx, payload.Email, provider)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, sentinelError(ErrInvalidCredentials)
		}
		return nil, err
	}
	return user, nil
}

// AutoProvisionPolicy creates a normal-role account on first login with
// attributes mapped from the assertion. No password hash is stored; the
// external provider owns the credential.
type AutoProvisionPolicy struct {
	Logger Logger
}

// Verify interface compliance
var _ ProvisioningPolicy = (*AutoProvisionPolicy)(nil)

func (p AutoProvisionPolicy) Resolve(ctx context.Context, dir UserDirectory, payload *AssertionPayload, provider Provider) (*User, error) {
	user, err := dir.GetByEmailAndProvider(ctx, payload.Email, provider)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		return nil, err
	}

	record := &User{
		Name:     payload.Name,
		Email:    payload.Email,
		Role:     RoleNormal,
		Provider: provider,
	}
	if record.Name == "" {
		record.Name = payload.Email
	}

	created, err := dir.Insert(ctx, record)
	if err != nil {
		// A concurrent first login can win the insert race; fall back to
		// the record it created.
		if errors.Is(err, ErrDuplicateIdentity) {
			return dir.GetByEmailAndProvider(ctx, payload.Email, provider)
		}
		return nil, err
	}

	if p.Logger != nil {
		p.Logger.Info("auto provisioned %s account for %s", provider, payload.Email)
	}

	return created, nil
}
