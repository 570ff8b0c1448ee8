package multilogin

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Auther composes the hasher, directory, token service, assertion verifier,
// and provisioning policy into the two login flows.
type Auther struct {
	directory UserDirectory
	hasher    CredentialHasher
	tokens    TokenService
	verifier  AssertionVerifier
	policy    ProvisioningPolicy
	provider  Provider
	logger    Logger
}

// Verify interface compliance
var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Auther. The default policy is strict and
// the default external provider is google.
func NewAuthenticator(directory UserDirectory, hasher CredentialHasher, tokens TokenService) *Auther {
	return &Auther{
		directory: directory,
		hasher:    hasher,
		tokens:    tokens,
		policy:    StrictPolicy{},
		provider:  ProviderGoogle,
		logger:    defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithAssertionVerifier enables external assertion logins.
func (s *Auther) WithAssertionVerifier(verifier AssertionVerifier) *Auther {
	s.verifier = verifier
	return s
}

// WithProvisioningPolicy selects what happens on first external login.
func (s *Auther) WithProvisioningPolicy(policy ProvisioningPolicy) *Auther {
	if policy != nil {
		s.policy = policy
	}
	return s
}

// WithExternalProvider sets the provider name stamped on assertion logins.
func (s *Auther) WithExternalProvider(provider Provider) *Auther {
	if provider != "" {
		s.provider = NormalizeProvider(provider)
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// LoginWithPassword digests the password and matches it against the
// directory in a single query. Every failure mode surfaces as
// ErrInvalidCredentials.
func (s *Auther) LoginWithPassword(ctx context.Context, email, password string) (string, Identity, error) {
	if email == "" || password == "" {
		return "", nil, sentinelError(ErrInvalidCredentials)
	}

	digest := s.hasher.HashCredential(password)

	user, err := s.directory.GetByCredentials(ctx, email, digest)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			s.logger.Debug("password login failed for %s", email)
			return "", nil, sentinelError(ErrInvalidCredentials)
		}
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "credential lookup failed")
	}

	return s.issueToken(user)
}

// LoginWithAssertion verifies an external identity assertion, resolves the
// principal through the active provisioning policy, and issues a token.
func (s *Auther) LoginWithAssertion(ctx context.Context, rawAssertion string) (string, Identity, error) {
	if s.verifier == nil {
		return "", nil, errors.New("assertion login not configured", errors.CategoryInternal)
	}
	if rawAssertion == "" {
		return "", nil, sentinelError(ErrAssertionRejected)
	}

	payload, err := s.verifier.Verify(ctx, rawAssertion)
	if err != nil {
		return "", nil, err
	}

	user, err := s.policy.Resolve(ctx, s.directory, payload, s.provider)
	if err != nil {
		return "", nil, err
	}

	return s.issueToken(user)
}

func (s *Auther) issueToken(user *User) (string, Identity, error) {
	identity := NewIdentityFromUser(user)

	token, err := s.tokens.Generate(identity)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to issue token")
	}

	s.logger.Debug("issued token for user %s", identity.ID())

	return token, identity, nil
}
