package multilogin

import (
	"context"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/goliatone/go-errors"
)

// AssertionPayload holds the subject attributes extracted from a verified
// external identity assertion.
type AssertionPayload struct {
	Subject  string
	Email    string
	Name     string
	Issuer   string
	Audience []string
}

// AssertionVerifier checks an external identity assertion and extracts its
// payload. Implementations treat the upstream verifier as opaque; the
// audience policy below is applied locally on top of it.
type AssertionVerifier interface {
	Verify(ctx context.Context, rawAssertion string) (*AssertionPayload, error)
}

// AssertionOracle is the pluggable signature/expiry check an
// OracleAssertionVerifier delegates to.
type AssertionOracle func(ctx context.Context, rawAssertion string) (*AssertionPayload, error)

// OracleAssertionVerifier wraps an oracle with the local audience policy:
// the expected audience must appear in the assertion's audience list.
type OracleAssertionVerifier struct {
	oracle           AssertionOracle
	expectedAudience string
	logger           Logger
}

// Verify interface compliance
var _ AssertionVerifier = (*OracleAssertionVerifier)(nil)

// NewAssertionVerifier creates a verifier from an oracle and the audience the
// service accepts assertions for.
func NewAssertionVerifier(oracle AssertionOracle, expectedAudience string, logger Logger) *OracleAssertionVerifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &OracleAssertionVerifier{
		oracle:           oracle,
		expectedAudience: expectedAudience,
		logger:           logger,
	}
}

// Verify runs the oracle then the local audience check. Any rejection
// surfaces as ErrAssertionRejected so callers cannot distinguish causes.
func (v *OracleAssertionVerifier) Verify(ctx context.Context, rawAssertion string) (*AssertionPayload, error) {
	payload, err := v.oracle(ctx, rawAssertion)
	if err != nil {
		v.logger.Debug("assertion oracle rejected token: %v", err)
		return nil, sentinelError(ErrAssertionRejected)
	}

	if v.expectedAudience != "" && !slices.Contains(payload.Audience, v.expectedAudience) {
		v.logger.Debug("assertion audience %v does not include %s", payload.Audience, v.expectedAudience)
		return nil, sentinelError(ErrAssertionRejected)
	}

	return payload, nil
}

// NewOIDCOracle builds an oracle from OIDC discovery against issuerURL.
// The library's own client id check is skipped so the verifier above owns
// the audience decision.
func NewOIDCOracle(ctx context.Context, issuerURL string) (AssertionOracle, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "oidc provider discovery failed")
	}

	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})

	return func(ctx context.Context, rawAssertion string) (*AssertionPayload, error) {
		idToken, err := verifier.Verify(ctx, rawAssertion)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryAuth, "assertion verification failed")
		}

		var raw map[string]any
		if err := idToken.Claims(&raw); err != nil {
			return nil, errors.Wrap(err, errors.CategoryAuth, "failed to parse assertion claims")
		}

		payload := &AssertionPayload{
			Subject:  idToken.Subject,
			Issuer:   idToken.Issuer,
			Audience: idToken.Audience,
		}
		if email, ok := raw["email"].(string); ok {
			payload.Email = email
		}
		if name, ok := raw["name"].(string); ok {
			payload.Name = name
		}

		return payload, nil
	}, nil
}

// GoogleIssuerURL is the discovery issuer for Google identity assertions
const GoogleIssuerURL = "https://accounts.google.com"

// NewGoogleVerifier creates an AssertionVerifier for Google ID tokens that
// accepts only assertions issued to clientID.
func NewGoogleVerifier(ctx context.Context, clientID string, logger Logger) (*OracleAssertionVerifier, error) {
	oracle, err := NewOIDCOracle(ctx, GoogleIssuerURL)
	if err != nil {
		return nil, err
	}
	return NewAssertionVerifier(oracle, clientID, logger), nil
}
