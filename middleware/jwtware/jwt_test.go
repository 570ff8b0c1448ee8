package jwtware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/multilogin/go-multilogin/middleware/jwtware"
)

type stubClaims struct {
	subject string
	role    string
}

func (c stubClaims) Subject() string { return c.subject }
func (c stubClaims) UserID() string  { return c.subject }
func (c stubClaims) Name() string    { return "Test User" }
func (c stubClaims) Email() string   { return "user@example.com" }
func (c stubClaims) Role() string    { return c.role }

func (c stubClaims) HasRole(role string) bool { return c.role == role }

func (c stubClaims) IsAtLeast(minRole string) bool {
	levels := map[string]int{"normal": 0, "admin": 1}
	current, ok := levels[c.role]
	if !ok {
		return false
	}
	min, ok := levels[minRole]
	if !ok {
		return false
	}
	return current >= min
}

type stubValidator struct {
	claims jwtware.AuthClaims
	err    error
	seen   string
}

func (v *stubValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	v.seen = tokenString
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func passthroughError(c router.Context, err error) error {
	return err
}

func next(ctx router.Context) error {
	return ctx.Next()
}

func TestJWTWare_HeaderExtraction(t *testing.T) {
	t.Run("valid bearer token reaches the handler", func(t *testing.T) {
		validator := &stubValidator{claims: stubClaims{subject: "user-123", role: "normal"}}
		middleware := jwtware.New(jwtware.Config{
			TokenValidator: validator,
			ErrorHandler:   passthroughError,
		})

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer token-value")
		ctx.On("Locals", "user", mock.AnythingOfType("stubClaims")).Return(nil)

		require.NoError(t, middleware(next)(ctx))
		assert.True(t, ctx.NextCalled)
		assert.Equal(t, "token-value", validator.seen)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		validator := &stubValidator{claims: stubClaims{subject: "user-123", role: "normal"}}
		middleware := jwtware.New(jwtware.Config{
			TokenValidator: validator,
			ErrorHandler:   passthroughError,
		})

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("")

		err := middleware(next)(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, jwtware.ErrJWTMissingOrMalformed)
		assert.False(t, ctx.NextCalled)
	})

	t.Run("wrong scheme is rejected", func(t *testing.T) {
		validator := &stubValidator{claims: stubClaims{subject: "user-123", role: "normal"}}
		middleware := jwtware.New(jwtware.Config{
			TokenValidator: validator,
			ErrorHandler:   passthroughError,
		})

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Basic dXNlcjpwYXNz")

		err := middleware(next)(ctx)
		assert.ErrorIs(t, err, jwtware.ErrJWTMissingOrMalformed)
	})

	t.Run("validator rejection propagates", func(t *testing.T) {
		validatorErr := errors.New("token malformed")
		middleware := jwtware.New(jwtware.Config{
			TokenValidator: &stubValidator{err: validatorErr},
			ErrorHandler:   passthroughError,
		})

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer bad-token")

		err := middleware(next)(ctx)
		assert.ErrorIs(t, err, validatorErr)
		assert.False(t, ctx.NextCalled)
	})
}

func TestJWTWare_AlternateExtractors(t *testing.T) {
	validator := &stubValidator{claims: stubClaims{subject: "user-123", role: "normal"}}
	middleware := jwtware.New(jwtware.Config{
		TokenValidator: validator,
		ErrorHandler:   passthroughError,
		TokenLookup:    "header:Authorization,query:auth_token,cookie:session_token",
	})

	t.Run("query token", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.QueriesM["auth_token"] = "query-token"
		ctx.On("GetString", "Authorization", "").Return("").Maybe()
		ctx.On("Locals", "user", mock.Anything).Return(nil).Maybe()

		require.NoError(t, middleware(next)(ctx))
		assert.True(t, ctx.NextCalled)
		assert.Equal(t, "query-token", validator.seen)
	})

	t.Run("cookie token", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.CookiesM["session_token"] = "cookie-token"
		ctx.On("GetString", "Authorization", "").Return("").Maybe()
		ctx.On("Locals", "user", mock.Anything).Return(nil).Maybe()

		require.NoError(t, middleware(next)(ctx))
		assert.True(t, ctx.NextCalled)
		assert.Equal(t, "cookie-token", validator.seen)
	})
}

func TestJWTWare_AuthorizationChecks(t *testing.T) {
	t.Run("required role matches", func(t *testing.T) {
		middleware := jwtware.New(jwtware.Config{
			TokenValidator: &stubValidator{claims: stubClaims{subject: "user-123", role: "admin"}},
			ErrorHandler:   passthroughError,
			RequiredRole:   "admin",
		})

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer token-value")
		ctx.On("Locals", "user", mock.Anything).Return(nil)

		require.NoError(t, middleware(next)(ctx))
		assert.True(t, ctx.NextCalled)
	})

	t.Run("required role missing", func(t *testing.T) {
		middleware := jwtware.New(jwtware.Config{
			TokenValidator: &stubValidator{claims: stubClaims{subject: "user-123", role: "normal"}},
			ErrorHandler:   passthroughError,
			RequiredRole:   "admin",
		})

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer token-value")

		err := middleware(next)(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required role")
		assert.False(t, ctx.NextCalled)
	})

	t.Run("minimum role hierarchy", func(t *testing.T) {
		middleware := jwtware.New(jwtware.Config{
			TokenValidator: &stubValidator{claims: stubClaims{subject: "user-123", role: "admin"}},
			ErrorHandler:   passthroughError,
			MinimumRole:    "normal",
		})

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer token-value")
		ctx.On("Locals", "user", mock.Anything).Return(nil)

		require.NoError(t, middleware(next)(ctx))
		assert.True(t, ctx.NextCalled)
	})

	t.Run("below minimum role", func(t *testing.T) {
		middleware := jwtware.New(jwtware.Config{
			TokenValidator: &stubValidator{claims: stubClaims{subject: "user-123", role: "normal"}},
			ErrorHandler:   passthroughError,
			MinimumRole:    "admin",
		})

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer token-value")

		err := middleware(next)(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "minimum role")
	})

	t.Run("custom role checker", func(t *testing.T) {
		var checkedRole string
		middleware := jwtware.New(jwtware.Config{
			TokenValidator: &stubValidator{claims: stubClaims{subject: "user-123", role: "admin"}},
			ErrorHandler:   passthroughError,
			RequiredRole:   "admin",
			RoleChecker: func(claims jwtware.AuthClaims, role string) bool {
				checkedRole = role
				return false
			},
		})

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer token-value")

		err := middleware(next)(ctx)
		require.Error(t, err)
		assert.Equal(t, "admin", checkedRole)
	})
}

func TestJWTWare_Filter(t *testing.T) {
	middleware := jwtware.New(jwtware.Config{
		TokenValidator: &stubValidator{err: errors.New("should not run")},
		ErrorHandler:   passthroughError,
		Filter: func(ctx router.Context) bool {
			return true
		},
	})

	ctx := router.NewMockContext()

	require.NoError(t, middleware(next)(ctx))
	assert.True(t, ctx.NextCalled)
}

func TestJWTWare_ContextEnricher(t *testing.T) {
	type enrichedKey struct{}

	middleware := jwtware.New(jwtware.Config{
		TokenValidator: &stubValidator{claims: stubClaims{subject: "user-123", role: "normal"}},
		ErrorHandler:   passthroughError,
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			return context.WithValue(c, enrichedKey{}, claims.Subject())
		},
	})

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer token-value")
	ctx.On("Locals", "user", mock.Anything).Return(nil)
	ctx.On("Context").Return(context.Background())
	ctx.On("SetContext", mock.MatchedBy(func(c context.Context) bool {
		return c.Value(enrichedKey{}) == "user-123"
	})).Return()

	require.NoError(t, middleware(next)(ctx))
	assert.True(t, ctx.NextCalled)
	ctx.AssertExpectations(t)
}

func TestJWTWare_RequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})(next)(router.NewMockContext())
	})
}
