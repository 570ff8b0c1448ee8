package multilogin

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ResetPasswordMessage struct {
	UserID uuid.UUID `json:"-"`

	// OnResponse receives the generated plaintext exactly once. It is never
	// persisted or logged.
	OnResponse func(plaintext string) `json:"-"`
}

func (e ResetPasswordMessage) Type() string { return "credential.reset_password" }

// ResetPasswordHandler generates a fresh password for a local account and
// stores its digest. The plaintext leaves the handler only through the
// message callback.
type ResetPasswordHandler struct {
	repo      RepositoryManager
	hasher    CredentialHasher
	generator *PasswordGenerator
	logger    Logger
}

// NewResetPasswordHandler creates a handler with sane defaults.
func NewResetPasswordHandler(repo RepositoryManager, hasher CredentialHasher) *ResetPasswordHandler {
	return &ResetPasswordHandler{
		repo:      repo,
		hasher:    hasher,
		generator: NewPasswordGenerator(),
		logger:    defLogger{},
	}
}

// WithPasswordGenerator overrides the default generator.
func (h *ResetPasswordHandler) WithPasswordGenerator(generator *PasswordGenerator) *ResetPasswordHandler {
	if generator != nil {
		h.generator = generator
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ResetPasswordHandler) WithLogger(logger Logger) *ResetPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, event ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResetPasswordHandler) execute(ctx context.Context, event ResetPasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var plaintext string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByID(ctx, event.UserID)
		if err != nil {
			return err
		}

		if !user.HasLocalCredential() {
			return sentinelError(ErrProviderNoPassword)
		}

		plaintext, err = h.generator.Generate()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate password")
		}

		digest := h.hasher.HashCredential(plaintext)
		return h.repo.Users().UpdatePasswordHashTx(ctx, tx, user.ID, digest)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	h.logger.Info("password reset for user %s", event.UserID)

	if event.OnResponse != nil {
		event.OnResponse(plaintext)
	}

	return nil
}
