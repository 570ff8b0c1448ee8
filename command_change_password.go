package multilogin

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	UserID          uuid.UUID `json:"-"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`
}

func (e ChangePasswordMessage) Type() string { return "credential.change_password" }

// ChangePasswordHandler rotates a local account's password after checking
// the current one. External provider accounts are rejected.
type ChangePasswordHandler struct {
	repo   RepositoryManager
	hasher CredentialHasher
	logger Logger
}

// NewChangePasswordHandler creates a handler with sane defaults.
func NewChangePasswordHandler(repo RepositoryManager, hasher CredentialHasher) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:   repo,
		hasher: hasher,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if event.NewPassword == "" {
		return goerrors.New("new password must not be empty", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByID(ctx, event.UserID)
		if err != nil {
			return err
		}

		if !user.HasLocalCredential() {
			return sentinelError(ErrProviderNoPassword)
		}

		if !h.hasher.CompareCredential(event.CurrentPassword, user.PasswordHash) {
			return sentinelError(ErrPasswordMismatch)
		}

		digest := h.hasher.HashCredential(event.NewPassword)
		return h.repo.Users().UpdatePasswordHashTx(ctx, tx, user.ID, digest)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password change transaction failed")
	}

	h.logger.Info("password changed for user %s", event.UserID)

	return nil
}
