package multilogin

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Provider  string `json:"provider"`
	Password  string `json:"password"`
	UseHashid bool   `json:"-"`

	// OnResponse receives the stored record after the transaction commits.
	OnResponse func(user *User) `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates a directory principal. Passwords are digested
// only for the credentials provider; external accounts never store one.
type RegisterUserHandler struct {
	repo   RepositoryManager
	hasher CredentialHasher
	logger Logger
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager, hasher CredentialHasher) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		hasher: hasher,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user.Name = event.Name
		user.Email = strings.TrimSpace(event.Email)
		user.Provider = NormalizeProvider(event.Provider)
		if user.Provider == "" {
			user.Provider = ProviderCredentials
		}

		role, ok := ParseRole(event.Role)
		if !ok {
			role = RoleNormal
		}
		user.Role = role

		if user.Provider == ProviderCredentials {
			if event.Password == "" {
				return goerrors.New("password required for credentials provider", goerrors.CategoryValidation).
					WithCode(goerrors.CodeBadRequest)
			}
			user.PasswordHash = h.hasher.HashCredential(event.Password)
		} else if event.Password != "" {
			return sentinelError(ErrProviderNoPassword)
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(user.Email); err == nil {
				user.ID = id
			}
		}

		var err error
		if user, err = h.repo.Users().InsertTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.logger.Info("registered %s user %s", user.Provider, user.Email)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
