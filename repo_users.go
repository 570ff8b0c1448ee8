package multilogin

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the storage surface for directory principals
type Users interface {
	UserDirectory

	InsertTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	ReplaceTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository creates the principal repository over a bun database
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

func prepareUserDefaults(user *User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = RoleNormal
	}
	user.Provider = NormalizeProvider(user.Provider)
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := a.repo.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, sentinelError(ErrIdentityNotFound)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

func (a *users) GetByEmailAndProvider(ctx context.Context, email string, provider Provider) (*User, error) {
	user := &User{}
	err := a.db.NewSelect().
		Model(user).
		Where("email = ? AND provider = ?", email, NormalizeProvider(provider)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinelError(ErrIdentityNotFound)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

// GetByCredentials matches a local account in a single query against the
// stored digest. Unknown email and wrong digest both come back as not found.
func (a *users) GetByCredentials(ctx context.Context, email, passwordHash string) (*User, error) {
	user := &User{}
	err := a.db.NewSelect().
		Model(user).
		Where("email = ? AND provider = ? AND password_hash = ?", email, ProviderCredentials, passwordHash).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinelError(ErrIdentityNotFound)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

func (a *users) Insert(ctx context.Context, user *User) (*User, error) {
	return a.InsertTx(ctx, a.db, user)
}

func (a *users) InsertTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	if err := user.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid user record")
	}

	exists, err := a.existsTx(ctx, tx, user.Email, user.Provider)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, sentinelError(ErrDuplicateIdentity)
	}

	// The unique index on (email, provider) backstops the pre-check race.
	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, sentinelError(ErrDuplicateIdentity)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert user")
	}

	return user, nil
}

func (a *users) Replace(ctx context.Context, user *User) (*User, error) {
	return a.ReplaceTx(ctx, a.db, user)
}

func (a *users) ReplaceTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if err := user.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid user record")
	}

	res, err := tx.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sentinelError(ErrDuplicateIdentity)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, sentinelError(ErrIdentityNotFound)
	}

	return user, nil
}

func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	return a.DeleteTx(ctx, a.db, id)
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete user")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sentinelError(ErrIdentityNotFound)
	}

	return nil
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}
	return records, nil
}

func (a *users) ExistsByEmailAndProvider(ctx context.Context, email string, provider Provider) (bool, error) {
	return a.existsTx(ctx, a.db, email, provider)
}

func (a *users) existsTx(ctx context.Context, tx bun.IDB, email string, provider Provider) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("email = ? AND provider = ?", email, NormalizeProvider(provider)).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check for existing user")
	}
	return exists, nil
}

// IsDuplicateEmail reports whether a record other than excludingID already
// holds (email, provider).
func (a *users) IsDuplicateEmail(ctx context.Context, excludingID uuid.UUID, email string, provider Provider) (bool, error) {
	exists, err := a.db.NewSelect().
		Model((*User)(nil)).
		Where("email = ? AND provider = ? AND id != ?", email, NormalizeProvider(provider), excludingID).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check for duplicate email")
	}
	return exists, nil
}

func (a *users) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.UpdatePasswordHashTx(ctx, a.db, id, passwordHash)
}

func (a *users) UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update password hash")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sentinelError(ErrIdentityNotFound)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
