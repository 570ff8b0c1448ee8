package multilogin_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	multilogin "github.com/multilogin/go-multilogin"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, multilogin.ApplyMigrations(context.Background(), db))

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestRepo(t *testing.T) multilogin.RepositoryManager {
	t.Helper()
	return multilogin.NewRepositoryManager(newTestDB(t))
}

func seedUser(t *testing.T, dir multilogin.Users, user *multilogin.User) *multilogin.User {
	t.Helper()
	created, err := dir.Insert(context.Background(), user)
	require.NoError(t, err)
	return created
}
