package repository

import (
	"testing"

	"deepthoughts/internal/cache"
	"deepthoughts/internal/models"
	"deepthoughts/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock using the postgres dialect.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	return testutil.SQLite(t)
}

func setupCache(t *testing.T) (*miniredis.Miniredis, *cache.Cache) {
	t.Helper()
	mr, client := testutil.Redis(t)
	return mr, cache.New(client, nil)
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@x.com", Password: "hash-" + username}
	require.NoError(t, db.Create(u).Error)
	return u
}
