package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gogomedia/internal/config"
	"github.com/Skotchmaster/gogomedia/internal/models"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	ctx := context.Background()
	gdb, err := Open(ctx, config.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, Migrate(ctx, gdb))
	assert.True(t, gdb.Migrator().HasTable(&models.User{}))
	assert.True(t, gdb.Migrator().HasTable(&models.Media{}))
	assert.True(t, gdb.Migrator().HasTable(&models.RevokedToken{}))
	require.NoError(t, Ping(ctx, gdb))

	u := models.User{Username: "alice", PasswordHash: "x"}
	require.NoError(t, gdb.Create(&u).Error)
	dup := models.User{Username: "alice", PasswordHash: "y"}
	err = gdb.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), config.DriverSQLite, "")
	require.Error(t, err)

	_, err = Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
}

func TestOpen_PostgresIntegration(t *testing.T) {
	dsn := os.Getenv("GOGOMEDIA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("GOGOMEDIA_TEST_DATABASE_URL is required for postgres tests")
	}
	ctx := context.Background()
	gdb, err := Open(ctx, config.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })
	require.NoError(t, Migrate(ctx, gdb))
}
