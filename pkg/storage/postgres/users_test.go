package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apnisec/issuetracker/pkg/storage"
)

var userColumns = []string{"id", "name", "email", "password", "reset_token", "reset_expires", "created_at", "updated_at"}

func TestUserStore_FindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)
	now := time.Now()

	mock.ExpectQuery("SELECT id, name, email, password").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(3), "Ada", "ada@example.com", "$2a$10$hash", nil, nil, now, now))

	u, err := store.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "$2a$10$hash", u.PasswordHash)
	assert.Nil(t, u.ResetToken)
	assert.Nil(t, u.ResetExpires)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_FindByEmail_WithResetFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)
	now := time.Now()

	mock.ExpectQuery("SELECT id, name, email, password").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(3), "Ada", "ada@example.com", "hash", "tok", now, now, now))

	u, err := store.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.ResetToken)
	assert.Equal(t, "tok", *u.ResetToken)
	require.NotNil(t, u.ResetExpires)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_FindByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)

	mock.ExpectQuery("SELECT id, name, email, password").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err = store.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_FindByEmail_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)

	mock.ExpectQuery("SELECT id, name, email, password").
		WithArgs("ada@example.com").
		WillReturnError(errors.New("connection reset"))

	_, err = store.FindByEmail(context.Background(), "ada@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestUserStore_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("Ada", "ada@example.com", "hash").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Insert(context.Background(), "Ada", "ada@example.com", "hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_Insert_UniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("Ada", "ada@example.com", "hash").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err = store.Insert(context.Background(), "Ada", "ada@example.com", "hash")
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_Insert_OtherError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("disk full"))

	err = store.Insert(context.Background(), "Ada", "ada@example.com", "hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrConflict)
}

func TestUserStore_Updates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewUserStore(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE users SET name").
		WithArgs("Ada L.", "ada@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET password").
		WithArgs("newhash", "ada@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET name").
		WithArgs("x", "nobody@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.UpdateName(ctx, "ada@example.com", "Ada L."))
	require.NoError(t, store.UpdatePassword(ctx, "ada@example.com", "newhash"))
	assert.ErrorIs(t, store.UpdateName(ctx, "nobody@example.com", "x"), storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_HealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, NewUserStore(db).HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, NewUserStore(db).HealthCheck(context.Background()))
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS posts").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Failure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_create_users.up.sql")
}
