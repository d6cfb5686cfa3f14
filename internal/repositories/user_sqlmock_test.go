package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/monitoringhub/auth-service/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestUserWriteRepository_Save_MapsUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserWriteRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolationCode, ConstraintName: "users_username_key"})

	err := repo.Save(context.Background(), models.UserDB{
		ID:        uuid.New(),
		Username:  "alice",
		Email:     "alice@example.com",
		CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserWriteRepository_Save_PassesThroughOtherErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserWriteRepository(db)

	dbErr := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO users").WillReturnError(dbErr)

	err := repo.Save(context.Background(), models.UserDB{ID: uuid.New(), Username: "alice"})
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrUniqueViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserReadRepository_GetByUsername_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserReadRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnError(errors.New("connection reset"))

	user, err := repo.GetByUsername(context.Background(), "alice")
	assert.Error(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}
