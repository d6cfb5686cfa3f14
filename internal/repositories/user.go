package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/monitoringhub/auth-service/internal/logger"
	"github.com/monitoringhub/auth-service/internal/models"
)

// queryTimeout bounds every single-row storage operation so a stalled
// connection surfaces as an error instead of hanging the request.
const queryTimeout = 5 * time.Second

// ErrUniqueViolation is returned when an insert loses the race on the
// username/email unique constraints. Concurrent registrations of the same
// username are serialized by the database; at most one wins.
var ErrUniqueViolation = errors.New("unique constraint violation")

const pgUniqueViolationCode = "23505"

type UserReadRepository struct {
	db *sqlx.DB
}

func NewUserReadRepository(db *sqlx.DB) *UserReadRepository {
	return &UserReadRepository{db: db}
}

// GetByUsername returns the full user record, or (nil, nil) when no such
// user exists. Absence is not an error here; the service decides what a
// missing user means.
func (r *UserReadRepository) GetByUsername(ctx context.Context, username string) (*models.UserDB, error) {
	const query = `
		SELECT id, username, email, password_hash, salt, role, is_active, created_at, last_login
		FROM users
		WHERE username = $1
		LIMIT 1
	`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user models.UserDB
	err := r.db.GetContext(ctx, &user, query, username)

	logger.Log.Debugw("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{username},
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsernameOrEmail returns a user matching either value, or (nil, nil)
// when neither is taken. Used for duplicate checks before registration.
func (r *UserReadRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.UserDB, error) {
	const query = `
		SELECT id, username, email, password_hash, salt, role, is_active, created_at, last_login
		FROM users
		WHERE username = $1 OR email = $2
		LIMIT 1
	`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user models.UserDB
	err := r.db.GetContext(ctx, &user, query, username, email)

	logger.Log.Debugw("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{username, email},
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user with the given username is present.
func (r *UserReadRepository) Exists(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, username)

	logger.Log.Debugw("query executed",
		"query", query,
		"args", []any{username},
		"error", err,
	)

	return exists, err
}

// List returns the administrative projection of all users, newest first.
func (r *UserReadRepository) List(ctx context.Context) ([]models.UserInfo, error) {
	const query = `
		SELECT id, username, email, role, is_active, created_at, last_login
		FROM users
		ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	users := make([]models.UserInfo, 0)
	err := r.db.SelectContext(ctx, &users, query)

	logger.Log.Debugw("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"rows", len(users),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return users, nil
}

type UserWriteRepository struct {
	db *sqlx.DB
}

func NewUserWriteRepository(db *sqlx.DB) *UserWriteRepository {
	return &UserWriteRepository{db: db}
}

// Save inserts a new user record. A lost race on the username or email
// unique constraints is reported as ErrUniqueViolation; existing records
// are never overwritten.
func (r *UserWriteRepository) Save(ctx context.Context, user models.UserDB) error {
	const query = `
		INSERT INTO users (id, username, email, password_hash, salt, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	args := []any{
		user.ID, user.Username, user.Email,
		user.PasswordHash, user.Salt,
		user.Role, user.IsActive, user.CreatedAt,
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, query, args...)

	logger.Log.Debugw("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"username", user.Username,
		"error", err,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
		return ErrUniqueViolation
	}
	return err
}

// UpdateLastLogin stamps the last successful authentication time.
func (r *UserWriteRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, query, userID, at)

	logger.Log.Debugw("query executed",
		"query", query,
		"user_id", userID,
		"error", err,
	)

	return err
}
