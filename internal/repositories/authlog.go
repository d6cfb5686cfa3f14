package repositories

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/monitoringhub/auth-service/internal/logger"
	"github.com/monitoringhub/auth-service/internal/models"
)

// DefaultAuthLogLimit bounds administrative audit listings.
const DefaultAuthLogLimit = 100

// AuthLogWriteRepository appends audit records of authentication attempts.
// The auth_logs table is an append-only ledger: no update or delete
// operations exist.
type AuthLogWriteRepository struct {
	db *sqlx.DB
}

func NewAuthLogWriteRepository(db *sqlx.DB) *AuthLogWriteRepository {
	return &AuthLogWriteRepository{db: db}
}

// Save appends one audit entry. Callers treat failures as best-effort: an
// audit write error must never fail the authentication that triggered it.
func (r *AuthLogWriteRepository) Save(ctx context.Context, entry models.AuthLogDB) error {
	const query = `
		INSERT INTO auth_logs (username, action, success, ip_address, user_agent, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	args := []any{entry.Username, entry.Action, entry.Success, entry.IPAddress, entry.UserAgent, entry.Timestamp}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, query, args...)

	logger.Log.Debugw("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"action", entry.Action,
		"success", entry.Success,
		"error", err,
	)

	return err
}

// AuthLogReadRepository queries the audit ledger.
type AuthLogReadRepository struct {
	db *sqlx.DB
}

func NewAuthLogReadRepository(db *sqlx.DB) *AuthLogReadRepository {
	return &AuthLogReadRepository{db: db}
}

// ListRecent returns up to limit entries, newest first. Non-positive or
// oversized limits fall back to DefaultAuthLogLimit.
func (r *AuthLogReadRepository) ListRecent(ctx context.Context, limit int) ([]models.AuthLogDB, error) {
	if limit <= 0 || limit > DefaultAuthLogLimit {
		limit = DefaultAuthLogLimit
	}

	const query = `
		SELECT id, username, action, success, ip_address, user_agent, timestamp
		FROM auth_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entries := make([]models.AuthLogDB, 0, limit)
	err := r.db.SelectContext(ctx, &entries, query, limit)

	logger.Log.Debugw("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"limit", limit,
		"rows", len(entries),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return entries, nil
}
