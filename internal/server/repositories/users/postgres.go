// Package users provides the PostgreSQL-backed account repository.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"contactkeeper/internal/common"
	"contactkeeper/internal/dbx"
	"contactkeeper/internal/server/models"
)

// PostgresRepository implements account storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password_hash, subscription,
	COALESCE(token, ''), COALESCE(verification_token, ''), verify,
	COALESCE(avatar_url, ''), created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Subscription,
		&user.Token, &user.VerificationToken, &user.Verify,
		&user.AvatarURL, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// Create inserts a new account. A duplicate email yields
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, subscription, verification_token, avatar_url)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Subscription, user.VerificationToken, user.AvatarURL).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// GetByID returns the account with the given id or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail returns the account with the given email or common.ErrorNotFound.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// ConsumeVerificationToken flips verify and clears the token in one
// conditional UPDATE. Zero affected rows means the token was never issued or
// was already consumed; both map to common.ErrorNotFound.
func (r *PostgresRepository) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	query := `
		UPDATE users SET verify = true, verification_token = NULL
		WHERE verification_token = $1
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, query, token).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// UpdateToken stores token as the account's current session token. An empty
// token clears the column (logout).
func (r *PostgresRepository) UpdateToken(ctx context.Context, id, token string) error {
	query := `UPDATE users SET token = NULLIF($2, '') WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, token)
}

// UpdateSubscription persists a new subscription tier.
func (r *PostgresRepository) UpdateSubscription(ctx context.Context, id, subscription string) error {
	query := `UPDATE users SET subscription = $2 WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, subscription)
}

// UpdateAvatar persists a new avatar reference.
func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	query := `UPDATE users SET avatar_url = $2 WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, avatarURL)
}

func (r *PostgresRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
