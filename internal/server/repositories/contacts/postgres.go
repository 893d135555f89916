// Package contacts provides the PostgreSQL-backed contact repository.
package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contactkeeper/internal/common"
	"contactkeeper/internal/dbx"
	"contactkeeper/internal/server/models"
)

// PostgresRepository implements contact storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const contactColumns = `id, owner_id, name, email, phone, favorite, created_at`

func scanContact(scan func(dest ...any) error) (*models.Contact, error) {
	c := &models.Contact{}
	err := scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Phone, &c.Favorite, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Create inserts a contact with a caller-assigned id.
func (r *PostgresRepository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query := `
		INSERT INTO contacts (id, owner_id, name, email, phone, favorite)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		contact.ID, contact.OwnerID, contact.Name, contact.Email, contact.Phone, contact.Favorite).
		Scan(&contact.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return contact, nil
}

// GetByID returns the contact only when ownerID matches; otherwise
// common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND owner_id = $2`
	row := r.db.QueryRowContext(ctx, query, id, ownerID)
	return scanContact(row.Scan)
}

// Update merges the non-nil patch fields in a single UPDATE; COALESCE keeps
// stored values for omitted fields.
func (r *PostgresRepository) Update(ctx context.Context, ownerID, id string, patch *models.ContactPatch) (*models.Contact, error) {
	query := `
		UPDATE contacts SET
			name = COALESCE($3, name),
			email = COALESCE($4, email),
			phone = COALESCE($5, phone),
			favorite = COALESCE($6, favorite)
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + contactColumns
	row := r.db.QueryRowContext(ctx, query, id, ownerID,
		patch.Name, patch.Email, patch.Phone, patch.Favorite)
	return scanContact(row.Scan)
}

// Delete removes the contact under the same ownership rule; zero affected
// rows map to common.ErrorNotFound so repeated deletes report that no state
// changed.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	query := `DELETE FROM contacts WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
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

// List pages through the owner's contacts in creation order. A nil favorite
// applies no filter. Offsets beyond the total yield an empty slice.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, favorite *bool, offset, limit int) ([]*models.Contact, error) {
	query := `
		SELECT ` + contactColumns + ` FROM contacts
		WHERE owner_id = $1 AND ($2::boolean IS NULL OR favorite = $2)
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, favorite, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
