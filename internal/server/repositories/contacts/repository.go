package contacts

import (
	"context"

	"contactkeeper/internal/server/models"
)

// Repository is the ContactStore contract. Reads and mutations always filter
// by (id, owner) jointly; a contact owned by someone else behaves exactly
// like a missing one.
type Repository interface {
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Contact, error)

	// Update merges the non-nil patch fields into the contact. Omitted
	// fields keep their stored values.
	Update(ctx context.Context, ownerID, id string, patch *models.ContactPatch) (*models.Contact, error)

	Delete(ctx context.Context, ownerID, id string) error

	// List returns the owner's contacts in creation order, optionally
	// filtered by favorite, skipping offset records and returning at most
	// limit.
	List(ctx context.Context, ownerID string, favorite *bool, offset, limit int) ([]*models.Contact, error)
}
