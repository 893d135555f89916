package services

import (
	"context"
	"database/sql"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"contactkeeper/internal/common"
	"contactkeeper/internal/server/models"
	"contactkeeper/internal/server/repositories/repomanager"
)

// Field length bounds for contact records, in runes.
const (
	contactNameMin  = 2
	contactNameMax  = 50
	contactEmailMin = 5
	contactEmailMax = 50
	contactPhoneMin = 5
	contactPhoneMax = 20
)

// DefaultPageLimit applies when a listing request does not specify one.
const DefaultPageLimit = 20

// ContactService manages the per-owner contact collection. Every operation
// takes the owner id and the repository scopes queries by it, so a contact is
// reachable only through its owner.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewContactService constructs a ContactService.
func NewContactService(db *sql.DB, m repomanager.RepositoryManager) *ContactService {
	return &ContactService{db: db, repomanager: m}
}

// Create validates the fields and stores a new contact for the owner.
func (s *ContactService) Create(ctx context.Context, ownerID, name, email, phone string, favorite bool) (*models.Contact, error) {
	if err := validateContactField("name", name, contactNameMin, contactNameMax); err != nil {
		return nil, err
	}
	if err := validateContactField("email", email, contactEmailMin, contactEmailMax); err != nil {
		return nil, err
	}
	if err := validateContactField("phone", phone, contactPhoneMin, contactPhoneMax); err != nil {
		return nil, err
	}

	contact := &models.Contact{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Name:     name,
		Email:    email,
		Phone:    phone,
		Favorite: favorite,
	}

	repo := s.repomanager.Contacts(s.db)
	return repo.Create(ctx, contact)
}

// GetByID loads one contact belonging to the owner.
func (s *ContactService) GetByID(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	repo := s.repomanager.Contacts(s.db)
	return repo.GetByID(ctx, ownerID, id)
}

// List returns one page of the owner's contacts in stable creation order.
// favorite filters by flag when non-nil. page is 1-based.
func (s *ContactService) List(ctx context.Context, ownerID string, page, limit int, favorite *bool) ([]*models.Contact, error) {
	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("%w: page and limit must be positive", common.ErrorValidation)
	}

	repo := s.repomanager.Contacts(s.db)
	return repo.List(ctx, ownerID, favorite, (page-1)*limit, limit)
}

// Update applies a partial patch to the owner's contact. Absent fields stay
// untouched; an empty patch is rejected.
func (s *ContactService) Update(ctx context.Context, ownerID, id string, patch *models.ContactPatch) (*models.Contact, error) {
	if patch == nil || patch.Empty() {
		return nil, fmt.Errorf("%w: missing fields", common.ErrorValidation)
	}

	if patch.Name != nil {
		if err := validateContactField("name", *patch.Name, contactNameMin, contactNameMax); err != nil {
			return nil, err
		}
	}
	if patch.Email != nil {
		if err := validateContactField("email", *patch.Email, contactEmailMin, contactEmailMax); err != nil {
			return nil, err
		}
	}
	if patch.Phone != nil {
		if err := validateContactField("phone", *patch.Phone, contactPhoneMin, contactPhoneMax); err != nil {
			return nil, err
		}
	}

	repo := s.repomanager.Contacts(s.db)
	return repo.Update(ctx, ownerID, id, patch)
}

// SetFavorite flips only the favorite flag on the owner's contact.
func (s *ContactService) SetFavorite(ctx context.Context, ownerID, id string, favorite bool) (*models.Contact, error) {
	repo := s.repomanager.Contacts(s.db)
	return repo.Update(ctx, ownerID, id, &models.ContactPatch{Favorite: &favorite})
}

// Delete removes the owner's contact.
func (s *ContactService) Delete(ctx context.Context, ownerID, id string) error {
	repo := s.repomanager.Contacts(s.db)
	return repo.Delete(ctx, ownerID, id)
}

func validateContactField(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return fmt.Errorf("%w: %s must be between %d and %d characters", common.ErrorValidation, field, min, max)
	}
	return nil
}
