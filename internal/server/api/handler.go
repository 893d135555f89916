// Package api exposes the REST surface of the server: account lifecycle
// routes under /api/users and the authenticated contact collection under
// /api/contacts.
package api

import (
	"context"
	"net/http"

	"contactkeeper/internal/logging"
	"contactkeeper/internal/server/models"
)

// AccountService is the account-lifecycle contract the transport depends on.
type AccountService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Verify(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Logout(ctx context.Context, userID string) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UpdateSubscription(ctx context.Context, userID, subscription string) error
	UpdateAvatar(ctx context.Context, userID string, image []byte) (string, error)
}

// ContactManager is the contact-collection contract the transport depends on.
type ContactManager interface {
	Create(ctx context.Context, ownerID, name, email, phone string, favorite bool) (*models.Contact, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Contact, error)
	List(ctx context.Context, ownerID string, page, limit int, favorite *bool) ([]*models.Contact, error)
	Update(ctx context.Context, ownerID, id string, patch *models.ContactPatch) (*models.Contact, error)
	SetFavorite(ctx context.Context, ownerID, id string, favorite bool) (*models.Contact, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// Handler carries the services behind the REST routes.
type Handler struct {
	accounts  AccountService
	contacts  ContactManager
	logger    logging.Logger
	jwtSecret []byte
}

// NewHandler constructs a Handler. secretKey must match the one the account
// service signs session tokens with.
func NewHandler(accounts AccountService, contacts ContactManager, logger logging.Logger, secretKey string) *Handler {
	return &Handler{
		accounts:  accounts,
		contacts:  contacts,
		logger:    logger.With("module", "api"),
		jwtSecret: []byte(secretKey),
	}
}

// Routes builds the route table. Everything under /api/ except registration,
// login and verification passes through the auth guard.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/users/register", h.Register)
	mux.HandleFunc("/api/users/verify", h.ResendVerification)
	mux.HandleFunc("/api/users/verify/", h.VerifyEmail)
	mux.HandleFunc("/api/users/login", h.Login)
	mux.HandleFunc("/api/users/logout", h.Logout)
	mux.HandleFunc("/api/users/current", h.Current)
	mux.HandleFunc("/api/users/avatars", h.UpdateAvatar)
	mux.HandleFunc("/api/users", h.UpdateSubscription)
	mux.HandleFunc("/api/contacts", h.Contacts)
	mux.HandleFunc("/api/contacts/", h.ContactByID)

	return h.authGuard(mux)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
}
