package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"contactkeeper/internal/server/models"
	"contactkeeper/internal/server/services"
)

type contactRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Favorite bool   `json:"favorite"`
}

type contactPatchRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Favorite *bool   `json:"favorite"`
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

type contactResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"createdAt"`
}

func newContactResponse(c *models.Contact) contactResponse {
	return contactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Favorite:  c.Favorite,
		CreatedAt: c.CreatedAt,
	}
}

// Contacts serves the collection route: GET lists a page, POST creates.
func (h *Handler) Contacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listContacts(w, r)
	case http.MethodPost:
		h.createContact(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (h *Handler) listContacts(w http.ResponseWriter, r *http.Request) {
	user, ok := requireAccount(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()

	page := 1
	if raw := query.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("page must be an integer"))
			return
		}
		page = v
	}

	limit := services.DefaultPageLimit
	if raw := query.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("limit must be an integer"))
			return
		}
		limit = v
	}

	var favorite *bool
	if raw := query.Get("favorite"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("favorite must be a boolean"))
			return
		}
		favorite = &v
	}

	contacts, err := h.contacts.List(r.Context(), user.ID, page, limit, favorite)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, newContactResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createContact(w http.ResponseWriter, r *http.Request) {
	user, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	contact, err := h.contacts.Create(r.Context(), user.ID, req.Name, req.Email, req.Phone, req.Favorite)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newContactResponse(contact))
}

// ContactByID serves /api/contacts/{id} and /api/contacts/{id}/favorite.
func (h *Handler) ContactByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/contacts/"), "/")
	parts := strings.Split(trimmed, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.contactByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "favorite":
		h.contactFavorite(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, errors.New("not found"))
	}
}

func (h *Handler) contactByID(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := requireAccount(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		contact, err := h.contacts.GetByID(r.Context(), user.ID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newContactResponse(contact))

	case http.MethodPut:
		var req contactPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		patch := &models.ContactPatch{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Favorite: req.Favorite,
		}
		contact, err := h.contacts.Update(r.Context(), user.ID, id, patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newContactResponse(contact))

	case http.MethodDelete:
		if err := h.contacts.Delete(r.Context(), user.ID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "contact deleted"})

	default:
		methodNotAllowed(w, "GET, PUT, DELETE")
	}
}

func (h *Handler) contactFavorite(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, "PATCH")
		return
	}

	user, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Favorite == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing field favorite"))
		return
	}

	contact, err := h.contacts.SetFavorite(r.Context(), user.ID, id, *req.Favorite)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactResponse(contact))
}
