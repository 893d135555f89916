package api

import (
	"io"
	"net/http"
	"strings"

	"contactkeeper/internal/server/models"
)

// maxAvatarBytes bounds the avatar upload body.
const maxAvatarBytes = 10 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type subscriptionRequest struct {
	Subscription string `json:"subscription"`
}

type userResponse struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL,omitempty"`
}

func newUserResponse(user *models.User) userResponse {
	return userResponse{
		Email:        user.Email,
		Subscription: user.Subscription,
		AvatarURL:    user.AvatarURL,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]userResponse{"user": newUserResponse(user)})
}

// VerifyEmail handles GET /api/users/verify/{token}, the link from the
// verification mail.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	token := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/verify/"), "/")
	if err := h.accounts.Verify(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Verification successful"})
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req resendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.accounts.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Verification email sent"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  newUserResponse(user),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	user, ok := requireAccount(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Logout(r.Context(), user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	user, ok := requireAccount(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, "PATCH")
		return
	}

	user, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.accounts.UpdateSubscription(r.Context(), user.ID, req.Subscription); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Email: user.Email, Subscription: req.Subscription, AvatarURL: user.AvatarURL})
}

// UpdateAvatar accepts the raw image in the request body, normalizes it and
// stores the result, responding with the new public URL.
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, "PATCH")
		return
	}

	user, ok := requireAccount(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAvatarBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	url, err := h.accounts.UpdateAvatar(r.Context(), user.ID, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatarURL": url})
}
