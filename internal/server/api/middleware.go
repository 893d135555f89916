package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"contactkeeper/internal/common"
	"contactkeeper/internal/server/auth"
	"contactkeeper/internal/server/models"
)

type ctxKey string

const accountKey ctxKey = "account"

// ContextWithAccount attaches the authenticated account to the context.
func ContextWithAccount(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, accountKey, user)
}

// AccountFromContext returns the account the auth guard resolved, if any.
func AccountFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(accountKey).(*models.User)
	return user, ok
}

// ExtractToken pulls the bearer token from the Authorization header, or ""
// when absent or malformed.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// publicRoute reports whether the path is reachable without a session token.
// Paths outside /api/ fall through to the mux (which answers 404).
func publicRoute(r *http.Request) bool {
	path := r.URL.Path
	if !strings.HasPrefix(path, "/api/") {
		return true
	}
	switch path {
	case "/api/users/register", "/api/users/login", "/api/users/verify":
		return true
	}
	return strings.HasPrefix(path, "/api/users/verify/")
}

// authGuard authenticates every non-public request. The check is two-step:
// the JWT must verify and be unexpired, and the token must still equal the
// one stored on the account row. The second step makes logout an immediate
// revocation even for tokens that are cryptographically still valid.
func (h *Handler) authGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicRoute(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := ExtractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, errors.New("not authorized"))
			return
		}

		userID, err := auth.GetUserIDFromToken(token, h.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, errors.New("not authorized"))
			return
		}

		user, err := h.accounts.GetByID(r.Context(), userID)
		if err != nil || user.Token != token {
			writeError(w, http.StatusUnauthorized, errors.New("not authorized"))
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), user)))
	})
}

// requireAccount is used inside handlers behind the guard; a missing account
// means the route was wired outside the guard and is treated as unauthorized.
func requireAccount(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("not authorized"))
		return nil, false
	}
	return user, true
}
