package users

import (
	"context"

	"contactkeeper/internal/server/models"
)

// Repository is the AccountStore contract. Every mutation is a single atomic
// statement; ConsumeVerificationToken in particular both checks and clears
// the token in one write so it can succeed at most once per token.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// ConsumeVerificationToken marks the holder of token as verified and
	// clears the token, returning the account id. A second call with the
	// same token yields common.ErrorNotFound.
	ConsumeVerificationToken(ctx context.Context, token string) (string, error)

	// UpdateToken stores the current session token; an empty token clears it.
	UpdateToken(ctx context.Context, id, token string) error

	UpdateSubscription(ctx context.Context, id, subscription string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
}
