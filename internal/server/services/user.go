// Package services contains server-side business logic. This file implements
// UserService, which drives the account lifecycle: registration, email
// verification, login/logout, subscription and avatar updates.
package services

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"contactkeeper/internal/common"
	"contactkeeper/internal/logging"
	"contactkeeper/internal/server/auth"
	"contactkeeper/internal/server/config"
	"contactkeeper/internal/server/models"
	"contactkeeper/internal/server/repositories/repomanager"
)

// verificationTokenBytes sizes the random single-use verification token.
const verificationTokenBytes = 16

// avatarKeySuffix is appended to the account id to build the stored avatar
// object key, keeping keys collision-free across accounts and stable across
// re-uploads.
const avatarKeySuffix = "_avatar"

// UserService provides account-lifecycle operations. An account moves from
// pending verification to verified exactly once; a session token is only
// ever minted for verified accounts and is stored on the account row so
// logout revokes it immediately.
type UserService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	notifier              Notifier
	pipeline              AvatarPipeline
	objects               ObjectStore
	logger                logging.Logger
	jwtSecret             []byte
	tokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories, collaborators
// and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	logger logging.Logger, notifier Notifier, pipeline AvatarPipeline, objects ObjectStore) *UserService {
	return &UserService{
		db:                    db,
		repomanager:           m,
		notifier:              notifier,
		pipeline:              pipeline,
		objects:               objects,
		logger:                logger.With("module", "user_service"),
		jwtSecret:             []byte(cfg.SecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
	}
}

// Register creates an account in pending-verification state and asks the
// notifier to deliver the verification link. Registration success means "the
// account is persisted"; mail delivery failures are logged only.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	hash, err := auth.HashPassword(password, 0)
	if err != nil {
		return nil, common.ErrorInternal
	}

	verificationToken, err := common.MakeRandHexString(verificationTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Email:             email,
		PasswordHash:      hash,
		Subscription:      models.SubscriptionStarter,
		VerificationToken: verificationToken,
		AvatarURL:         gravatarURL(email),
	}

	repo := s.repomanager.Users(s.db)
	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.notifyAsync(user.Email, verificationToken)

	return user, nil
}

// Verify consumes a verification token. The consume is a single atomic store
// write, so it succeeds at most once per token; a second call reports
// common.ErrorNotFound, which is the expected terminal behavior.
func (s *UserService) Verify(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: verification token is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.ConsumeVerificationToken(ctx, token); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error consuming verification token: %w", err)
	}
	return nil
}

// ResendVerification re-sends the existing (unchanged) verification token.
func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	if user.Verify {
		return common.ErrorAlreadyVerified
	}

	s.notifyAsync(user.Email, user.VerificationToken)

	return nil
}

// Login checks the credential pair and the verified flag, then mints a
// session token and persists it on the account, superseding any previous
// session. Unknown identity and hash mismatch report the same error so
// callers cannot probe for registered emails.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	if email == "" || password == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrorInvalidCredentials
		}
		return "", nil, common.ErrorInternal
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, common.ErrorInvalidCredentials
	}

	if !user.Verify {
		return "", nil, common.ErrorNotVerified
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return "", nil, common.ErrorInternal
	}

	if err := repo.UpdateToken(ctx, user.ID, token); err != nil {
		return "", nil, common.ErrorInternal
	}

	user.Token = token
	return token, user, nil
}

// Logout clears the stored session token unconditionally and is idempotent.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateToken(ctx, userID, ""); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}
	return nil
}

// GetByID loads an account record; the auth middleware uses it to re-check
// the presented token against the stored one.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	return repo.GetByID(ctx, userID)
}

// UpdateSubscription persists a new tier for the account.
func (s *UserService) UpdateSubscription(ctx context.Context, userID, subscription string) error {
	if !models.ValidSubscription(subscription) {
		return fmt.Errorf("%w: subscription must be one of starter, pro, business", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateSubscription(ctx, userID, subscription); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	return nil
}

// UpdateAvatar runs the uploaded image through the avatar pipeline, stores
// the result under a key derived from the account id, and persists the new
// reference. Pipeline and storage failures surface as common.ErrorProcessing.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: image payload is required", common.ErrorValidation)
	}

	normalized, err := s.pipeline.Normalize(image)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorProcessing, err)
	}

	key := "avatars/" + userID + avatarKeySuffix
	url, err := s.objects.Put(ctx, key, normalized, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorProcessing, err)
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateAvatar(ctx, userID, url); err != nil {
		return "", common.ErrorInternal
	}

	return url, nil
}

// notifyAsync fires the verification mail on its own goroutine with a
// detached context: delivery must not block or fail the calling operation.
func (s *UserService) notifyAsync(email, token string) {
	go func() {
		ctx := context.Background()
		if err := s.notifier.SendVerificationLink(ctx, email, token); err != nil {
			s.logger.Error(ctx, "verification mail delivery failed", "email", email, "error", err.Error())
		}
	}()
}

// gravatarURL derives the deterministic placeholder avatar for an identity.
func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:])
}
