package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"contactkeeper/internal/common"
	"contactkeeper/internal/dbx"
	"contactkeeper/internal/logging"
	"contactkeeper/internal/server/auth"
	"contactkeeper/internal/server/config"
	"contactkeeper/internal/server/models"
	"contactkeeper/internal/server/repositories/contacts"
	"contactkeeper/internal/server/repositories/users"
)

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	byEmail map[string]*models.User
	nextID  int

	createErr error
	tokenErr  error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (r *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.nextID++
	stored := *user
	stored.ID = fmt.Sprintf("u-%d", r.nextID)
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = &stored
	out := stored
	return &out, nil
}

func (r *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUsersRepo) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.VerificationToken == token && !u.Verify {
			u.Verify = true
			u.VerificationToken = ""
			return u.ID, nil
		}
	}
	return "", common.ErrorNotFound
}

func (r *fakeUsersRepo) UpdateToken(ctx context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tokenErr != nil {
		return r.tokenErr
	}
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Token = token
	return nil
}

func (r *fakeUsersRepo) UpdateSubscription(ctx context.Context, id, subscription string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Subscription = subscription
	return nil
}

func (r *fakeUsersRepo) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.AvatarURL = avatarURL
	return nil
}

type fakeRepoManager struct {
	usersRepo    users.Repository
	contactsRepo contacts.Repository
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return m.usersRepo }
func (m *fakeRepoManager) Contacts(db dbx.DBTX) contacts.Repository            { return m.contactsRepo }

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	token string
	err   error
	done  chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{done: make(chan struct{}, 4)}
}

func (n *fakeNotifier) SendVerificationLink(ctx context.Context, email, token string) error {
	n.mu.Lock()
	n.sent = append(n.sent, email)
	n.token = token
	n.mu.Unlock()
	n.done <- struct{}{}
	return n.err
}

func (n *fakeNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}
}

type fakePipeline struct {
	out []byte
	err error
}

func (p *fakePipeline) Normalize(data []byte) ([]byte, error) { return p.out, p.err }

type fakeObjectStore struct {
	key  string
	data []byte
	url  string
	err  error
}

func (s *fakeObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.key = key
	s.data = data
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.TokenValidityDuration = time.Hour
	return cfg
}

func newTestUserService(repo users.Repository, notifier Notifier, pipeline AvatarPipeline, objects ObjectStore) *UserService {
	return NewUserService(nil, &fakeRepoManager{usersRepo: repo}, testConfig(),
		logging.NewSlogLogger(slog.Default()), notifier, pipeline, objects)
}

func registerVerified(t *testing.T, repo *fakeUsersRepo, email, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	u, err := repo.Create(context.Background(), &models.User{
		Email:        email,
		PasswordHash: hash,
		Subscription: models.SubscriptionStarter,
	})
	require.NoError(t, err)
	repo.byID[u.ID].Verify = true
	return u
}

func TestRegister(t *testing.T) {
	repo := newFakeUsersRepo()
	notifier := newFakeNotifier()
	s := newTestUserService(repo, notifier, nil, nil)

	user, err := s.Register(context.Background(), "A@X.com", "pass123")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.SubscriptionStarter, user.Subscription)
	assert.False(t, user.Verify)
	assert.NotEmpty(t, user.VerificationToken)
	assert.NotEqual(t, "pass123", user.PasswordHash)
	// md5("a@x.com")
	assert.Equal(t, "https://www.gravatar.com/avatar/743173788aa9166801df2e18f0e7ff24", user.AvatarURL)

	notifier.wait(t)
	assert.Equal(t, []string{"A@X.com"}, notifier.sent)
	assert.Equal(t, user.VerificationToken, notifier.token)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUsersRepo()
	s := newTestUserService(repo, newFakeNotifier(), nil, nil)

	_, err := s.Register(context.Background(), "a@x.com", "pass123")
	require.NoError(t, err)

	_, err = s.Register(context.Background(), "a@x.com", "other456")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestUserService(newFakeUsersRepo(), newFakeNotifier(), nil, nil)

	_, err := s.Register(context.Background(), "", "pass123")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.Register(context.Background(), "a@x.com", "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestRegister_MailFailureDoesNotFailRegistration(t *testing.T) {
	repo := newFakeUsersRepo()
	notifier := newFakeNotifier()
	notifier.err = errors.New("relay down")
	s := newTestUserService(repo, notifier, nil, nil)

	_, err := s.Register(context.Background(), "a@x.com", "pass123")
	require.NoError(t, err)
	notifier.wait(t)
}

func TestVerify_SingleUse(t *testing.T) {
	repo := newFakeUsersRepo()
	notifier := newFakeNotifier()
	s := newTestUserService(repo, notifier, nil, nil)

	user, err := s.Register(context.Background(), "a@x.com", "pass123")
	require.NoError(t, err)
	notifier.wait(t)

	err = s.Verify(context.Background(), user.VerificationToken)
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verify)
	assert.Empty(t, stored.VerificationToken)

	// second consume of the same token
	err = s.Verify(context.Background(), user.VerificationToken)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestVerify_UnknownToken(t *testing.T) {
	s := newTestUserService(newFakeUsersRepo(), newFakeNotifier(), nil, nil)

	err := s.Verify(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = s.Verify(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestResendVerification(t *testing.T) {
	repo := newFakeUsersRepo()
	notifier := newFakeNotifier()
	s := newTestUserService(repo, notifier, nil, nil)

	user, err := s.Register(context.Background(), "a@x.com", "pass123")
	require.NoError(t, err)
	notifier.wait(t)

	err = s.ResendVerification(context.Background(), "a@x.com")
	require.NoError(t, err)
	notifier.wait(t)
	assert.Equal(t, user.VerificationToken, notifier.token)
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	repo := newFakeUsersRepo()
	s := newTestUserService(repo, newFakeNotifier(), nil, nil)
	registerVerified(t, repo, "a@x.com", "pass123")

	err := s.ResendVerification(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, common.ErrorAlreadyVerified)
}

func TestResendVerification_UnknownEmail(t *testing.T) {
	s := newTestUserService(newFakeUsersRepo(), newFakeNotifier(), nil, nil)

	err := s.ResendVerification(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLogin(t *testing.T) {
	repo := newFakeUsersRepo()
	s := newTestUserService(repo, newFakeNotifier(), nil, nil)
	user := registerVerified(t, repo, "a@x.com", "pass123")

	token, logged, err := s.Login(context.Background(), "a@x.com", "pass123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, logged.ID)

	userID, err := auth.GetUserIDFromToken(token, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, token, stored.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newFakeUsersRepo()
	s := newTestUserService(repo, newFakeNotifier(), nil, nil)
	registerVerified(t, repo, "a@x.com", "pass123")

	_, _, err := s.Login(context.Background(), "a@x.com", "wrong")
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	s := newTestUserService(newFakeUsersRepo(), newFakeNotifier(), nil, nil)

	_, _, err := s.Login(context.Background(), "nobody@x.com", "pass123")
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
}

func TestLogin_NotVerified(t *testing.T) {
	repo := newFakeUsersRepo()
	notifier := newFakeNotifier()
	s := newTestUserService(repo, notifier, nil, nil)

	_, err := s.Register(context.Background(), "a@x.com", "pass123")
	require.NoError(t, err)
	notifier.wait(t)

	_, _, err = s.Login(context.Background(), "a@x.com", "pass123")
	assert.ErrorIs(t, err, common.ErrorNotVerified)
}

func TestLogin_SupersedesPreviousToken(t *testing.T) {
	repo := newFakeUsersRepo()
	s := newTestUserService(repo, newFakeNotifier(), nil, nil)
	user := registerVerified(t, repo, "a@x.com", "pass123")

	first, _, err := s.Login(context.Background(), "a@x.com", "pass123")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond) // distinct iat
	second, _, err := s.Login(context.Background(), "a@x.com", "pass123")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, second, stored.Token)
}

func TestLogout(t *testing.T) {
	repo := newFakeUsersRepo()
	s := newTestUserService(repo, newFakeNotifier(), nil, nil)
	user := registerVerified(t, repo, "a@x.com", "pass123")

	_, _, err := s.Login(context.Background(), "a@x.com", "pass123")
	require.NoError(t, err)

	err = s.Logout(context.Background(), user.ID)
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Token)

	// idempotent
	err = s.Logout(context.Background(), user.ID)
	assert.NoError(t, err)
	err = s.Logout(context.Background(), "missing")
	assert.NoError(t, err)
}

func TestUpdateSubscription(t *testing.T) {
	repo := newFakeUsersRepo()
	s := newTestUserService(repo, newFakeNotifier(), nil, nil)
	user := registerVerified(t, repo, "a@x.com", "pass123")

	err := s.UpdateSubscription(context.Background(), user.ID, models.SubscriptionPro)
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPro, stored.Subscription)

	err = s.UpdateSubscription(context.Background(), user.ID, "platinum")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpdateAvatar(t *testing.T) {
	repo := newFakeUsersRepo()
	pipeline := &fakePipeline{out: []byte("normalized")}
	objects := &fakeObjectStore{url: "http://s3/avatars/u_avatar"}
	s := newTestUserService(repo, newFakeNotifier(), pipeline, objects)
	user := registerVerified(t, repo, "a@x.com", "pass123")

	url, err := s.UpdateAvatar(context.Background(), user.ID, []byte("rawimage"))
	require.NoError(t, err)
	assert.Equal(t, "http://s3/avatars/u_avatar", url)
	assert.Equal(t, "avatars/"+user.ID+"_avatar", objects.key)
	assert.Equal(t, []byte("normalized"), objects.data)

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, url, stored.AvatarURL)
}

func TestUpdateAvatar_PipelineFailure(t *testing.T) {
	repo := newFakeUsersRepo()
	pipeline := &fakePipeline{err: errors.New("not an image")}
	s := newTestUserService(repo, newFakeNotifier(), pipeline, &fakeObjectStore{})
	user := registerVerified(t, repo, "a@x.com", "pass123")

	_, err := s.UpdateAvatar(context.Background(), user.ID, []byte("junk"))
	assert.ErrorIs(t, err, common.ErrorProcessing)
}

func TestUpdateAvatar_StorageFailure(t *testing.T) {
	repo := newFakeUsersRepo()
	pipeline := &fakePipeline{out: []byte("normalized")}
	objects := &fakeObjectStore{err: errors.New("bucket gone")}
	s := newTestUserService(repo, newFakeNotifier(), pipeline, objects)
	user := registerVerified(t, repo, "a@x.com", "pass123")

	_, err := s.UpdateAvatar(context.Background(), user.ID, []byte("rawimage"))
	assert.ErrorIs(t, err, common.ErrorProcessing)
}
