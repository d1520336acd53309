package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/testutil"
)

// mockUserStore Mock UserStore
type mockUserStore struct {
	users  map[string]*model.User
	tokens map[string]*model.AuthToken
	now    func() time.Time
}

func newMockUserStore(now func() time.Time) *mockUserStore {
	return &mockUserStore{
		users:  make(map[string]*model.User),
		tokens: make(map[string]*model.AuthToken),
		now:    now,
	}
}

func (m *mockUserStore) CreateUser(ctx context.Context, user *model.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, userID, hash string) error {
	u, ok := m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserStore) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *mockUserStore) CreateToken(ctx context.Context, token *model.AuthToken) error {
	m.tokens[token.ID] = token
	return nil
}

func (m *mockUserStore) GetTokenByValue(ctx context.Context, value string) (*model.AuthToken, error) {
	for _, tk := range m.tokens {
		if tk.Token == value && !tk.IsRevoked && tk.ExpiresAt.After(m.now()) {
			return tk, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserStore) RevokeToken(ctx context.Context, tokenID string) error {
	if tk, ok := m.tokens[tokenID]; ok {
		tk.IsRevoked = true
	}
	return nil
}

func (m *mockUserStore) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	var n int64
	for id, tk := range m.tokens {
		if tk.IsRevoked || !tk.ExpiresAt.After(m.now()) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func setup(t *testing.T) (*Service, *mockUserStore, *testClock) {
	t.Helper()
	clk := &testClock{t: time.Now()}
	store := newMockUserStore(clk.now)
	svc, err := NewService(store, config.AuthConfig{JWTSecret: "test-secret", SessionTTL: 1})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	svc.now = clk.now
	if _, err := svc.CreateUser(context.Background(), "alice", "wonderland"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return svc, store, clk
}

func TestLoginAndValidate(t *testing.T) {
	assert := testutil.NewAssertHelper(t)
	svc, _, _ := setup(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wonderland"})
	assert.NoError(err)
	assert.NotEmpty(sess.Token)
	assert.Equal("alice", sess.User.Username)

	user, err := svc.ValidateToken(ctx, sess.Token)
	assert.NoError(err)
	assert.Equal(sess.User.ID, user.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "looking-glass"},
		{"unknown user", "bob", "wonderland"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := setup(t)
			_, err := svc.Login(context.Background(), &LoginRequest{Username: tt.username, Password: tt.password})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	svc, store, clk := setup(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wonderland"})
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewService(store, config.AuthConfig{JWTSecret: "another-secret", SessionTTL: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.ValidateToken(ctx, sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret: error = %v", err)
	}

	if _, err := svc.ValidateToken(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token: error = %v", err)
	}
	if _, err := svc.ValidateToken(ctx, "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: error = %v", err)
	}

	clk.t = clk.t.Add(2 * time.Hour)
	if _, err := svc.ValidateToken(ctx, sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: error = %v", err)
	}
}

func TestLogoutRevokes(t *testing.T) {
	assert := testutil.NewAssertHelper(t)
	svc, _, _ := setup(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wonderland"})
	assert.NoError(err)
	assert.NoError(svc.Logout(ctx, sess.Token))

	_, err = svc.ValidateToken(ctx, sess.Token)
	assert.ErrorIs(err, ErrInvalidToken)
	assert.ErrorIs(svc.Logout(ctx, sess.Token), ErrInvalidToken)

	purged, err := svc.PurgeTokens(ctx)
	assert.NoError(err)
	assert.Equal(int64(1), purged)
}

func TestChangePassword(t *testing.T) {
	assert := testutil.NewAssertHelper(t)
	svc, _, _ := setup(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wonderland"})
	assert.NoError(err)
	assert.NoError(svc.ChangePassword(ctx, sess.User.ID, "rabbit-hole"))

	_, err = svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wonderland"})
	assert.ErrorIs(err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &LoginRequest{Username: "alice", Password: "rabbit-hole"})
	assert.NoError(err)
}

func TestCreateUser_Duplicate(t *testing.T) {
	assert := testutil.NewAssertHelper(t)
	svc, _, _ := setup(t)

	_, err := svc.CreateUser(context.Background(), "alice", "x")
	assert.ErrorIs(err, ErrUserExists)

	n, err := svc.CountUsers(context.Background())
	assert.NoError(err)
	assert.Equal(int64(1), n)
}

func TestNewService_RandomSecret(t *testing.T) {
	store := newMockUserStore(time.Now)
	a, err := NewService(store, config.AuthConfig{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewService(store, config.AuthConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if string(a.secret) == string(b.secret) {
		t.Error("random secrets should differ")
	}
	if a.ttl != 7*24*time.Hour {
		t.Errorf("default ttl = %v", a.ttl)
	}
}
