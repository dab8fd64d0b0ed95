package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/daybook/internal/client/iocli"
	"github.com/iudanet/daybook/internal/client/remote"
	"github.com/iudanet/daybook/internal/client/session"
	"github.com/iudanet/daybook/internal/client/storage"
	"github.com/iudanet/daybook/internal/client/storage/boltdb"
	"github.com/iudanet/daybook/pkg/api"
)

const testPassword = "correct-horse-battery"

// fakeAPI - ручной мок сервера
type fakeAPI struct {
	refreshErr   error
	logoutErr    error
	registered   *api.RegisterRequest
	loginHash    string
	salt         string
	refreshCalls int
	loginCalls   int
	logoutCalls  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{salt: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="}
}

func (f *fakeAPI) Register(_ context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	f.registered = &req
	return &api.RegisterResponse{UserID: "user-1", Message: "ok"}, nil
}

func (f *fakeAPI) GetSalt(_ context.Context, _ string) (*api.SaltResponse, error) {
	return &api.SaltResponse{PublicSalt: f.salt}, nil
}

func (f *fakeAPI) Login(_ context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	f.loginCalls++
	f.loginHash = req.AuthKeyHash
	return &api.TokenResponse{AccessToken: "access-login", RefreshToken: "refresh-login", ExpiresIn: 900}, nil
}

func (f *fakeAPI) Refresh(_ context.Context, refreshToken string) (*api.TokenResponse, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &api.TokenResponse{AccessToken: "access-refreshed", RefreshToken: "refresh-2", ExpiresIn: 900}, nil
}

func (f *fakeAPI) Logout(_ context.Context, _ string) error {
	f.logoutCalls++
	return f.logoutErr
}

func newTestProvider(t *testing.T, fake *fakeAPI, prompter iocli.IO) (*Provider, *boltdb.Storage) {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewProvider(fake, store, prompter, logger)
	p.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return p, store
}

func saveAuth(t *testing.T, store storage.AuthStorage, expiresAt int64) {
	t.Helper()
	require.NoError(t, store.SaveAuth(context.Background(), &storage.AuthData{
		Username:     "alice",
		UserID:       "user-1",
		AccessToken:  "access-cached",
		RefreshToken: "refresh-1",
		ExpiresAt:    expiresAt,
	}))
}

func TestProvider_Token_Cached(t *testing.T) {
	fake := newFakeAPI()
	p, store := newTestProvider(t, fake, nil)
	saveAuth(t, store, p.now().Add(10*time.Minute).Unix())

	token, err := p.Token(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, "access-cached", token)
	assert.Zero(t, fake.refreshCalls)
}

func TestProvider_Token_SilentRefresh(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn time.Duration
	}{
		{name: "expired", expiresIn: -time.Minute},
		{name: "inside skew window", expiresIn: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeAPI()
			p, store := newTestProvider(t, fake, nil)
			saveAuth(t, store, p.now().Add(tt.expiresIn).Unix())

			token, err := p.Token(context.Background(), false)

			require.NoError(t, err)
			assert.Equal(t, "access-refreshed", token)
			assert.Equal(t, 1, fake.refreshCalls)

			saved, err := store.GetAuth(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "refresh-2", saved.RefreshToken)
			assert.Equal(t, p.now().Unix()+900, saved.ExpiresAt)
			assert.Equal(t, "user-1", saved.UserID)
		})
	}
}

func TestProvider_Token_NotSignedIn(t *testing.T) {
	p, _ := newTestProvider(t, newFakeAPI(), nil)

	_, err := p.Token(context.Background(), false)

	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestProvider_Token_RefreshRejected(t *testing.T) {
	fake := newFakeAPI()
	fake.refreshErr = remote.ErrUnauthorized
	p, store := newTestProvider(t, fake, nil)
	saveAuth(t, store, p.now().Add(-time.Hour).Unix())

	_, err := p.Token(context.Background(), false)

	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

// Недоступный сервер при refresh не превращается в "не авторизован"
func TestProvider_Token_RefreshUnavailable(t *testing.T) {
	fake := newFakeAPI()
	fake.refreshErr = remote.ErrUnavailable
	p, store := newTestProvider(t, fake, nil)
	saveAuth(t, store, p.now().Add(-time.Hour).Unix())

	_, err := p.Token(context.Background(), true)

	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	assert.NotErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestProvider_Token_Interactive(t *testing.T) {
	fake := newFakeAPI()
	fake.refreshErr = remote.ErrUnauthorized
	prompter := &iocli.IOMock{
		ReadPasswordFunc: func(prompt string) (string, error) { return testPassword, nil },
	}
	p, store := newTestProvider(t, fake, prompter)
	saveAuth(t, store, p.now().Add(-time.Hour).Unix())

	token, err := p.Token(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, "access-login", token)
	assert.Equal(t, 1, fake.loginCalls)
	// username берется из сохраненной сессии
	assert.Empty(t, prompter.ReadInputCalls())
	assert.Len(t, prompter.ReadPasswordCalls(), 1)
}

func TestProvider_Token_InteractiveFirstLogin(t *testing.T) {
	fake := newFakeAPI()
	prompter := &iocli.IOMock{
		ReadInputFunc:    func(prompt string) (string, error) { return "alice", nil },
		ReadPasswordFunc: func(prompt string) (string, error) { return "", errors.New("eof") },
	}
	p, _ := newTestProvider(t, fake, prompter)

	_, err := p.Token(context.Background(), true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read password")
	assert.Zero(t, fake.loginCalls)
}

func TestProvider_RegisterAndLogin(t *testing.T) {
	fake := newFakeAPI()
	p, store := newTestProvider(t, fake, nil)
	ctx := context.Background()

	userID, err := p.Register(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	require.NotNil(t, fake.registered)
	assert.Len(t, fake.registered.AuthKeyHash, 64)
	assert.NotEmpty(t, fake.registered.PublicSalt)

	data, err := p.Login(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "access-login", data.AccessToken)

	saved, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", saved.Username)
	assert.Equal(t, fake.salt, saved.PublicSalt)

	// Одинаковый пароль и соль дают одинаковый хеш
	first := fake.loginHash
	_, err = p.Login(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, first, fake.loginHash)
}

func TestProvider_Login_Validation(t *testing.T) {
	p, _ := newTestProvider(t, newFakeAPI(), nil)

	_, err := p.Login(context.Background(), "a", testPassword)
	assert.ErrorContains(t, err, "invalid username")

	_, err = p.Login(context.Background(), "alice", "short")
	assert.ErrorContains(t, err, "invalid password")
}

// Новый токен (вход или тихий refresh) сообщается подписчикам; кеш и отказ - нет
func TestProvider_OnSignIn(t *testing.T) {
	tests := []struct {
		setup      func(p *Provider, store *boltdb.Storage, fake *fakeAPI)
		name       string
		login      bool
		wantSignIn int
	}{
		{
			name: "cached token",
			setup: func(p *Provider, store *boltdb.Storage, _ *fakeAPI) {
				saveAuth(t, store, p.now().Add(10*time.Minute).Unix())
			},
		},
		{
			name: "silent refresh",
			setup: func(p *Provider, store *boltdb.Storage, _ *fakeAPI) {
				saveAuth(t, store, p.now().Add(-time.Minute).Unix())
			},
			wantSignIn: 1,
		},
		{
			name: "refresh rejected",
			setup: func(p *Provider, store *boltdb.Storage, fake *fakeAPI) {
				fake.refreshErr = remote.ErrUnauthorized
				saveAuth(t, store, p.now().Add(-time.Minute).Unix())
			},
		},
		{
			name:       "explicit login",
			setup:      func(*Provider, *boltdb.Storage, *fakeAPI) {},
			login:      true,
			wantSignIn: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeAPI()
			p, store := newTestProvider(t, fake, nil)
			tt.setup(p, store, fake)

			signIns := 0
			p.OnSignIn(func() { signIns++ })

			if tt.login {
				_, err := p.Login(context.Background(), "alice", testPassword)
				require.NoError(t, err)
			} else {
				_, _ = p.Token(context.Background(), false)
			}
			assert.Equal(t, tt.wantSignIn, signIns)
		})
	}
}

func TestProvider_Logout(t *testing.T) {
	fake := newFakeAPI()
	fake.logoutErr = remote.ErrUnavailable
	p, store := newTestProvider(t, fake, nil)
	ctx := context.Background()
	saveAuth(t, store, p.now().Add(time.Hour).Unix())

	// Ошибка сервера не мешает локальному выходу
	require.NoError(t, p.Logout(ctx))
	assert.Equal(t, 1, fake.logoutCalls)

	_, err := store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	// Повторный выход - не ошибка
	require.NoError(t, p.Logout(ctx))
	assert.Equal(t, 1, fake.logoutCalls)
}
