// Package auth is the identity provider of the client: it signs the user in,
// keeps the token pair in local storage and hands out access tokens to the
// sync engine.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/daybook/internal/client/iocli"
	"github.com/iudanet/daybook/internal/client/remote"
	"github.com/iudanet/daybook/internal/client/session"
	"github.com/iudanet/daybook/internal/client/storage"
	"github.com/iudanet/daybook/internal/crypto"
	"github.com/iudanet/daybook/internal/validation"
	"github.com/iudanet/daybook/pkg/api"
)

// ExpirySkew - токен с меньшим остатком жизни считается истекшим
const ExpirySkew = 60 * time.Second

// API - вызовы сервера, нужные провайдеру
type API interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	GetSalt(ctx context.Context, username string) (*api.SaltResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

// Provider выдает access token: из кеша, через тихий refresh или через
// интерактивный вход. Реализует session.TokenSource.
type Provider struct {
	api    API
	store  storage.AuthStorage
	io     iocli.IO
	logger *slog.Logger
	now    func() time.Time
	hooks  []func()
	mu     sync.Mutex
}

var _ session.TokenSource = (*Provider)(nil)

// NewProvider создает провайдер. io может быть nil: тогда интерактивный вход недоступен.
func NewProvider(apiClient API, store storage.AuthStorage, io iocli.IO, logger *slog.Logger) *Provider {
	return &Provider{
		api:    apiClient,
		store:  store,
		io:     io,
		logger: logger,
		now:    time.Now,
	}
}

// OnSignIn регистрирует обработчик получения нового токена: вход или тихий refresh.
// Обработчик вызывается под блокировкой провайдера и не должен ждать или обращаться к нему.
func (p *Provider) OnSignIn(hook func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, hook)
}

func (p *Provider) signedIn() {
	for _, hook := range p.hooks {
		hook()
	}
}

// Token возвращает действующий access token.
// С interactive=false пользователю ничего не показывается: при отсутствии
// входа или отклоненном refresh возвращается session.ErrNotAuthenticated.
func (p *Provider) Token(ctx context.Context, interactive bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := p.store.GetAuth(ctx)
	switch {
	case errors.Is(err, storage.ErrAuthNotFound):
		return p.prompt(ctx, interactive, "")
	case err != nil:
		return "", fmt.Errorf("failed to read auth data: %w", err)
	}

	// 1. Кешированный токен еще поживет
	if data.FreshAt(p.now(), ExpirySkew) {
		return data.AccessToken, nil
	}

	// 2. Тихий refresh
	if data.RefreshToken != "" {
		token, err := p.refresh(ctx, data)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, remote.ErrUnauthorized) {
			// Сервер недоступен - это не повод просить пароль
			return "", err
		}
		p.logger.Info("refresh token rejected", "username", data.Username)
	}

	// 3. Интерактивный вход
	return p.prompt(ctx, interactive, data.Username)
}

func (p *Provider) refresh(ctx context.Context, data *storage.AuthData) (string, error) {
	resp, err := p.api.Refresh(ctx, data.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	updated := *data
	updated.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		updated.RefreshToken = resp.RefreshToken
	}
	updated.ExpiresAt = p.now().Unix() + resp.ExpiresIn

	if err := p.store.SaveAuth(ctx, &updated); err != nil {
		return "", fmt.Errorf("failed to save refreshed tokens: %w", err)
	}
	p.logger.Debug("access token refreshed", "username", data.Username)
	p.signedIn()
	return updated.AccessToken, nil
}

func (p *Provider) prompt(ctx context.Context, interactive bool, username string) (string, error) {
	if !interactive || p.io == nil {
		return "", session.ErrNotAuthenticated
	}

	if username == "" {
		u, err := p.io.ReadInput("Username: ")
		if err != nil {
			return "", fmt.Errorf("failed to read username: %w", err)
		}
		username = u
	}
	password, err := p.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	data, err := p.login(ctx, username, password)
	if err != nil {
		return "", err
	}
	return data.AccessToken, nil
}

// Login выполняет вход и сохраняет пару токенов
func (p *Provider) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.login(ctx, username, password)
}

func (p *Provider) login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	// 1. Получаем public_salt с сервера
	saltResp, err := p.api.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}

	// 2. Деривируем и хешируем auth_key
	authKeyHash, err := crypto.DeriveAuthKeyHash(password, username, saltResp.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth key: %w", err)
	}

	// 3. Отправляем запрос на логин
	resp, err := p.api.Login(ctx, api.LoginRequest{Username: username, AuthKeyHash: authKeyHash})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	data := &storage.AuthData{
		Username:     username,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		PublicSalt:   saltResp.PublicSalt,
		ExpiresAt:    p.now().Unix() + resp.ExpiresIn,
	}
	// UserID известен только после регистрации на этом устройстве
	if prev, err := p.store.GetAuth(ctx); err == nil && prev.Username == username {
		data.UserID = prev.UserID
	}

	if err := p.store.SaveAuth(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	p.logger.Info("signed in", "username", username)
	p.signedIn()
	return data, nil
}

// Register регистрирует пользователя. Вход выполняется отдельно.
func (p *Provider) Register(ctx context.Context, username, password string) (string, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return "", fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("invalid password: %w", err)
	}

	publicSalt, err := crypto.GenerateSaltBase64()
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	authKeyHash, err := crypto.DeriveAuthKeyHash(password, username, publicSalt)
	if err != nil {
		return "", fmt.Errorf("failed to derive auth key: %w", err)
	}

	resp, err := p.api.Register(ctx, api.RegisterRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
		PublicSalt:  publicSalt,
	})
	if err != nil {
		return "", fmt.Errorf("registration failed: %w", err)
	}

	p.logger.Info("registered", "username", username, "user_id", resp.UserID)
	return resp.UserID, nil
}

// Logout удаляет локальные токены и уведомляет сервер (best effort)
func (p *Provider) Logout(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := p.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read auth data: %w", err)
	}

	if err := p.api.Logout(ctx, data.AccessToken); err != nil {
		// Не прерываем процесс, если сервер недоступен
		p.logger.Warn("failed to logout on server", "error", err)
	}

	// Всегда удаляем локальные данные
	if err := p.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}
	return nil
}

// Current возвращает сохраненные данные входа или storage.ErrAuthNotFound
func (p *Provider) Current(ctx context.Context) (*storage.AuthData, error) {
	return p.store.GetAuth(ctx)
}
