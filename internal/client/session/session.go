// Package session holds the per-process connection state passed to the
// sync engine and the trigger scheduler instead of globals.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/iudanet/daybook/internal/crdt"
)

// ErrNotAuthenticated is returned when no usable credential can be obtained
// without user interaction.
var ErrNotAuthenticated = errors.New("not authenticated")

//go:generate moq -out tokensource_mock.go . TokenSource

// TokenSource выдает токен авторизации.
// interactive=false не должен ничего спрашивать у пользователя.
type TokenSource interface {
	Token(ctx context.Context, interactive bool) (string, error)
}

// Context - состояние сессии устройства: идентификатор, часы, онлайн-флаг и источник токенов
type Context struct {
	tokens    TokenSource
	clock     *crdt.WallClock
	logger    *slog.Logger
	deviceID  string
	onOnline  []func()
	onOffline []func()
	mu        sync.Mutex
	online    atomic.Bool
	closed    atomic.Bool
}

// New creates a session. The device starts offline until a probe or caller says otherwise.
func New(deviceID string, tokens TokenSource, clock *crdt.WallClock, logger *slog.Logger) *Context {
	return &Context{
		deviceID: deviceID,
		tokens:   tokens,
		clock:    clock,
		logger:   logger,
	}
}

// DeviceID returns the durable identifier of this device
func (s *Context) DeviceID() string {
	return s.deviceID
}

// Clock returns the record stamp clock
func (s *Context) Clock() *crdt.WallClock {
	return s.clock
}

// IsOnline reports the last known connectivity
func (s *Context) IsOnline() bool {
	return s.online.Load()
}

// SetOnline обновляет онлайн-флаг; обработчики вызываются только при смене состояния
func (s *Context) SetOnline(online bool) {
	if s.closed.Load() {
		return
	}
	if s.online.Swap(online) == online {
		return
	}

	s.logger.Info("connectivity changed", "online", online)

	s.mu.Lock()
	var callbacks []func()
	if online {
		callbacks = append(callbacks, s.onOnline...)
	} else {
		callbacks = append(callbacks, s.onOffline...)
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// OnOnline registers a callback for the offline -> online transition
func (s *Context) OnOnline(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOnline = append(s.onOnline, cb)
}

// OnOffline registers a callback for the online -> offline transition
func (s *Context) OnOffline(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOffline = append(s.onOffline, cb)
}

// Token получает токен из источника; без источника сессия не авторизована
func (s *Context) Token(ctx context.Context, interactive bool) (string, error) {
	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()

	if tokens == nil || s.closed.Load() {
		return "", ErrNotAuthenticated
	}
	return tokens.Token(ctx, interactive)
}

// Close tears the session down on logout: callbacks and token source are dropped.
func (s *Context) Close() {
	s.closed.Store(true)
	s.online.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	s.onOnline = nil
	s.onOffline = nil
}
