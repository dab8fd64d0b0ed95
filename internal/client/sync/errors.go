package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/daybook/internal/client/remote"
	"github.com/iudanet/daybook/internal/client/session"
)

var (
	// ErrNotAuthenticated - нет пригодного токена; повтор без входа бессмысленен
	ErrNotAuthenticated = session.ErrNotAuthenticated
	// ErrNetworkUnavailable - сеть или сервер недоступны, повторится на следующем триггере
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrRemoteStore - удаленное хранилище ответило ошибкой или некорректным документом
	ErrRemoteStore = errors.New("remote store failure")
	// ErrMergeInputCorrupt - записи журнала не читаются; цикл продолжается без них
	ErrMergeInputCorrupt = errors.New("merge input corrupt")
)

// IsRetryable reports whether the next trigger may succeed without user action
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable) || errors.Is(err, ErrRemoteStore)
}

// classify приводит ошибку удаленного вызова к таксономии движка
func classify(op string, err error) error {
	switch {
	case errors.Is(err, remote.ErrUnauthorized), errors.Is(err, session.ErrNotAuthenticated):
		return fmt.Errorf("%w: %s: %w", ErrNotAuthenticated, op, err)
	case errors.Is(err, remote.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %w", ErrNetworkUnavailable, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrRemoteStore, op, err)
	}
}
