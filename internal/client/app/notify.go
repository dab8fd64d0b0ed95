package app

import (
	"context"
	"log/slog"

	"github.com/iudanet/daybook/internal/client/api"
)

type tokenSource interface {
	Token(ctx context.Context, interactive bool) (string, error)
}

// notifyWatcher адаптирует websocket-подписку сервера к Watcher
type notifyWatcher struct {
	client *api.Client
	tokens tokenSource
	logger *slog.Logger
}

func (w *notifyWatcher) Watch(ctx context.Context, handler func(key string)) error {
	token, err := w.tokens.Token(ctx, false)
	if err != nil {
		return err
	}
	return w.client.Subscribe(ctx, token, handler, w.logger)
}
