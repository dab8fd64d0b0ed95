package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/daybook/internal/client/remote"
	"github.com/iudanet/daybook/pkg/api"
)

const (
	// pongWait - сколько ждать pong от сервера
	pongWait = 60 * time.Second
	// pingPeriod должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// ChangeHandler is called with the document key of every foreign write
type ChangeHandler func(key string)

// Subscribe открывает websocket к серверу и вызывает handler на каждое
// уведомление о записи документа другим устройством.
// Блокируется до отмены ctx или разрыва соединения.
func (c *Client) Subscribe(ctx context.Context, token string, handler ChangeHandler, logger *slog.Logger) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	if c.deviceID != "" {
		header.Set(api.HeaderDeviceID, c.deviceID)
	}

	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	conn, resp, err := dialer.DialContext(ctx, websocketURL(c.baseURL)+"/api/v1/notify", header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("subscribe: %w", remote.ErrUnauthorized)
		}
		return fmt.Errorf("%w: subscribe: %w", remote.ErrUnavailable, err)
	}

	done := make(chan struct{})
	defer close(done)

	// Закрываем соединение при отмене контекста, чтобы разблокировать ReadMessage
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				_ = conn.Close()
				return
			case <-done:
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("%w: notification stream: %w", remote.ErrUnavailable, err)
		}
		// Сервер уже продлевает дедлайн через pong, но любое сообщение тоже признак жизни
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var n api.Notification
		if err := json.Unmarshal(message, &n); err != nil {
			logger.Warn("skipping malformed notification", "error", err)
			continue
		}
		if n.Type != api.NotificationDocumentUpdated {
			continue
		}
		// Собственные записи не интересны
		if n.DeviceID != "" && n.DeviceID == c.deviceID {
			continue
		}
		logger.Debug("remote change notification", "key", n.Key, "device", n.DeviceID)
		handler(n.Key)
	}
}

// IsSubscriptionClosed reports whether err only signals a cancelled subscription
func IsSubscriptionClosed(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func websocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}
