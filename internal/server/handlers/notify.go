package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/daybook/internal/server/notify"
)

const (
	// pongWait - сколько ждать pong от клиента
	pongWait = 60 * time.Second
	// pingPeriod должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// NotifyHandler отдает устройствам поток уведомлений о записях документов
type NotifyHandler struct {
	logger   *slog.Logger
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

// NewNotifyHandler создает handler websocket уведомлений
func NewNotifyHandler(logger *slog.Logger, hub *notify.Hub) *NotifyHandler {
	return &NotifyHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Клиенты - CLI и демон, а не браузер; аутентификация по Bearer токену
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe обрабатывает GET /api/v1/notify (websocket upgrade)
func (h *NotifyHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}
	deviceID := DeviceID(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже отправил ответ с ошибкой
		h.logger.Warn("websocket upgrade failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.hub.Subscribe(userID, deviceID)
	defer h.hub.Unsubscribe(sub)

	h.logger.Info("notification stream opened",
		slog.String("user_id", userID), slog.String("device_id", deviceID))

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				h.logger.Debug("notification write failed", slog.String("device_id", deviceID), slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			h.logger.Info("notification stream closed",
				slog.String("user_id", userID), slog.String("device_id", deviceID))
			return
		case <-r.Context().Done():
			return
		}
	}
}

// readPump читает только управляющие кадры; входящие сообщения игнорируются
func (h *NotifyHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", slog.Any("error", err))
			}
			return
		}
	}
}
