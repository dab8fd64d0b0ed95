// Package notify fans out document change notifications to the websocket
// connections of the same user.
package notify

import (
	"log/slog"
	"sync"

	"github.com/iudanet/daybook/pkg/api"
)

// subscriberBuffer - сколько уведомлений может ждать медленный подписчик
const subscriberBuffer = 16

// Subscriber - одно подключение устройства
type Subscriber struct {
	C        <-chan api.Notification
	ch       chan api.Notification
	userID   string
	deviceID string
}

// Hub хранит подписчиков по пользователю
type Hub struct {
	logger *slog.Logger
	subs   map[string]map[*Subscriber]struct{}
	mu     sync.RWMutex
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe регистрирует устройство пользователя; вызывающий обязан вызвать Unsubscribe
func (h *Hub) Subscribe(userID, deviceID string) *Subscriber {
	ch := make(chan api.Notification, subscriberBuffer)
	sub := &Subscriber{C: ch, ch: ch, userID: userID, deviceID: deviceID}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscriber]struct{})
	}
	h.subs[userID][sub] = struct{}{}

	h.logger.Debug("subscriber added", "user_id", userID, "device_id", deviceID)
	return sub
}

// Unsubscribe удаляет подписчика и закрывает его канал
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[sub.userID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.userID)
	}
	close(sub.ch)
}

// Publish отправляет уведомление всем устройствам пользователя, кроме писателя.
// Переполненный подписчик пропускает уведомление: клиент все равно
// синхронизируется по периодическому триггеру.
func (h *Hub) Publish(userID string, n api.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[userID] {
		if n.DeviceID != "" && sub.deviceID == n.DeviceID {
			continue
		}
		select {
		case sub.ch <- n:
			delivered++
		default:
			h.logger.Warn("subscriber buffer full, notification dropped",
				"user_id", userID, "device_id", sub.deviceID, "key", n.Key)
		}
	}
	return delivered
}

// Count returns the number of connected devices of a user
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Close отключает всех подписчиков; открытые websocket соединения завершаются
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(h.subs, userID)
	}
}
