package api

import (
	"encoding/json"
	"time"
)

// HeaderDeviceID передает идентификатор устройства-писателя
const HeaderDeviceID = "X-Device-ID"

// HeaderDocumentID возвращает handle документа в ответе GET
const HeaderDocumentID = "X-Document-ID"

// MaxDocumentSize ограничивает размер снимка коллекции
const MaxDocumentSize = 8 << 20

// CreateDocumentRequest представляет идемпотентное создание документа
type CreateDocumentRequest struct {
	Key     string          `json:"key"`     // логическое имя документа, например events.json
	Content json.RawMessage `json:"content"` // начальное содержимое (используется только при создании)
}

// DocumentResponse описывает документ без содержимого
type DocumentResponse struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`         // handle документа
	Key       string    `json:"key"`        // логическое имя
	UpdatedBy string    `json:"updated_by"` // device id последнего писателя
	Created   bool      `json:"created"`    // false если документ уже существовал
}

// NotificationDocumentUpdated - тип уведомления о записи документа
const NotificationDocumentUpdated = "document_updated"

// Notification - push-сообщение сервера по websocket
type Notification struct {
	UpdatedAt time.Time `json:"updated_at"`
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	DeviceID  string    `json:"device_id"`
}
