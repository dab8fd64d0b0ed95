package models

import "time"

// User представляет пользователя сервера снимков
type User struct {
	CreatedAt   time.Time  `json:"created_at"`           // время создания
	LastLogin   *time.Time `json:"last_login,omitempty"` // время последнего входа
	ID          string     `json:"id"`                   // UUID пользователя
	Username    string     `json:"username"`             // уникальный username
	AuthKeyHash string     `json:"auth_key_hash"`        // SHA256 хеш auth_key (hex)
	PublicSalt  string     `json:"public_salt"`          // base64 encoded salt (32 bytes)
}

// RefreshToken представляет refresh token пользователя
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время создания
	Token     string    `json:"token"`      // значение токена
	UserID    string    `json:"user_id"`    // ID пользователя
}

// Document - сохраненный на сервере снимок коллекции пользователя
type Document struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`         // handle документа
	UserID    string    `json:"user_id"`    // владелец
	Key       string    `json:"key"`        // логическое имя, например events.json
	UpdatedBy string    `json:"updated_by"` // device id последнего писателя
	Content   []byte    `json:"-"`
}
