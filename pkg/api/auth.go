package api

// Аутентификация: пароль не покидает устройство, сервер видит только
// SHA256 от ключа, полученного клиентом через Argon2id.

// RegisterRequest - POST /api/v1/auth/register
type RegisterRequest struct {
	Username    string `json:"username"`
	AuthKeyHash string `json:"auth_key_hash"` // hex
	PublicSalt  string `json:"public_salt"`   // base64, 32 bytes
}

// RegisterResponse carries the id assigned to the new account
type RegisterResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// SaltResponse - GET /api/v1/auth/salt/{username}
type SaltResponse struct {
	PublicSalt string `json:"public_salt"`
}

// LoginRequest - POST /api/v1/auth/login
type LoginRequest struct {
	Username    string `json:"username"`
	AuthKeyHash string `json:"auth_key_hash"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// RefreshRequest is the body form of a refresh call.
// The token may also come as "Authorization: Bearer <refresh>".
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ErrorResponse - тело любого ответа с кодом 4xx/5xx
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
