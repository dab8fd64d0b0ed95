package storage

import (
	"context"

	"github.com/iudanet/daybook/internal/models"
)

// TokenStorage хранит refresh токены. Токен одноразовый: при обновлении
// старый удаляется, новый сохраняется.
type TokenStorage interface {
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken returns ErrTokenNotFound for unknown tokens
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteRefreshToken returns ErrTokenNotFound for unknown tokens
	DeleteRefreshToken(ctx context.Context, token string) error

	// DeleteUserTokens отзывает все сессии пользователя (logout)
	DeleteUserTokens(ctx context.Context, userID string) (int, error)

	// DeleteExpiredTokens удаляет токены, истекшие к моменту вызова
	DeleteExpiredTokens(ctx context.Context) (int, error)
}
