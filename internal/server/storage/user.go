package storage

import (
	"context"
	"time"

	"github.com/iudanet/daybook/internal/models"
)

// UserStorage хранит учетные записи
type UserStorage interface {
	// CreateUser returns ErrUserAlreadyExists if the username is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername returns ErrUserNotFound if there is no such user
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID returns ErrUserNotFound if there is no such user
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// DeleteUser удаляет пользователя вместе с токенами и документами
	DeleteUser(ctx context.Context, userID string) error

	UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error
}
