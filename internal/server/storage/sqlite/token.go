package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/daybook/internal/models"
	"github.com/iudanet/daybook/internal/server/storage"
)

// hashToken - в базе лежит только хеш, утечка файла не дает рабочих токенов
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SaveRefreshToken stores a new refresh token
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		hashToken(token.Token), token.UserID, token.ExpiresAt.UnixMilli(), token.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves refresh token by its value
func (s *Storage) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var expiresAt, createdAt int64
	rt := &models.RefreshToken{Token: token}

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at, created_at FROM refresh_tokens WHERE token_hash = ?`,
		hashToken(token),
	).Scan(&rt.UserID, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	rt.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	rt.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rt, nil
}

// DeleteRefreshToken deletes refresh token by its value
func (s *Storage) DeleteRefreshToken(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, hashToken(token))
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return expectOne(result, storage.ErrTokenNotFound)
}

// DeleteUserTokens deletes all refresh tokens of a user
func (s *Storage) DeleteUserTokens(ctx context.Context, userID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}
	return affected(result)
}

// DeleteExpiredTokens removes tokens that expired before now
func (s *Storage) DeleteExpiredTokens(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return affected(result)
}

func affected(result sql.Result) (int, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}
