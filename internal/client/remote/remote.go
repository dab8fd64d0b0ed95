// Package remote defines the contract of the shared snapshot store.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the document does not exist yet
	ErrNotFound = errors.New("document not found")
	// ErrUnauthorized is returned when the credential was rejected
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable is returned when the store could not be reached
	ErrUnavailable = errors.New("remote store unavailable")
)

//go:generate moq -out store_mock.go . Store

// Store - хранилище целых документов без слияния и без compare-and-swap.
// Последняя успешная запись побеждает.
type Store interface {
	// Get возвращает документ целиком или ErrNotFound
	Get(ctx context.Context, token, key string) ([]byte, error)
	// Put перезаписывает документ целиком
	Put(ctx context.Context, token, key string, data []byte) error
	// Create создает документ; если он уже есть, возвращает handle существующего
	Create(ctx context.Context, token, key string, initial []byte) (string, error)
}
