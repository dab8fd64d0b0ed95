package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/daybook/internal/client/storage"
)

// сессия одна на устройство
var keyCurrentAuth = []byte("current")

// SaveAuth replaces the stored session
func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal auth data: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAuth).Put(keyCurrentAuth, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}
	return nil
}

// GetAuth returns the stored session or storage.ErrAuthNotFound
func (s *Storage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketAuth).Get(keyCurrentAuth); v != nil {
			raw = copyBytes(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read auth data: %w", err)
	}
	if raw == nil {
		return nil, storage.ErrAuthNotFound
	}

	var auth storage.AuthData
	if err := json.Unmarshal(raw, &auth); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auth data: %w", err)
	}
	return &auth, nil
}

// DeleteAuth forgets the session; storage.ErrAuthNotFound when there is none
func (s *Storage) DeleteAuth(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAuth)
		if b.Get(keyCurrentAuth) == nil {
			return storage.ErrAuthNotFound
		}
		return b.Delete(keyCurrentAuth)
	})
}
