package boltdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	keyLastSyncAt     = []byte("last_sync_at")
	keyDocumentHandle = []byte("document_handle")
	keyLastError      = []byte("last_error")
	keyDeviceID       = []byte("device_id")
)

// SaveLastSyncTimestamp saves the unix ms time of the last successful cycle
func (s *Storage) SaveLastSyncTimestamp(ctx context.Context, coll string, timestamp int64) error {
	return s.putMeta(coll, keyLastSyncAt, itob(uint64(timestamp)))
}

// GetLastSyncTimestamp retrieves the time of the last successful cycle
// Returns 0 if no sync has been performed yet
func (s *Storage) GetLastSyncTimestamp(ctx context.Context, coll string) (int64, error) {
	v, err := s.getMeta(coll, keyLastSyncAt)
	if err != nil {
		return 0, fmt.Errorf("failed to get last sync timestamp: %w", err)
	}
	return int64(btoi(v)), nil
}

// SaveDocumentHandle caches the remote document handle
func (s *Storage) SaveDocumentHandle(ctx context.Context, coll, handle string) error {
	return s.putMeta(coll, keyDocumentHandle, []byte(handle))
}

// GetDocumentHandle returns the cached remote document handle or ""
func (s *Storage) GetDocumentHandle(ctx context.Context, coll string) (string, error) {
	v, err := s.getMeta(coll, keyDocumentHandle)
	if err != nil {
		return "", fmt.Errorf("failed to get document handle: %w", err)
	}
	return string(v), nil
}

// SaveLastError stores the last cycle error, "" clears it
func (s *Storage) SaveLastError(ctx context.Context, coll, message string) error {
	return s.putMeta(coll, keyLastError, []byte(message))
}

// GetLastError returns the last cycle error message
func (s *Storage) GetLastError(ctx context.Context, coll string) (string, error) {
	v, err := s.getMeta(coll, keyLastError)
	if err != nil {
		return "", fmt.Errorf("failed to get last error: %w", err)
	}
	return string(v), nil
}

// GetOrCreateDeviceID returns the device id, generating it on first call
func (s *Storage) GetOrCreateDeviceID(ctx context.Context) (string, error) {
	var deviceID string

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if v := bucket.Get(keyDeviceID); v != nil {
			deviceID = string(v)
			return nil
		}

		// Первый запуск на этом устройстве
		deviceID = uuid.New().String()
		return bucket.Put(keyDeviceID, []byte(deviceID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to get device id: %w", err)
	}

	return deviceID, nil
}

func (s *Storage) putMeta(coll string, key, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil {
			return err
		}
		return b.Bucket(bucketMeta).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *Storage) getMeta(coll string, key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil || b == nil {
			return err
		}
		if v := b.Bucket(bucketMeta).Get(key); v != nil {
			out = copyBytes(v)
		}
		return nil
	})
	return out, err
}
