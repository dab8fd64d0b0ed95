package storage

import "context"

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastSyncTimestamp saves the unix ms time of the last successful cycle
	SaveLastSyncTimestamp(ctx context.Context, collection string, timestamp int64) error

	// GetLastSyncTimestamp retrieves the time of the last successful cycle
	// Returns 0 if no sync has been performed yet
	GetLastSyncTimestamp(ctx context.Context, collection string) (int64, error)

	// SaveDocumentHandle caches the remote document handle
	SaveDocumentHandle(ctx context.Context, collection, handle string) error

	// GetDocumentHandle returns the cached handle or "" if none
	GetDocumentHandle(ctx context.Context, collection string) (string, error)

	// SaveLastError stores the last cycle error message, "" clears it
	SaveLastError(ctx context.Context, collection, message string) error

	// GetLastError returns the last cycle error message
	GetLastError(ctx context.Context, collection string) (string, error)

	// GetOrCreateDeviceID returns the durable identifier of this device
	GetOrCreateDeviceID(ctx context.Context) (string, error)
}
