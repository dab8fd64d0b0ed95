package storage

import (
	"context"

	"github.com/iudanet/daybook/internal/models"
)

// RecordStore is the materialized record collection of this device.
// All writes are committed before the call returns.
type RecordStore interface {
	// Get returns a record by id
	// Returns ErrRecordNotFound if record doesn't exist
	Get(ctx context.Context, collection, id string) (models.Record, error)

	// List returns all records sorted by id
	List(ctx context.Context, collection string) ([]models.Record, error)

	// ReplaceAll atomically replaces the whole collection
	ReplaceAll(ctx context.Context, collection string, records []models.Record) error
}
