package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/daybook/internal/client/storage"
	"github.com/iudanet/daybook/internal/models"
)

// Get returns a record from the materialized collection
func (s *Storage) Get(ctx context.Context, coll, id string) (models.Record, error) {
	var rec models.Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil {
			return err
		}
		if b == nil {
			return storage.ErrRecordNotFound
		}

		data := b.Bucket(bucketRecords).Get([]byte(id))
		if data == nil {
			return storage.ErrRecordNotFound
		}

		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal record %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// List returns all records sorted by id (bolt keys are ordered)
func (s *Storage) List(ctx context.Context, coll string) ([]models.Record, error) {
	records := []models.Record{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil || b == nil {
			return err
		}
		var listErr error
		records, listErr = readRecords(b.Bucket(bucketRecords))
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return records, nil
}

// ReplaceAll atomically replaces the materialized collection
func (s *Storage) ReplaceAll(ctx context.Context, coll string, records []models.Record) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil {
			return err
		}
		return replaceRecords(b, records)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

func readRecords(b *bbolt.Bucket) ([]models.Record, error) {
	records := []models.Record{}
	err := b.ForEach(func(k, v []byte) error {
		var rec models.Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal record %s: %w", k, err)
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// replaceRecords пересоздает bucket записей целиком внутри транзакции
func replaceRecords(coll *bbolt.Bucket, records []models.Record) error {
	if err := coll.DeleteBucket(bucketRecords); err != nil {
		return fmt.Errorf("failed to drop records bucket: %w", err)
	}
	b, err := coll.CreateBucket(bucketRecords)
	if err != nil {
		return fmt.Errorf("failed to create records bucket: %w", err)
	}

	for _, rec := range records {
		if err := putRecord(b, rec); err != nil {
			return err
		}
	}
	return nil
}

func putRecord(b *bbolt.Bucket, rec models.Record) error {
	id := rec.ID()
	if id == "" {
		return models.ErrRecordWithoutID
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", id, err)
	}
	if err := b.Put([]byte(id), data); err != nil {
		return fmt.Errorf("failed to save record %s: %w", id, err)
	}
	return nil
}
