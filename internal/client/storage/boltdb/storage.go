package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/daybook/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketAuth        = []byte("auth")
	bucketMetadata    = []byte("metadata")
	bucketCollections = []byte("collections")

	// вложенные buckets коллекции
	bucketRecords    = []byte("records")
	bucketOplog      = []byte("oplog")
	bucketTombstones = []byte("tombstones")
	bucketMeta       = []byte("meta")
	bucketQuarantine = []byte("quarantine")
)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db  *bbolt.DB
	now func() time.Time
}

var (
	_ storage.RecordStore     = (*Storage)(nil)
	_ storage.Journal         = (*Storage)(nil)
	_ storage.MetadataStorage = (*Storage)(nil)
	_ storage.AuthStorage     = (*Storage)(nil)
)

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB; таймаут защищает от второго процесса, держащего файл
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db, now: time.Now}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAuth, bucketMetadata, bucketCollections} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// collection возвращает bucket коллекции, создавая его в write-транзакции.
// В read-only транзакции отсутствующая коллекция дает nil без ошибки.
func collection(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	if name == "" {
		return nil, storage.ErrUnknownCollection
	}

	root := tx.Bucket(bucketCollections)
	if root == nil {
		return nil, fmt.Errorf("collections bucket not found")
	}

	if !tx.Writable() {
		return root.Bucket([]byte(name)), nil
	}

	b, err := root.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection bucket: %w", err)
	}
	for _, sub := range [][]byte{bucketRecords, bucketOplog, bucketTombstones, bucketMeta, bucketQuarantine} {
		if _, err := b.CreateBucketIfNotExists(sub); err != nil {
			return nil, fmt.Errorf("failed to create %s bucket: %w", sub, err)
		}
	}
	return b, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
