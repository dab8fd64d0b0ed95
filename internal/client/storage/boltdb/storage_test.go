package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

const testCollection = "events"

// создаём тестовое BoltDB хранилище во временном каталоге
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	store, err := New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestNew_CreatesTopLevelBuckets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	store, err := New(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.FileExists(t, path)
	require.NoError(t, store.db.View(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAuth, bucketMetadata, bucketCollections} {
			assert.NotNil(t, tx.Bucket(name), string(name))
		}
		return nil
	}))
}

// второй процесс не должен ждать файл бесконечно
func TestNew_LockedByAnotherHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.db")
	first, err := New(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	second, err := New(context.Background(), path)
	assert.Error(t, err)
	assert.Nil(t, second)
}

func TestNew_InvalidPath(t *testing.T) {
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "db"))
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Commit(ctx, testCollection, upserts(rec("E1", 100))))
	deviceID, err := store.GetOrCreateDeviceID(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = New(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	pending, err := store.Pending(ctx, testCollection)
	require.NoError(t, err)
	assert.True(t, pending)

	snap, err := store.Load(ctx, testCollection)
	require.NoError(t, err)
	assert.Len(t, snap.Ops, 1)

	again, err := store.GetOrCreateDeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, deviceID, again)
}

func TestClose_Nil(t *testing.T) {
	s := &Storage{}
	assert.NoError(t, s.Close())
}
