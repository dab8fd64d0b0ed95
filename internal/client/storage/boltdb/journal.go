package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"

	"github.com/iudanet/daybook/internal/client/storage"
	"github.com/iudanet/daybook/internal/crdt"
	"github.com/iudanet/daybook/internal/models"
)

var keyPending = []byte("pending")

// Commit applies local operations and appends them to the journal in one transaction
func (s *Storage) Commit(ctx context.Context, coll string, ops []models.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil {
			return err
		}
		records := b.Bucket(bucketRecords)
		oplog := b.Bucket(bucketOplog)
		tombstones := b.Bucket(bucketTombstones)

		for _, op := range ops {
			if err := op.Validate(); err != nil {
				return fmt.Errorf("invalid operation: %w", err)
			}

			seq, err := oplog.NextSequence()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence: %w", err)
			}
			op.Seq = seq

			data, err := json.Marshal(op)
			if err != nil {
				return fmt.Errorf("failed to marshal operation: %w", err)
			}
			if err := oplog.Put(itob(seq), data); err != nil {
				return fmt.Errorf("failed to append operation: %w", err)
			}

			switch op.Kind {
			case models.OpUpsert:
				if err := putRecord(records, op.Record); err != nil {
					return err
				}
			case models.OpDelete:
				if err := records.Delete([]byte(op.ID)); err != nil {
					return fmt.Errorf("failed to delete record %s: %w", op.ID, err)
				}
				tomb := models.Tombstone{ID: op.ID, DeletedAtMs: op.TimestampMs, Device: op.Device, Seq: seq}
				tombData, err := json.Marshal(tomb)
				if err != nil {
					return fmt.Errorf("failed to marshal tombstone: %w", err)
				}
				if err := tombstones.Put([]byte(op.ID), tombData); err != nil {
					return fmt.Errorf("failed to save tombstone: %w", err)
				}
			}
		}

		return b.Bucket(bucketMeta).Put(keyPending, []byte{1})
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// Load reads the journal. Undecodable entries are reported in Corrupt and skipped.
func (s *Storage) Load(ctx context.Context, coll string) (*storage.JournalSnapshot, error) {
	snap := &storage.JournalSnapshot{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil || b == nil {
			return err
		}

		snap.Pending = isPending(b)

		if err := b.Bucket(bucketOplog).ForEach(func(k, v []byte) error {
			seq := btoi(k)
			if seq > snap.UpToSeq {
				snap.UpToSeq = seq
			}
			op, err := decodeOperation(v)
			if err != nil {
				snap.Corrupt = append(snap.Corrupt, storage.CorruptEntry{
					Bucket: string(bucketOplog), Key: strconv.FormatUint(seq, 10), Err: err,
				})
				return nil
			}
			op.Seq = seq
			snap.Ops = append(snap.Ops, op)
			return nil
		}); err != nil {
			return err
		}

		return b.Bucket(bucketTombstones).ForEach(func(k, v []byte) error {
			tomb, err := decodeTombstone(k, v)
			if err != nil {
				snap.Corrupt = append(snap.Corrupt, storage.CorruptEntry{
					Bucket: string(bucketTombstones), Key: string(k), Err: err,
				})
				return nil
			}
			if tomb.Seq > snap.UpToSeq {
				snap.UpToSeq = tomb.Seq
			}
			snap.Tombstones = append(snap.Tombstones, tomb)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}

	return snap, nil
}

// Adopt drains the confirmed part of the journal and installs the merge result
func (s *Storage) Adopt(ctx context.Context, coll string, merged []models.Record, upToSeq uint64) (*storage.AdoptResult, error) {
	res := &storage.AdoptResult{}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil {
			return err
		}
		oplog := b.Bucket(bucketOplog)
		tombstones := b.Bucket(bucketTombstones)
		quarantine := b.Bucket(bucketQuarantine)

		var remainingOps []models.Operation
		var drop [][]byte
		if err := oplog.ForEach(func(k, v []byte) error {
			seq := btoi(k)
			op, decodeErr := decodeOperation(v)
			if seq > upToSeq {
				// добавлено во время цикла: остается в журнале
				if decodeErr == nil {
					op.Seq = seq
					remainingOps = append(remainingOps, op)
				}
				return nil
			}
			if decodeErr != nil {
				if err := quarantine.Put([]byte("oplog:"+strconv.FormatUint(seq, 10)), copyBytes(v)); err != nil {
					return err
				}
				res.Quarantined++
			}
			drop = append(drop, copyBytes(k))
			return nil
		}); err != nil {
			return err
		}
		for _, k := range drop {
			if err := oplog.Delete(k); err != nil {
				return fmt.Errorf("failed to drain oplog: %w", err)
			}
		}

		var remainingTombs []models.Tombstone
		drop = drop[:0]
		if err := tombstones.ForEach(func(k, v []byte) error {
			tomb, decodeErr := decodeTombstone(k, v)
			if decodeErr != nil {
				if err := quarantine.Put([]byte("tombstones:"+string(k)), copyBytes(v)); err != nil {
					return err
				}
				res.Quarantined++
				drop = append(drop, copyBytes(k))
				return nil
			}
			if tomb.Seq > upToSeq {
				remainingTombs = append(remainingTombs, tomb)
				return nil
			}
			drop = append(drop, copyBytes(k))
			return nil
		}); err != nil {
			return err
		}
		for _, k := range drop {
			if err := tombstones.Delete(k); err != nil {
				return fmt.Errorf("failed to drain tombstones: %w", err)
			}
		}

		// операции, пришедшие во время цикла, остаются видимыми локально
		res.Records = crdt.Merge(merged, remainingOps, remainingTombs)
		res.Remaining = len(remainingOps)
		res.PendingRemains = len(remainingOps) > 0 || len(remainingTombs) > 0

		if err := replaceRecords(b, res.Records); err != nil {
			return err
		}

		meta := b.Bucket(bucketMeta)
		pending := []byte{0}
		if res.PendingRemains {
			pending = []byte{1}
		}
		if err := meta.Put(keyPending, pending); err != nil {
			return fmt.Errorf("failed to update pending flag: %w", err)
		}
		return meta.Put(keyLastSyncAt, itob(uint64(s.now().UnixMilli())))
	})
	if err != nil {
		return nil, fmt.Errorf("transaction failed: %w", err)
	}

	return res, nil
}

// Pending returns the durable pending flag
func (s *Storage) Pending(ctx context.Context, coll string) (bool, error) {
	var pending bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil || b == nil {
			return err
		}
		pending = isPending(b)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read pending flag: %w", err)
	}
	return pending, nil
}

// QuarantineCount returns the number of quarantined journal entries
func (s *Storage) QuarantineCount(ctx context.Context, coll string) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := collection(tx, coll)
		if err != nil || b == nil {
			return err
		}
		n = b.Bucket(bucketQuarantine).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count quarantine: %w", err)
	}
	return n, nil
}

func isPending(b *bbolt.Bucket) bool {
	v := b.Bucket(bucketMeta).Get(keyPending)
	return len(v) == 1 && v[0] == 1
}

func decodeOperation(v []byte) (models.Operation, error) {
	var op models.Operation
	if err := json.Unmarshal(v, &op); err != nil {
		return models.Operation{}, fmt.Errorf("failed to unmarshal operation: %w", err)
	}
	if err := op.Validate(); err != nil {
		return models.Operation{}, err
	}
	return op, nil
}

func decodeTombstone(k, v []byte) (models.Tombstone, error) {
	var tomb models.Tombstone
	if err := json.Unmarshal(v, &tomb); err != nil {
		return models.Tombstone{}, fmt.Errorf("failed to unmarshal tombstone: %w", err)
	}
	if tomb.ID != string(k) {
		return models.Tombstone{}, fmt.Errorf("tombstone key %q carries id %q", k, tomb.ID)
	}
	return tomb, nil
}

// copyBytes копирует значение: память bolt валидна только внутри транзакции
func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
