package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRecordWithoutID is returned when a record has no id field
	ErrRecordWithoutID = errors.New("record has no id")
	// ErrDuplicateRecordID is returned when a collection contains the same id twice
	ErrDuplicateRecordID = errors.New("duplicate record id")
	// ErrUnsupportedSchema is returned for snapshots written by a newer client
	ErrUnsupportedSchema = errors.New("unsupported snapshot schema version")
)

// OpKind тип операции в журнале
type OpKind string

const (
	OpUpsert OpKind = "upsert"
	OpDelete OpKind = "delete"
)

// Operation представляет одно намерение изменения, записанное в журнал (oplog).
// Seq - порядковый номер добавления в журнал, используется для стабильной сортировки.
type Operation struct {
	Record      Record `json:"record,omitempty"`
	Kind        OpKind `json:"kind"`
	ID          string `json:"id"`
	Device      string `json:"device"`
	Seq         uint64 `json:"seq"`
	TimestampMs int64  `json:"timestampMs"`
}

// NewUpsert creates an upsert operation for a stamped record.
func NewUpsert(record Record, tsMs int64, device string) Operation {
	return Operation{
		Kind:        OpUpsert,
		ID:          record.ID(),
		Record:      record,
		TimestampMs: tsMs,
		Device:      device,
	}
}

// NewDelete creates a delete operation.
func NewDelete(id string, tsMs int64, device string) Operation {
	return Operation{
		Kind:        OpDelete,
		ID:          id,
		TimestampMs: tsMs,
		Device:      device,
	}
}

// Validate checks that an operation decoded from storage is usable by merge.
func (o Operation) Validate() error {
	if o.ID == "" {
		return ErrRecordWithoutID
	}
	switch o.Kind {
	case OpDelete:
		return nil
	case OpUpsert:
		if o.Record == nil {
			return fmt.Errorf("upsert %s has no record", o.ID)
		}
		if o.Record.ID() != o.ID {
			return fmt.Errorf("upsert %s carries record %q", o.ID, o.Record.ID())
		}
		return nil
	default:
		return fmt.Errorf("unknown operation kind %q", o.Kind)
	}
}

// Tombstone - маркер удаления, запрещающий воскрешение id при слиянии
type Tombstone struct {
	ID          string `json:"id"`
	Device      string `json:"device"`
	Seq         uint64 `json:"seq"`
	DeletedAtMs int64  `json:"deletedAtMs"`
}

// SchemaVersion - версия формата снимка, которую пишет этот клиент
const SchemaVersion = 1

// Snapshot - документ целой коллекции в удаленном хранилище
type Snapshot struct {
	UpdatedAtIso  string   `json:"updatedAtIso"`
	Records       []Record `json:"records"`
	SchemaVersion int      `json:"schemaVersion"`
}

// NewSnapshot builds a snapshot of records stamped with the given time.
func NewSnapshot(records []Record, now time.Time) Snapshot {
	if records == nil {
		records = []Record{}
	}
	return Snapshot{
		SchemaVersion: SchemaVersion,
		UpdatedAtIso:  now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Records:       records,
	}
}

// snapshotWire accepts both the current and the legacy {version, updatedAt, events} shape.
type snapshotWire struct {
	SchemaVersion *int     `json:"schemaVersion"`
	Version       *int     `json:"version"`
	UpdatedAtIso  string   `json:"updatedAtIso"`
	UpdatedAt     string   `json:"updatedAt"`
	Records       []Record `json:"records"`
	Events        []Record `json:"events"`
}

// DecodeSnapshot parses a remote document. Empty input is an empty snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) == 0 {
		return Snapshot{SchemaVersion: SchemaVersion, Records: []Record{}}, nil
	}

	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	s := Snapshot{SchemaVersion: SchemaVersion, UpdatedAtIso: w.UpdatedAtIso, Records: w.Records}
	switch {
	case w.SchemaVersion != nil:
		s.SchemaVersion = *w.SchemaVersion
	case w.Version != nil:
		s.SchemaVersion = *w.Version
	}
	if s.SchemaVersion > SchemaVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedSchema, s.SchemaVersion)
	}
	if s.UpdatedAtIso == "" {
		s.UpdatedAtIso = w.UpdatedAt
	}
	if s.Records == nil {
		s.Records = w.Events
	}
	if s.Records == nil {
		s.Records = []Record{}
	}

	if _, err := IndexByID(s.Records); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot records: %w", err)
	}

	return s, nil
}

// Encode serialises the snapshot in the current wire format.
func (s Snapshot) Encode() ([]byte, error) {
	if s.Records == nil {
		s.Records = []Record{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}
