package models

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Служебные поля записи
const (
	FieldID           = "id"
	FieldUpdatedAtMs  = "updatedAtMs"
	FieldOriginDevice = "originDevice"
)

// Record представляет одну доменную сущность (встреча, расход, клиент).
// Поле id неизменно на протяжении жизни записи.
type Record map[string]any

// NewRecordID генерирует идентификатор вида "E" + 12 hex + base36(unix ms).
func NewRecordID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand не возвращает ошибок на поддерживаемых платформах
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return "E" + hex.EncodeToString(buf) + strconv.FormatInt(time.Now().UnixMilli(), 36)
}

// ID returns the record id or an empty string when absent.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// UpdatedAtMs returns the record stamp normalised to milliseconds.
// Decoded JSON numbers arrive as float64 or json.Number.
func (r Record) UpdatedAtMs() int64 {
	switch v := r[FieldUpdatedAtMs].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// OriginDevice returns the device that produced this value.
func (r Record) OriginDevice() string {
	d, _ := r[FieldOriginDevice].(string)
	return d
}

// Clone возвращает поверхностную копию записи (значения доменных полей не копируются вглубь)
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stamp возвращает копию записи с проставленными updatedAtMs и originDevice
func (r Record) Stamp(tsMs int64, device string) Record {
	out := r.Clone()
	out[FieldUpdatedAtMs] = tsMs
	out[FieldOriginDevice] = device
	return out
}

// Content returns a copy without the bookkeeping fields (updatedAtMs, originDevice).
func (r Record) Content() Record {
	out := r.Clone()
	delete(out, FieldUpdatedAtMs)
	delete(out, FieldOriginDevice)
	return out
}

// Canonical encodes the record with sorted keys and normalised stamp.
func (r Record) Canonical() ([]byte, error) {
	norm := r.Clone()
	if _, ok := norm[FieldUpdatedAtMs]; ok {
		norm[FieldUpdatedAtMs] = r.UpdatedAtMs()
	}
	return json.Marshal(norm)
}

// SameContent reports whether two records are equal ignoring bookkeeping fields.
func SameContent(a, b Record) bool {
	ab, errA := a.Content().Canonical()
	bb, errB := b.Content().Canonical()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// SortRecords сортирует коллекцию по id (in place)
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ID() < records[j].ID()
	})
}

// CollectionsEqual сравнивает две коллекции структурно: порядок не важен,
// записи сравниваются по каноническому JSON.
func CollectionsEqual(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	ea, err := canonicalCollection(a)
	if err != nil {
		return false
	}
	eb, err := canonicalCollection(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

func canonicalCollection(records []Record) ([]byte, error) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	SortRecords(sorted)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range sorted {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := r.Canonical()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// IndexByID строит map id -> Record, возвращает ошибку при дубликатах и записях без id
func IndexByID(records []Record) (map[string]Record, error) {
	out := make(map[string]Record, len(records))
	for _, r := range records {
		id := r.ID()
		if id == "" {
			return nil, ErrRecordWithoutID
		}
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRecordID, id)
		}
		out[id] = r
	}
	return out, nil
}
