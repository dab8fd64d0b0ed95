package crdt

import (
	"sort"

	"github.com/iudanet/daybook/internal/models"
)

// MergeResult содержит результат слияния и счетчики для диагностики.
type MergeResult struct {
	Records    []models.Record // итоговая коллекция, отсортирована по id
	Applied    int             // upsert-операции, принятые по LWW
	Stale      int             // upsert-операции старее текущей записи
	Suppressed int             // upsert-операции, подавленные надгробием
	Deleted    int             // записи, удаленные операциями или финальным проходом
}

// Merge сливает удаленный снимок с локальным журналом и надгробиями.
// Чистая функция: результат зависит только от аргументов.
func Merge(remote []models.Record, ops []models.Operation, tombstones []models.Tombstone) []models.Record {
	return MergeWithStats(remote, ops, tombstones).Records
}

// MergeWithStats выполняет слияние по правилам Last-Writer-Wins:
//   - рабочая карта заполняется удаленными записями;
//   - операции применяются по возрастанию timestampMs, при равенстве в порядке добавления;
//   - upsert принимается, если его метка >= метки текущей записи;
//   - надгробие всегда побеждает, включая более новые upsert;
//   - в конце все id из множества надгробий удаляются безусловно.
func MergeWithStats(remote []models.Record, ops []models.Operation, tombstones []models.Tombstone) MergeResult {
	var res MergeResult

	working := make(map[string]models.Record, len(remote))
	for _, r := range remote {
		id := r.ID()
		if id == "" {
			continue
		}
		// при дубликатах в снимке оставляем более новую версию
		if cur, ok := working[id]; ok && cur.UpdatedAtMs() > r.UpdatedAtMs() {
			continue
		}
		working[id] = r
	}

	deleted := make(map[string]struct{}, len(tombstones))
	for _, t := range tombstones {
		deleted[t.ID] = struct{}{}
	}

	// копия, чтобы не менять порядок у вызывающего
	ordered := make([]models.Operation, len(ops))
	copy(ordered, ops)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TimestampMs < ordered[j].TimestampMs
	})

	for _, op := range ordered {
		switch op.Kind {
		case models.OpDelete:
			if _, ok := working[op.ID]; ok {
				delete(working, op.ID)
				res.Deleted++
			}
			deleted[op.ID] = struct{}{}

		case models.OpUpsert:
			if _, ok := deleted[op.ID]; ok {
				res.Suppressed++
				continue
			}
			if cur, ok := working[op.ID]; ok && op.TimestampMs < cur.UpdatedAtMs() {
				res.Stale++
				continue
			}
			working[op.ID] = adoptedRecord(op)
			res.Applied++
		}
	}

	// финальный проход: ни один id с надгробием не переживает слияние
	for id := range deleted {
		if _, ok := working[id]; ok {
			delete(working, id)
			res.Deleted++
		}
	}

	res.Records = make([]models.Record, 0, len(working))
	for _, r := range working {
		res.Records = append(res.Records, r)
	}
	models.SortRecords(res.Records)

	return res
}

// adoptedRecord возвращает запись операции с меткой операции.
// Метка операции авторитетна: запись в журнале могла прийти без updatedAtMs.
func adoptedRecord(op models.Operation) models.Record {
	rec := op.Record.Clone()
	rec[models.FieldID] = op.ID
	rec[models.FieldUpdatedAtMs] = op.TimestampMs
	if rec.OriginDevice() == "" && op.Device != "" {
		rec[models.FieldOriginDevice] = op.Device
	}
	return rec
}
