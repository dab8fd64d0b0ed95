package storage

import (
	"context"

	"github.com/iudanet/daybook/internal/models"
)

// Journal хранит журнал операций (oplog), надгробия и флаг pending коллекции.
// Журнал изменяется только двумя способами: Commit (локальная правка)
// и Adopt (подтвержденный цикл синхронизации).
type Journal interface {
	// Commit атомарно применяет операции к материализованной коллекции,
	// добавляет их в oplog (Seq назначается хранилищем), создает надгробия
	// для delete-операций и выставляет pending.
	Commit(ctx context.Context, collection string, ops []models.Operation) error

	// Load возвращает снимок журнала для слияния.
	// Нечитаемые записи не прерывают загрузку: они попадают в Corrupt.
	Load(ctx context.Context, collection string) (*JournalSnapshot, error)

	// Adopt атомарно принимает результат слияния:
	// удаляет из журнала записи с Seq <= upToSeq, переносит нечитаемые записи в карантин,
	// заменяет коллекцию результатом слияния с наложенными поверх оставшимися операциями
	// и пересчитывает pending.
	Adopt(ctx context.Context, collection string, merged []models.Record, upToSeq uint64) (*AdoptResult, error)

	// Pending возвращает флаг несинхронизированных изменений
	Pending(ctx context.Context, collection string) (bool, error)

	// QuarantineCount возвращает количество записей журнала в карантине
	QuarantineCount(ctx context.Context, collection string) (int, error)
}

// JournalSnapshot - состояние журнала на момент начала слияния
type JournalSnapshot struct {
	Ops        []models.Operation // в порядке добавления
	Tombstones []models.Tombstone
	Corrupt    []CorruptEntry
	UpToSeq    uint64 // максимальный Seq среди включенных записей
	Pending    bool
}

// CorruptEntry describes a journal value that failed to decode.
type CorruptEntry struct {
	Err    error
	Bucket string
	Key    string
}

// AdoptResult - итог принятия результата слияния
type AdoptResult struct {
	Records        []models.Record // итоговая материализованная коллекция
	Remaining      int             // операции, добавленные во время цикла
	Quarantined    int             // записи, перенесенные в карантин
	PendingRemains bool
}
