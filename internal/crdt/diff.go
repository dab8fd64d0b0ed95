package crdt

import (
	"fmt"

	"github.com/iudanet/daybook/internal/models"
)

// Change - разница между двумя состояниями коллекции
type Change struct {
	Upserts []models.Record // новые и измененные записи (в порядке after)
	Deletes []string        // id, исчезнувшие из after (в порядке before)
}

// Empty reports whether the change carries nothing.
func (c Change) Empty() bool {
	return len(c.Upserts) == 0 && len(c.Deletes) == 0
}

// Diff сравнивает два полных состояния коллекции.
// Записи сравниваются без служебных полей updatedAtMs и originDevice:
// изменение только метки не считается правкой.
func Diff(before, after []models.Record) (Change, error) {
	prev, err := models.IndexByID(before)
	if err != nil {
		return Change{}, fmt.Errorf("invalid previous collection: %w", err)
	}
	next, err := models.IndexByID(after)
	if err != nil {
		return Change{}, fmt.Errorf("invalid new collection: %w", err)
	}

	var ch Change
	for _, r := range after {
		old, ok := prev[r.ID()]
		if ok && models.SameContent(old, r) {
			continue
		}
		ch.Upserts = append(ch.Upserts, r)
	}
	for _, r := range before {
		if _, ok := next[r.ID()]; !ok {
			ch.Deletes = append(ch.Deletes, r.ID())
		}
	}

	return ch, nil
}
