package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/daybook/internal/client/storage"
	"github.com/iudanet/daybook/internal/crdt"
	"github.com/iudanet/daybook/internal/models"
	"github.com/iudanet/daybook/internal/validation"
)

//go:generate moq -out service_mock.go . Service

// Service - точка входа локальных правок (Mutation Intake).
// Никогда не обращается к сети: правка фиксируется локально и сразу видна.
type Service interface {
	// NotifyLocalChange сравнивает два полных состояния коллекции и журналирует разницу
	NotifyLocalChange(ctx context.Context, collection string, before, after []models.Record) (crdt.Change, error)
	// Upsert создает или заменяет запись; пустой id заменяется сгенерированным
	Upsert(ctx context.Context, collection string, record models.Record) (models.Record, error)
	// Delete удаляет запись по id
	Delete(ctx context.Context, collection, id string) error
	// List возвращает материализованную коллекцию
	List(ctx context.Context, collection string) ([]models.Record, error)
	// Get возвращает запись по id
	Get(ctx context.Context, collection, id string) (models.Record, error)
}

var _ Service = (*Intake)(nil)

// Store - локальное хранилище, нужное сервису
type Store interface {
	storage.RecordStore
	storage.Journal
}

// Clock выдает метки времени правок
type Clock interface {
	Tick() int64
}

// MutationHook вызывается после успешной фиксации правки
type MutationHook func(collection string)

// Intake implements Service on top of the local store
type Intake struct {
	store      Store
	clock      Clock
	logger     *slog.Logger
	onMutation MutationHook
	deviceID   string
}

// NewService creates a new mutation intake service
func NewService(store Store, clock Clock, deviceID string, logger *slog.Logger) *Intake {
	return &Intake{
		store:    store,
		clock:    clock,
		deviceID: deviceID,
		logger:   logger,
	}
}

// OnMutation регистрирует обработчик (обычно debounce планировщика)
func (s *Intake) OnMutation(hook MutationHook) {
	s.onMutation = hook
}

// NotifyLocalChange journals the difference between two collection states
func (s *Intake) NotifyLocalChange(ctx context.Context, collection string, before, after []models.Record) (crdt.Change, error) {
	if !models.KnownCollection(collection) {
		return crdt.Change{}, fmt.Errorf("%w: %q", storage.ErrUnknownCollection, collection)
	}
	for _, r := range after {
		if err := validation.ValidateRecord(r); err != nil {
			return crdt.Change{}, err
		}
	}

	change, err := crdt.Diff(before, after)
	if err != nil {
		return crdt.Change{}, err
	}
	if change.Empty() {
		return change, nil
	}

	ops := make([]models.Operation, 0, len(change.Upserts)+len(change.Deletes))
	for i, r := range change.Upserts {
		ts := s.clock.Tick()
		stamped := r.Stamp(ts, s.deviceID)
		change.Upserts[i] = stamped
		ops = append(ops, models.NewUpsert(stamped, ts, s.deviceID))
	}
	for _, id := range change.Deletes {
		ops = append(ops, models.NewDelete(id, s.clock.Tick(), s.deviceID))
	}

	if err := s.store.Commit(ctx, collection, ops); err != nil {
		return crdt.Change{}, fmt.Errorf("failed to commit local change: %w", err)
	}

	s.logger.Debug("local change journaled",
		"collection", collection,
		"upserts", len(change.Upserts),
		"deletes", len(change.Deletes))

	if s.onMutation != nil {
		s.onMutation(collection)
	}

	return change, nil
}

// Upsert creates or replaces one record
func (s *Intake) Upsert(ctx context.Context, collection string, record models.Record) (models.Record, error) {
	before, err := s.store.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	rec := record.Clone()
	if rec.ID() == "" {
		// Генерируем ID если не задан
		rec[models.FieldID] = models.NewRecordID()
	}

	after := make([]models.Record, 0, len(before)+1)
	replaced := false
	for _, r := range before {
		if r.ID() == rec.ID() {
			after = append(after, rec)
			replaced = true
			continue
		}
		after = append(after, r)
	}
	if !replaced {
		after = append(after, rec)
	}

	change, err := s.NotifyLocalChange(ctx, collection, before, after)
	if err != nil {
		return nil, err
	}

	for _, r := range change.Upserts {
		if r.ID() == rec.ID() {
			return r, nil
		}
	}
	// содержимое не изменилось: возвращаем текущую версию
	return s.store.Get(ctx, collection, rec.ID())
}

// Delete removes one record
func (s *Intake) Delete(ctx context.Context, collection, id string) error {
	before, err := s.store.List(ctx, collection)
	if err != nil {
		return err
	}

	after := make([]models.Record, 0, len(before))
	for _, r := range before {
		if r.ID() != id {
			after = append(after, r)
		}
	}
	if len(after) == len(before) {
		return fmt.Errorf("%w: %s", storage.ErrRecordNotFound, id)
	}

	_, err = s.NotifyLocalChange(ctx, collection, before, after)
	return err
}

// List returns the materialized collection
func (s *Intake) List(ctx context.Context, collection string) ([]models.Record, error) {
	if !models.KnownCollection(collection) {
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownCollection, collection)
	}
	return s.store.List(ctx, collection)
}

// Get returns one record
func (s *Intake) Get(ctx context.Context, collection, id string) (models.Record, error) {
	if !models.KnownCollection(collection) {
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownCollection, collection)
	}
	rec, err := s.store.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrRecordNotFound, id)
		}
		return nil, err
	}
	return rec, nil
}
