// Package sync implements the reconciliation cycle: fetch the remote snapshot,
// merge the local journal into it, write back when the result differs and
// adopt the merged collection locally.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/iudanet/daybook/internal/client/remote"
	"github.com/iudanet/daybook/internal/client/storage"
	"github.com/iudanet/daybook/internal/crdt"
	"github.com/iudanet/daybook/internal/models"
)

// DefaultTimeout ограничивает каждый вызов удаленного хранилища
const DefaultTimeout = 20 * time.Second

// Store - локальное состояние, которое читает и принимает движок
type Store interface {
	storage.RecordStore
	storage.Journal
	storage.MetadataStorage
}

// Session - сетевое состояние и источник токенов
type Session interface {
	IsOnline() bool
	Token(ctx context.Context, interactive bool) (string, error)
}

// AdoptHook is called after a collection has been adopted
type AdoptHook func(collection string, records []models.Record)

// Engine выполняет циклы синхронизации. Не более одного цикла на коллекцию
// одновременно: параллельные вызовы получают результат уже идущего цикла.
type Engine struct {
	store   Store
	remote  remote.Store
	session Session
	logger  *slog.Logger
	now     func() time.Time
	group   singleflight.Group
	states  map[string]State
	status  map[string]Status
	onAdopt []AdoptHook
	timeout time.Duration
	mu      stdsync.Mutex
}

// NewEngine creates a reconciliation engine
func NewEngine(store Store, remoteStore remote.Store, sess Session, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		remote:  remoteStore,
		session: sess,
		logger:  logger,
		now:     time.Now,
		timeout: DefaultTimeout,
		states:  make(map[string]State),
		status:  make(map[string]Status),
	}
}

// SetTimeout меняет таймаут удаленных вызовов
func (e *Engine) SetTimeout(d time.Duration) {
	if d > 0 {
		e.timeout = d
	}
}

// OnAdopt registers a hook run after every successful adopt
func (e *Engine) OnAdopt(hook AdoptHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAdopt = append(e.onAdopt, hook)
}

// Reconcile выполняет один цикл для коллекции. Если цикл уже идет,
// вызывающий дожидается его и получает тот же результат.
func (e *Engine) Reconcile(ctx context.Context, collection, reason string) (*CycleResult, error) {
	if !models.KnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownCollection, collection)
	}

	v, err, shared := e.group.Do(collection, func() (any, error) {
		return e.cycle(ctx, collection, reason)
	})
	res, _ := v.(*CycleResult)
	if shared && res != nil {
		cp := *res
		cp.Shared = true
		res = &cp
	}
	return res, err
}

// ReconcileAll runs one cycle for every collection concurrently.
func (e *Engine) ReconcileAll(ctx context.Context, reason string) (map[string]*CycleResult, error) {
	var (
		g       errgroup.Group
		mu      stdsync.Mutex
		results = make(map[string]*CycleResult, len(models.Collections))
		errs    []error
	)
	for _, coll := range models.Collections {
		g.Go(func() error {
			res, err := e.Reconcile(ctx, coll, reason)
			mu.Lock()
			defer mu.Unlock()
			if res != nil {
				results[coll] = res
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", coll, err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// State returns the current state machine position of a collection
func (e *Engine) State(collection string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[collection]; ok {
		return st
	}
	return StateIdle
}

func (e *Engine) setState(collection string, st State) {
	e.mu.Lock()
	prev := e.states[collection]
	e.states[collection] = st
	e.mu.Unlock()

	if prev != st {
		e.logger.Debug("sync state", "collection", collection, "from", prev, "to", st)
	}
}

// Status returns the user-facing status. Without a cycle in this process it
// is derived from the persisted pending flag, last error and last sync time.
func (e *Engine) Status(ctx context.Context, collection string) (Status, error) {
	e.mu.Lock()
	st, ok := e.status[collection]
	e.mu.Unlock()

	pending, err := e.store.Pending(ctx, collection)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read pending flag: %w", err)
	}
	quarantined, err := e.store.QuarantineCount(ctx, collection)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read quarantine: %w", err)
	}
	lastSync, err := e.store.GetLastSyncTimestamp(ctx, collection)
	if err != nil {
		return Status{}, err
	}

	if !ok {
		st = Status{Collection: collection}
		lastErr, err := e.store.GetLastError(ctx, collection)
		if err != nil {
			return Status{}, err
		}
		switch {
		case lastErr != "":
			st.Kind, st.Reason = StatusError, lastErr
		case pending:
			st.Kind = StatusPending
		case lastSync == 0:
			st.Kind = StatusLocalOnly
		default:
			st.Kind = StatusSynced
		}
	}

	st.Pending = pending
	st.Quarantined = quarantined
	if lastSync > 0 {
		st.LastSyncAt = time.UnixMilli(lastSync)
	}
	if st.Kind == StatusSynced && pending {
		st.Kind = StatusPending
	}
	if quarantined > 0 && st.Reason == "" {
		st.Reason = fmt.Sprintf("%d unreadable journal entries quarantined", quarantined)
	}
	return st, nil
}

func (e *Engine) setStatus(collection string, kind StatusKind, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status[collection] = Status{Collection: collection, Kind: kind, Reason: reason}
}

// cycle - один проход fetch -> merge -> (write) -> adopt
func (e *Engine) cycle(ctx context.Context, collection, reason string) (*CycleResult, error) {
	log := e.logger.With("collection", collection, "reason", reason)
	res := &CycleResult{Collection: collection, Reason: reason}

	// Предусловия: без сети и токена цикл ничего не меняет
	if !e.session.IsOnline() {
		log.Debug("sync skipped: offline")
		return res, fmt.Errorf("%w: device is offline", ErrNetworkUnavailable)
	}

	token, err := e.session.Token(ctx, false)
	if err != nil {
		err = classify("token", err)
		if errors.Is(err, ErrNotAuthenticated) {
			e.setStatus(collection, StatusLocalOnly, "sign in to sync")
			log.Debug("sync skipped: not authenticated")
			return res, err
		}
		return res, e.fail(ctx, collection, err)
	}

	e.setStatus(collection, StatusSyncing, "")
	key := models.DocumentKey(collection)

	// Fetching
	e.setState(collection, StateFetching)
	snapshot, err := e.fetch(ctx, collection, token, key)
	if err != nil {
		return res, e.fail(ctx, collection, err)
	}

	// Merging: журнал фиксируется здесь, поздние правки уйдут в следующий цикл
	e.setState(collection, StateMerging)
	journal, err := e.store.Load(ctx, collection)
	if err != nil {
		return res, e.fail(ctx, collection, fmt.Errorf("failed to load journal: %w", err))
	}
	if n := len(journal.Corrupt); n > 0 {
		res.Corrupt = n
		res.Diagnostic = fmt.Errorf("%w: %d unreadable journal entries skipped", ErrMergeInputCorrupt, n)
		for _, c := range journal.Corrupt {
			log.Error("unreadable journal entry", "bucket", c.Bucket, "key", c.Key, "error", c.Err)
		}
	}

	merged := crdt.MergeWithStats(snapshot.Records, journal.Ops, journal.Tombstones)
	res.Applied = merged.Applied
	res.Suppressed = merged.Suppressed

	if models.CollectionsEqual(snapshot.Records, merged.Records) {
		e.setState(collection, StateNoChangeNeeded)
	} else {
		e.setState(collection, StateWritingBack)
		if err := e.writeBack(ctx, collection, token, key, merged.Records); err != nil {
			return res, e.fail(ctx, collection, err)
		}
		res.Wrote = true
	}

	// Adopting: единственное место, где журнал очищается
	e.setState(collection, StateAdopting)
	adopted, err := e.store.Adopt(ctx, collection, merged.Records, journal.UpToSeq)
	if err != nil {
		return res, e.fail(ctx, collection, fmt.Errorf("failed to adopt merge result: %w", err))
	}
	res.Records = len(adopted.Records)
	res.Remaining = adopted.Remaining
	res.Quarantined = adopted.Quarantined
	res.PendingRemains = adopted.PendingRemains

	if err := e.store.SaveLastError(ctx, collection, ""); err != nil {
		log.Warn("failed to clear last error", "error", err)
	}

	kind, statusReason := StatusSynced, ""
	if res.PendingRemains {
		kind = StatusPending
	}
	if res.Diagnostic != nil {
		statusReason = res.Diagnostic.Error()
	}
	e.setStatus(collection, kind, statusReason)
	e.setState(collection, StateIdle)

	e.mu.Lock()
	hooks := append([]AdoptHook(nil), e.onAdopt...)
	e.mu.Unlock()
	for _, hook := range hooks {
		hook(collection, adopted.Records)
	}

	log.Info("sync cycle complete",
		"records", res.Records,
		"wrote", res.Wrote,
		"applied", res.Applied,
		"suppressed", res.Suppressed,
		"remaining", res.Remaining,
		"quarantined", res.Quarantined,
	)
	return res, nil
}

// fetch читает снимок; отсутствие документа - пустой снимок
func (e *Engine) fetch(ctx context.Context, collection, token, key string) (models.Snapshot, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	data, err := e.remote.Get(callCtx, token, key)
	if errors.Is(err, remote.ErrNotFound) {
		// Документ удален или еще не создан: сбрасываем кешированный handle
		if err := e.store.SaveDocumentHandle(ctx, collection, ""); err != nil {
			e.logger.Warn("failed to clear document handle", "collection", collection, "error", err)
		}
		return models.DecodeSnapshot(nil)
	}
	if err != nil {
		return models.Snapshot{}, classify("fetch "+key, err)
	}

	snapshot, err := models.DecodeSnapshot(data)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", ErrRemoteStore, err)
	}
	return snapshot, nil
}

func (e *Engine) writeBack(ctx context.Context, collection, token, key string, records []models.Record) error {
	handle, err := e.store.GetDocumentHandle(ctx, collection)
	if err != nil {
		return err
	}

	if handle == "" {
		initial, err := models.NewSnapshot(nil, e.now()).Encode()
		if err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		handle, err = e.remote.Create(callCtx, token, key, initial)
		cancel()
		if err != nil {
			return classify("create "+key, err)
		}
		if err := e.store.SaveDocumentHandle(ctx, collection, handle); err != nil {
			e.logger.Warn("failed to cache document handle", "collection", collection, "error", err)
		}
	}

	data, err := models.NewSnapshot(records, e.now()).Encode()
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.remote.Put(callCtx, token, key, data); err != nil {
		return classify("put "+key, err)
	}
	return nil
}

// fail переводит цикл в Errored и сохраняет диагностику; журнал не трогается
func (e *Engine) fail(ctx context.Context, collection string, err error) error {
	e.setState(collection, StateErrored)
	e.setStatus(collection, StatusError, err.Error())

	if saveErr := e.store.SaveLastError(ctx, collection, err.Error()); saveErr != nil {
		e.logger.Warn("failed to save last error", "collection", collection, "error", saveErr)
	}
	e.logger.Warn("sync cycle failed",
		"collection", collection,
		"retryable", IsRetryable(err),
		"error", err,
	)

	e.setState(collection, StateIdle)
	return err
}
