// Package app assembles the client runtime: local store, session, auth,
// sync engine, trigger scheduler, collection mirror and remote change feed.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iudanet/daybook/internal/client/api"
	"github.com/iudanet/daybook/internal/client/auth"
	"github.com/iudanet/daybook/internal/client/config"
	"github.com/iudanet/daybook/internal/client/data"
	"github.com/iudanet/daybook/internal/client/iocli"
	"github.com/iudanet/daybook/internal/client/remote"
	"github.com/iudanet/daybook/internal/client/remote/couch"
	"github.com/iudanet/daybook/internal/client/session"
	"github.com/iudanet/daybook/internal/client/storage/boltdb"
	"github.com/iudanet/daybook/internal/client/sync"
	"github.com/iudanet/daybook/internal/crdt"
	"github.com/iudanet/daybook/internal/models"
)

// Watcher доставляет ключи документов, записанных другими устройствами
type Watcher interface {
	Watch(ctx context.Context, handler func(key string)) error
}

// App - собранный клиент
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *boltdb.Storage
	session *session.Context
	prober  *session.Prober
	auth    *auth.Provider
	intake  *data.Intake
	engine  *sync.Engine
	watcher Watcher
	closers []io.Closer
}

// New opens the local database and wires every client component.
// prompter is used when a sync needs the password again.
func New(ctx context.Context, cfg *config.Config, prompter iocli.IO, logger *slog.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DB), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := boltdb.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s (is the daemon running?): %w", cfg.DB, err)
	}
	a := &App{cfg: cfg, logger: logger, store: store, closers: []io.Closer{store}}

	deviceID, err := store.GetOrCreateDeviceID(ctx)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to get device id: %w", err)
	}
	logger = logger.With("device", deviceID)
	a.logger = logger

	apiClient := api.NewClient(cfg.Server)
	apiClient.SetDeviceID(deviceID)
	a.auth = auth.NewProvider(apiClient, store, prompter, logger)

	clock := crdt.NewWallClock()
	if err := restoreClock(ctx, store, clock); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.session = session.New(deviceID, a.auth, clock, logger)

	var (
		remoteStore remote.Store
		health      session.HealthChecker
	)
	switch cfg.Remote.Backend {
	case config.BackendCouch:
		cs, err := couch.Open(ctx, cfg.Remote.CouchURL, cfg.Remote.CouchDB, deviceID)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to open CouchDB: %w", err)
		}
		a.closers = append(a.closers, cs)
		remoteStore, health, a.watcher = cs, cs, cs
	default:
		remoteStore, health = api.NewDocumentStore(apiClient), apiClient
		a.watcher = &notifyWatcher{client: apiClient, tokens: a.session, logger: logger}
	}

	a.prober = session.NewProber(health, a.session, cfg.Sync.ProbeInterval, cfg.Sync.ProbeTimeout, logger)
	a.engine = sync.NewEngine(store, remoteStore, a.session, logger)
	a.engine.SetTimeout(cfg.Sync.Timeout)
	a.intake = data.NewService(store, clock, deviceID, logger)

	return a, nil
}

// restoreClock поднимает часы до максимальной метки локальных данных
func restoreClock(ctx context.Context, store *boltdb.Storage, clock *crdt.WallClock) error {
	for _, coll := range models.Collections {
		records, err := store.List(ctx, coll)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", coll, err)
		}
		for _, r := range records {
			clock.Restore(r.UpdatedAtMs())
		}

		snap, err := store.Load(ctx, coll)
		if err != nil {
			return fmt.Errorf("failed to read %s journal: %w", coll, err)
		}
		for _, op := range snap.Ops {
			clock.Restore(op.TimestampMs)
		}
		for _, t := range snap.Tombstones {
			clock.Restore(t.DeletedAtMs)
		}
	}
	return nil
}

// Auth returns the credential provider
func (a *App) Auth() *auth.Provider {
	return a.auth
}

// Data returns the mutation intake
func (a *App) Data() *data.Intake {
	return a.intake
}

// DeviceID returns the durable device identifier
func (a *App) DeviceID() string {
	return a.session.DeviceID()
}

// Reconcile runs one cycle. A one-shot process probes the network first.
func (a *App) Reconcile(ctx context.Context, collection, reason string) (*sync.CycleResult, error) {
	a.ensureProbed(ctx)
	return a.engine.Reconcile(ctx, collection, reason)
}

// ReconcileAll runs one cycle per collection
func (a *App) ReconcileAll(ctx context.Context, reason string) (map[string]*sync.CycleResult, error) {
	a.ensureProbed(ctx)
	return a.engine.ReconcileAll(ctx, reason)
}

// Status returns the sync indicator of a collection
func (a *App) Status(ctx context.Context, collection string) (sync.Status, error) {
	return a.engine.Status(ctx, collection)
}

func (a *App) ensureProbed(ctx context.Context) {
	if !a.session.IsOnline() {
		a.prober.Probe(ctx)
	}
}

// Close stops the session and closes the remote client and the database
func (a *App) Close() error {
	if a.session != nil {
		a.session.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
