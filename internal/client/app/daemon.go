package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/daybook/internal/client/scheduler"
	"github.com/iudanet/daybook/internal/client/sync"
	"github.com/iudanet/daybook/internal/client/watch"
	"github.com/iudanet/daybook/internal/models"
)

var errFeedClosed = errors.New("remote change feed closed")

const (
	// задержки переподключения ленты изменений
	watchBackoffBase = time.Second
	watchBackoffMax  = 30 * time.Second
)

// Run запускает фоновую синхронизацию: проверку сети, планировщик,
// ленту удаленных изменений и (если задан каталог) зеркало коллекций.
// Блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	sched := scheduler.New(a.engine, a.store, a.cfg.Sync.Config, a.logger)

	var mirror *watch.Mirror
	if a.cfg.Watch.Dir != "" {
		m, err := watch.New(a.cfg.Watch.Dir, a.intake, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create mirror: %w", err)
		}
		mirror = m
	}

	a.intake.OnMutation(func(collection string) {
		sched.NotifyMutation(collection)
		if mirror != nil {
			mirror.Refresh(ctx, collection)
		}
	})
	a.session.OnOnline(sched.NotifyOnline)
	// тихое обновление токена или вход во время работы демона
	a.auth.OnSignIn(sched.NotifyLogin)
	if mirror != nil {
		a.engine.OnAdopt(func(collection string, records []models.Record) {
			if err := mirror.Export(ctx, collection, records); err != nil {
				a.logger.Warn("failed to export collection", "collection", collection, "error", err)
			}
		})
	}
	sched.OnCycle(func(res *sync.CycleResult, err error) {
		if err != nil && !sync.IsRetryable(err) {
			a.logger.Error("sync cycle failed", "error", err)
		}
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sched.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.prober.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return a.watchRemote(ctx, sched)
	})
	if mirror != nil {
		if err := mirror.ExportAll(ctx); err != nil {
			a.logger.Warn("initial export failed", "error", err)
		}
		g.Go(func() error {
			return mirror.Run(ctx)
		})
	}

	// Сессия уже может быть авторизована: синхронизируемся как после входа
	g.Go(func() error {
		if _, err := a.auth.Current(ctx); err == nil {
			sched.NotifyLogin()
		}
		return nil
	})

	a.logger.Info("daemon started", "backend", a.cfg.Remote.Backend, "mirror", a.cfg.Watch.Dir)
	err := g.Wait()
	a.logger.Info("daemon stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchRemote держит ленту изменений открытой, переподключаясь с экспоненциальной задержкой
func (a *App) watchRemote(ctx context.Context, sched *scheduler.Scheduler) error {
	backoff := retry.WithCappedDuration(watchBackoffMax, retry.NewExponential(watchBackoffBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := a.watcher.Watch(ctx, sched.NotifyRemoteChange)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errFeedClosed
		}
		a.logger.Debug("remote change feed closed", "error", err)
		return retry.RetryableError(err)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
