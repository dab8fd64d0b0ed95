// Package scheduler decides when reconciliation runs. It holds no merge logic:
// every trigger ends in Engine.Reconcile, which coalesces overlapping cycles.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	stdsync "sync"
	"time"

	"github.com/iudanet/daybook/internal/client/sync"
	"github.com/iudanet/daybook/internal/models"
)

// Причины запуска цикла
const (
	ReasonMutation     = "mutation"
	ReasonLogin        = "login"
	ReasonPeriodic     = "periodic"
	ReasonOnline       = "online"
	ReasonRemoteChange = "remote-change"
	ReasonManual       = "manual"
)

// Reconciler - движок синхронизации
type Reconciler interface {
	Reconcile(ctx context.Context, collection, reason string) (*sync.CycleResult, error)
}

// PendingChecker читает флаг pending коллекции
type PendingChecker interface {
	Pending(ctx context.Context, collection string) (bool, error)
}

// CycleHook observes every finished cycle
type CycleHook func(res *sync.CycleResult, err error)

// Config - задержки триггеров
type Config struct {
	Debounce    time.Duration `mapstructure:"debounce" validate:"gt=0"`
	LoginDelay  time.Duration `mapstructure:"login_delay" validate:"gte=0"`
	Periodic    time.Duration `mapstructure:"periodic" validate:"gt=0"`
	OnlineDelay time.Duration `mapstructure:"online_delay" validate:"gte=0"`
}

// DefaultConfig returns the production trigger delays
func DefaultConfig() Config {
	return Config{
		Debounce:    650 * time.Millisecond,
		LoginDelay:  300 * time.Millisecond,
		Periodic:    8 * time.Second,
		OnlineDelay: 500 * time.Millisecond,
	}
}

// trigger - событие, пришедшее до запуска Run
type trigger struct {
	collection string
	reason     string
	delay      time.Duration
	debounce   bool
}

// Scheduler превращает события (правка, вход, сеть, push) в вызовы Reconcile
type Scheduler struct {
	engine  Reconciler
	pending PendingChecker
	logger  *slog.Logger
	ctx     context.Context
	timers  map[string]*time.Timer
	early   []trigger
	hooks   []CycleHook
	wg      stdsync.WaitGroup
	cfg     Config
	mu      stdsync.Mutex
	stopped bool
}

// New creates a scheduler. Triggers that arrive before Run are queued
// and replayed when Run starts; after Run returns they are ignored.
func New(engine Reconciler, pending PendingChecker, cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:  engine,
		pending: pending,
		cfg:     cfg,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
	}
}

// OnCycle registers a hook called after every cycle
func (s *Scheduler) OnCycle(hook CycleHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Run blocks until ctx is cancelled, running the periodic trigger.
// On return all timers are stopped and in-flight cycles have finished.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	early := s.early
	s.early = nil
	for _, tr := range early {
		if tr.debounce {
			s.scheduleLocked(tr.collection, tr.reason, tr.delay)
		} else {
			s.afterLocked(tr.collection, tr.reason, tr.delay)
		}
	}
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.Periodic)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stop()
			return
		case <-ticker.C:
			s.periodic(ctx)
		}
	}
}

// NotifyMutation откладывает цикл: серия правок дает один цикл
func (s *Scheduler) NotifyMutation(collection string) {
	s.schedule(collection, ReasonMutation, s.cfg.Debounce)
}

// NotifyLogin запускает цикл для всех коллекций после получения токена
func (s *Scheduler) NotifyLogin() {
	for _, coll := range models.Collections {
		s.after(coll, ReasonLogin, s.cfg.LoginDelay)
	}
}

// NotifyOnline запускает цикл при переходе в онлайн
func (s *Scheduler) NotifyOnline() {
	for _, coll := range models.Collections {
		s.after(coll, ReasonOnline, s.cfg.OnlineDelay)
	}
}

// NotifyRemoteChange обрабатывает push о записи документа другим устройством
func (s *Scheduler) NotifyRemoteChange(key string) {
	coll := strings.TrimSuffix(key, ".json")
	if !models.KnownCollection(coll) {
		s.logger.Debug("ignoring change of unknown document", "key", key)
		return
	}
	s.RequestImmediateSync(coll, ReasonRemoteChange)
}

// RequestImmediateSync запускает цикл без задержки
func (s *Scheduler) RequestImmediateSync(collection, reason string) {
	s.after(collection, reason, 0)
}

// schedule (пере)заводит единственный debounce-таймер коллекции
func (s *Scheduler) schedule(collection, reason string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queueLocked(trigger{collection: collection, reason: reason, delay: delay, debounce: true}) {
		return
	}
	s.scheduleLocked(collection, reason, delay)
}

func (s *Scheduler) scheduleLocked(collection, reason string, delay time.Duration) {
	if s.ctx.Err() != nil {
		return
	}
	if t, ok := s.timers[collection]; ok {
		t.Stop()
	}
	s.timers[collection] = time.AfterFunc(delay, func() {
		s.fire(collection, reason)
	})
}

// after запускает одноразовый отложенный цикл, не трогая debounce-слот
func (s *Scheduler) after(collection, reason string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queueLocked(trigger{collection: collection, reason: reason, delay: delay}) {
		return
	}
	s.afterLocked(collection, reason, delay)
}

func (s *Scheduler) afterLocked(collection, reason string, delay time.Duration) {
	if s.ctx.Err() != nil {
		return
	}
	if delay <= 0 {
		s.launchLocked(collection, reason)
		return
	}
	time.AfterFunc(delay, func() {
		s.fire(collection, reason)
	})
}

// queueLocked откладывает триггер до Run. Возвращает true, если триггер
// не нужно запускать сейчас: Run еще не начат или уже завершен.
// Одинаковые триггеры схлопываются, очередь ограничена числом коллекций и причин.
func (s *Scheduler) queueLocked(tr trigger) bool {
	if s.stopped {
		return true
	}
	if s.ctx != nil {
		return false
	}
	for i, q := range s.early {
		if q.collection == tr.collection && q.reason == tr.reason && q.debounce == tr.debounce {
			s.early[i] = tr
			return true
		}
	}
	s.early = append(s.early, tr)
	return true
}

func (s *Scheduler) periodic(ctx context.Context) {
	for _, coll := range models.Collections {
		pending, err := s.pending.Pending(ctx, coll)
		if err != nil {
			s.logger.Warn("failed to read pending flag", "collection", coll, "error", err)
			continue
		}
		if pending {
			s.RequestImmediateSync(coll, ReasonPeriodic)
		}
	}
}

func (s *Scheduler) fire(collection, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.ctx.Err() != nil {
		return
	}
	s.launchLocked(collection, reason)
}

// launchLocked запускает цикл в отдельной горутине; s.mu должен быть захвачен
func (s *Scheduler) launchLocked(collection, reason string) {
	ctx := s.ctx
	hooks := append([]CycleHook(nil), s.hooks...)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		res, err := s.engine.Reconcile(ctx, collection, reason)
		switch {
		case err == nil:
		case errors.Is(err, sync.ErrNetworkUnavailable), errors.Is(err, sync.ErrNotAuthenticated):
			s.logger.Debug("sync deferred", "collection", collection, "reason", reason, "error", err)
		case errors.Is(err, context.Canceled):
		default:
			s.logger.Warn("sync failed", "collection", collection, "reason", reason, "error", err)
		}

		for _, hook := range hooks {
			hook(res, err)
		}

		// Правки, пришедшие во время цикла, уходят следующим циклом
		if err == nil && res != nil && res.PendingRemains {
			s.NotifyMutation(collection)
		}
	}()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	s.stopped = true
	s.early = nil
	for coll, t := range s.timers {
		t.Stop()
		delete(s.timers, coll)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
