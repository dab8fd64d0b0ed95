package scheduler

import (
	"context"
	"io"
	"log/slog"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/daybook/internal/client/sync"
	"github.com/iudanet/daybook/internal/models"
)

type call struct {
	collection string
	reason     string
}

// fakeEngine записывает вызовы Reconcile
type fakeEngine struct {
	result func(collection string, n int) *sync.CycleResult
	calls  []call
	mu     stdsync.Mutex
}

func (f *fakeEngine) Reconcile(_ context.Context, collection, reason string) (*sync.CycleResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{collection: collection, reason: reason})
	n := len(f.calls)
	f.mu.Unlock()

	if f.result != nil {
		return f.result(collection, n), nil
	}
	return &sync.CycleResult{Collection: collection, Reason: reason}, nil
}

func (f *fakeEngine) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeEngine) count(reason string) int {
	n := 0
	for _, c := range f.snapshot() {
		if c.reason == reason {
			n++
		}
	}
	return n
}

type fakePending struct {
	pending atomic.Bool
}

func (f *fakePending) Pending(context.Context, string) (bool, error) {
	return f.pending.Load(), nil
}

func testConfig() Config {
	return Config{
		Debounce:    40 * time.Millisecond,
		LoginDelay:  10 * time.Millisecond,
		Periodic:    time.Hour,
		OnlineDelay: 10 * time.Millisecond,
	}
}

func newScheduler(engine *fakeEngine, pending PendingChecker, cfg Config) *Scheduler {
	return New(engine, pending, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func startScheduler(t *testing.T, engine *fakeEngine, pending PendingChecker, cfg Config) *Scheduler {
	t.Helper()
	s := newScheduler(engine, pending, cfg)
	runScheduler(t, s)
	return s
}

func runScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 650*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 300*time.Millisecond, cfg.LoginDelay)
	assert.Equal(t, 8*time.Second, cfg.Periodic)
	assert.Equal(t, 500*time.Millisecond, cfg.OnlineDelay)
}

// Серия правок схлопывается в один цикл
func TestScheduler_DebounceCoalesces(t *testing.T) {
	engine := &fakeEngine{}
	s := startScheduler(t, engine, &fakePending{}, testConfig())

	for i := 0; i < 5; i++ {
		s.NotifyMutation(models.CollectionEvents)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return engine.count(ReasonMutation) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool {
		return engine.count(ReasonMutation) > 1
	}, 150*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, models.CollectionEvents, engine.snapshot()[0].collection)
}

func TestScheduler_LoginAndOnlineTriggerAllCollections(t *testing.T) {
	engine := &fakeEngine{}
	s := startScheduler(t, engine, &fakePending{}, testConfig())

	s.NotifyLogin()
	s.NotifyOnline()

	require.Eventually(t, func() bool {
		return engine.count(ReasonLogin) == len(models.Collections) &&
			engine.count(ReasonOnline) == len(models.Collections)
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_RemoteChange(t *testing.T) {
	engine := &fakeEngine{}
	s := startScheduler(t, engine, &fakePending{}, testConfig())

	s.NotifyRemoteChange("clients.json")
	s.NotifyRemoteChange("unknown.json")

	require.Eventually(t, func() bool {
		return engine.count(ReasonRemoteChange) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.CollectionClients, engine.snapshot()[0].collection)
}

func TestScheduler_PeriodicOnlyWhenPending(t *testing.T) {
	cfg := testConfig()
	cfg.Periodic = 20 * time.Millisecond
	engine := &fakeEngine{}
	pending := &fakePending{}
	startScheduler(t, engine, pending, cfg)

	assert.Never(t, func() bool {
		return engine.count(ReasonPeriodic) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)

	pending.pending.Store(true)
	require.Eventually(t, func() bool {
		return engine.count(ReasonPeriodic) >= len(models.Collections)
	}, time.Second, 5*time.Millisecond)
}

// Если во время цикла появились правки, debounce заводится снова
func TestScheduler_RearmsWhenPendingRemains(t *testing.T) {
	engine := &fakeEngine{
		result: func(collection string, n int) *sync.CycleResult {
			return &sync.CycleResult{Collection: collection, PendingRemains: n == 1}
		},
	}
	s := startScheduler(t, engine, &fakePending{}, testConfig())

	var hooked atomic.Int32
	s.OnCycle(func(res *sync.CycleResult, err error) {
		hooked.Add(1)
	})

	s.RequestImmediateSync(models.CollectionEvents, ReasonManual)

	require.Eventually(t, func() bool {
		return engine.count(ReasonManual) == 1 && engine.count(ReasonMutation) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return hooked.Load() == 2 }, time.Second, 5*time.Millisecond)
}

// Вход и сеть, о которых сообщили до старта Run, не теряются
func TestScheduler_TriggersBeforeRunAreReplayed(t *testing.T) {
	engine := &fakeEngine{}
	s := newScheduler(engine, &fakePending{}, testConfig())

	s.NotifyOnline()
	s.NotifyLogin()
	s.NotifyLogin()
	s.NotifyMutation(models.CollectionEvents)
	s.NotifyMutation(models.CollectionEvents)

	assert.Never(t, func() bool {
		return len(engine.snapshot()) > 0
	}, 50*time.Millisecond, 5*time.Millisecond)

	runScheduler(t, s)

	require.Eventually(t, func() bool {
		return engine.count(ReasonLogin) == len(models.Collections) &&
			engine.count(ReasonOnline) == len(models.Collections) &&
			engine.count(ReasonMutation) == 1
	}, time.Second, 5*time.Millisecond)
	// повторные триггеры до старта схлопнуты
	assert.Never(t, func() bool {
		return engine.count(ReasonLogin) > len(models.Collections) || engine.count(ReasonMutation) > 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}

// Остановленный планировщик триггеры не принимает, в том числе накопленные до Run
func TestScheduler_IgnoresTriggersWhenStopped(t *testing.T) {
	engine := &fakeEngine{}
	s := newScheduler(engine, &fakePending{}, testConfig())

	s.RequestImmediateSync(models.CollectionEvents, ReasonManual)
	s.NotifyMutation(models.CollectionEvents)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	s.RequestImmediateSync(models.CollectionEvents, ReasonManual)
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, engine.snapshot())
}
