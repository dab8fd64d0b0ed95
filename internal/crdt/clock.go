package crdt

import (
	"sync"
	"time"
)

// WallClock выдает метки времени записей в миллисекундах unix epoch.
// Метки одного устройства строго возрастают даже при двух изменениях в одну миллисекунду
// или при откате системных часов назад.
// Между устройствами синхронизации нет: расхождение часов влияет на LWW.
type WallClock struct {
	now  func() time.Time // источник физического времени
	last int64            // последняя выданная метка
	mu   sync.Mutex
}

// NewWallClock создает часы поверх time.Now.
func NewWallClock() *WallClock {
	return NewWallClockWithSource(time.Now)
}

// NewWallClockWithSource создает часы с заданным источником времени.
// Используется для тестирования.
func NewWallClockWithSource(now func() time.Time) *WallClock {
	return &WallClock{now: now}
}

// Tick возвращает новую метку: max(now, last+1).
func (c *WallClock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// Last возвращает последнюю выданную метку без изменения часов.
func (c *WallClock) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}

// Restore поднимает нижнюю границу часов (например, после перезапуска
// до максимальной метки из локального журнала). Меньшие значения игнорируются.
func (c *WallClock) Restore(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts > c.last {
		c.last = ts
	}
}
