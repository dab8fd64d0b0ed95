package session

import (
	"context"
	"log/slog"
	"time"
)

//go:generate moq -out health_mock.go . HealthChecker

// HealthChecker проверяет доступность удаленного хранилища
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Prober периодически проверяет сеть и переключает онлайн-флаг сессии
type Prober struct {
	checker  HealthChecker
	session  *Context
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewProber creates a connectivity prober
func NewProber(checker HealthChecker, session *Context, interval, timeout time.Duration, logger *slog.Logger) *Prober {
	return &Prober{
		checker:  checker,
		session:  session,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Probe performs one check and updates the session
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.checker.Health(ctx)
	if err != nil {
		p.logger.Debug("health probe failed", "error", err)
	}
	p.session.SetOnline(err == nil)
	return err == nil
}

// Run probes immediately and then on every interval until ctx is cancelled
func (p *Prober) Run(ctx context.Context) {
	p.Probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
