// Package ratelimit implements request pacing for the upstream
// requests-per-second ceiling. The upstream API enforces a strict
// quota per second; the Pacer owns the "next allowed dispatch time"
// so callers never rely on ambient process state.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pacing.
var (
	anlPacerWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anl_pacer_waits_total",
		Help: "Total number of cooldown waits before tranche dispatch",
	})

	anlPacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anl_pacer_wait_seconds",
		Help:    "Time spent waiting for the next allowed dispatch",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 5},
	})
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemClock returns a Clock backed by the real time package.
func SystemClock() Clock { return systemClock{} }

// Pacer gates tranche dispatch so the aggregate request rate stays
// under the upstream ceiling. It is safe for concurrent use, though a
// pagination run drives it from a single goroutine.
type Pacer struct {
	cooldown time.Duration
	clock    Clock
	logger   zerolog.Logger

	mu     sync.Mutex
	nextAt time.Time
}

// NewPacer creates a pacer with the given inter-tranche cooldown.
// A nil clock falls back to the system clock.
func NewPacer(cooldown time.Duration, clock Clock, logger zerolog.Logger) *Pacer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Pacer{
		cooldown: cooldown,
		clock:    clock,
		logger:   logger,
	}
}

// Wait blocks until the next allowed dispatch time has passed.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	wait := p.nextAt.Sub(p.clock.Now())
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	anlPacerWaitsTotal.Inc()
	anlPacerWaitSeconds.Observe(wait.Seconds())

	p.logger.Debug().
		Dur("wait", wait).
		Msg("Cooling down before next tranche")

	return p.clock.Sleep(ctx, wait)
}

// Advance pushes the next allowed dispatch time one cooldown past now.
// Callers invoke it after a batch of requests has fully completed, so
// the cooldown is measured from completion, not dispatch.
func (p *Pacer) Advance() {
	p.mu.Lock()
	p.nextAt = p.clock.Now().Add(p.cooldown)
	p.mu.Unlock()
}

// NextAt reports the current next allowed dispatch time.
func (p *Pacer) NextAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextAt
}
