package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/slotbooking/internal/audit"
	"github.com/Domenick1991/slotbooking/internal/clock"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/Domenick1991/slotbooking/internal/logger"
	"github.com/Domenick1991/slotbooking/internal/metrics"
	"github.com/Domenick1991/slotbooking/internal/repository"
	"go.uber.org/zap"
)

const EntityID = "expiry-sweeper"

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Sweeper returns held slots whose lease elapsed to free. Each run is one
// conditional update, so a confirm that wins the row first is never undone.
type Sweeper struct {
	slots    repository.SlotRepository
	audit    audit.Logger
	cache    Invalidator
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

type Option func(*Sweeper)

func WithCache(c Invalidator) Option {
	return func(s *Sweeper) { s.cache = c }
}

func WithClock(c clock.Clock) Option {
	return func(s *Sweeper) { s.clock = c }
}

func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Sweeper) { s.logger = logger.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func New(slots repository.SlotRepository, auditLog audit.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		slots:    slots,
		audit:    auditLog,
		clock:    clock.NewSystem(),
		interval: 30 * time.Second,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep frees every hold that expired at or before now and returns how many.
// Running it again with no new holds returns 0.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (n int, err error) {
	defer func(start time.Time) { s.metrics.Observe("sweep", start, err) }(time.Now())

	released, err := s.slots.ReleaseExpiredHolds(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("release expired holds: %w", err)
	}
	if len(released) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(released))
	for _, slot := range released {
		ids = append(ids, slot.ID)
	}

	s.metrics.Swept(len(released))
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("availability cache invalidation failed", zap.Error(err))
		}
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     domain.AuditHoldsExpired,
		EntityType: domain.EntitySweep,
		EntityID:   EntityID,
		Details: map[string]any{
			"count":    len(released),
			"slot_ids": ids,
			"swept_at": now,
		},
	})
	return len(released), nil
}

// SweepNow sweeps at the sweeper clock's current time.
func (s *Sweeper) SweepNow(ctx context.Context) (int, error) {
	return s.Sweep(ctx, s.clock.Now())
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	start := time.Now()
	n, err := s.SweepNow(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("expiry sweep failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.logger.Info("expired holds released",
			zap.Int("count", n),
			zap.Duration("latency", time.Since(start)))
	}
}
