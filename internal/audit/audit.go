package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/slotbooking/internal/clock"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/Domenick1991/slotbooking/internal/kafka"
	"github.com/Domenick1991/slotbooking/internal/logger"
	"github.com/Domenick1991/slotbooking/internal/metrics"
	"github.com/Domenick1991/slotbooking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Entry is what callers hand to Record. Details is marshaled to JSON unless it
// already is raw JSON.
type Entry struct {
	Action     domain.AuditAction
	EntityType domain.EntityType
	EntityID   string
	ActorToken string
	Details    any
}

// Logger is the audit trail. Record is best effort: failures are logged and
// counted but never reach the caller, and the write outlives the caller's
// cancellation up to the configured timeout.
type Logger interface {
	Record(ctx context.Context, e Entry)
	List(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error)
}

type Recorder struct {
	repo     repository.AuditRepository
	producer Producer
	topic    string
	clock    clock.Clock
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
	inflight sync.WaitGroup
}

type Option func(*Recorder)

// WithProducer mirrors every entry onto topic.
func WithProducer(p Producer, topic string) Option {
	return func(r *Recorder) {
		r.producer = p
		r.topic = topic
	}
}

func WithClock(c clock.Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) { r.logger = logger.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func NewRecorder(repo repository.AuditRepository, opts ...Option) *Recorder {
	r := &Recorder{
		repo:    repo,
		clock:   clock.NewSystem(),
		timeout: 2 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Record(ctx context.Context, e Entry) {
	details, err := encodeDetails(e.Details)
	if err != nil {
		r.logger.Warn("audit details not encodable", zap.String("action", string(e.Action)), zap.Error(err))
		details = nil
	}

	entry := domain.AuditEntry{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		ActorToken: e.ActorToken,
		Details:    details,
		Timestamp:  r.clock.Now(),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.repo.Append(writeCtx, entry); err != nil {
		r.metrics.AuditFailed("store")
		r.logger.Error("audit append failed",
			zap.String("action", string(entry.Action)),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
	}

	if r.producer == nil || r.topic == "" {
		return
	}
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if err := r.producer.Publish(pubCtx, r.topic, entry.EntityID, toEvent(entry)); err != nil {
			r.metrics.AuditFailed("stream")
			r.logger.Warn("audit publish failed", zap.String("id", entry.ID), zap.Error(err))
		}
	}()
}

// Close waits for in-flight publishes.
func (r *Recorder) Close() {
	r.inflight.Wait()
}

func (r *Recorder) List(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	if entityID == "" {
		return nil, fmt.Errorf("%w: entity id is required", domain.ErrValidation)
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return r.repo.ListByEntity(ctx, entityID, limit)
}

func encodeDetails(v any) (json.RawMessage, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return d, nil
	default:
		return json.Marshal(d)
	}
}

func toEvent(e domain.AuditEntry) kafka.AuditEvent {
	return kafka.AuditEvent{
		ID:         e.ID,
		Action:     string(e.Action),
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID,
		ActorToken: e.ActorToken,
		Details:    e.Details,
		Timestamp:  e.Timestamp,
	}
}

var _ Logger = (*Recorder)(nil)
