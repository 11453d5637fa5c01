package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/slotbooking/internal/audit"
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
	DefaultHoldTTL = 5 * time.Minute
	DefaultMaxTTL  = 30 * time.Minute

	notifyTimeout = 2 * time.Second
)

type ReservationUseCase interface {
	Hold(ctx context.Context, input HoldInput) (HoldResult, error)
	ReleaseHold(ctx context.Context, slotID, ownerToken string) error
	Confirm(ctx context.Context, input ConfirmInput) (*domain.Reservation, error)
	Cancel(ctx context.Context, reservationID, actorToken string) error
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
}

// Invalidator retires cached availability after a slot changes state.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type HoldInput struct {
	SlotID     string
	OwnerToken string
	// TTL of zero means the configured default.
	TTL time.Duration
}

type HoldResult struct {
	SlotID     string    `json:"slot_id"`
	HoldExpiry time.Time `json:"hold_expiry"`
}

type ConfirmInput struct {
	SlotID         string
	OwnerToken     string
	SubjectDetails json.RawMessage
}

type ReservationService struct {
	slots              repository.SlotRepository
	reservations       repository.ReservationRepository
	audit              audit.Logger
	cache              Invalidator
	producer           Producer
	notificationsTopic string
	clock              clock.Clock
	holdTTL            time.Duration
	maxHoldTTL         time.Duration
	logger             *zap.Logger
	metrics            *metrics.Metrics
}

type ReservationServiceOption func(*ReservationService)

// WithHoldTTL sets the default lease and the longest lease a caller may ask for.
func WithHoldTTL(def, maxTTL time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if def > 0 {
			s.holdTTL = def
		}
		if maxTTL > 0 {
			s.maxHoldTTL = maxTTL
		}
	}
}

func WithCache(c Invalidator) ReservationServiceOption {
	return func(s *ReservationService) { s.cache = c }
}

func WithNotifications(p Producer, topic string) ReservationServiceOption {
	return func(s *ReservationService) {
		s.producer = p
		s.notificationsTopic = topic
	}
}

func WithClock(c clock.Clock) ReservationServiceOption {
	return func(s *ReservationService) { s.clock = c }
}

func WithLogger(l *zap.Logger) ReservationServiceOption {
	return func(s *ReservationService) { s.logger = logger.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) ReservationServiceOption {
	return func(s *ReservationService) { s.metrics = m }
}

func NewReservationService(
	slots repository.SlotRepository,
	reservations repository.ReservationRepository,
	auditLog audit.Logger,
	opts ...ReservationServiceOption,
) *ReservationService {
	s := &ReservationService{
		slots:        slots,
		reservations: reservations,
		audit:        auditLog,
		clock:        clock.NewSystem(),
		holdTTL:      DefaultHoldTTL,
		maxHoldTTL:   DefaultMaxTTL,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxHoldTTL < s.holdTTL {
		s.maxHoldTTL = s.holdTTL
	}
	return s
}

// Hold places a lease on a free slot, or on a held slot whose lease already
// elapsed. A busy slot fails with ErrHoldConflict; there is no retry.
func (s *ReservationService) Hold(ctx context.Context, input HoldInput) (res HoldResult, err error) {
	defer func(start time.Time) { s.metrics.Observe("hold", start, err) }(time.Now())

	if err := requireTokens(input.SlotID, input.OwnerToken); err != nil {
		return HoldResult{}, err
	}
	ttl := input.TTL
	switch {
	case ttl < 0:
		return HoldResult{}, fmt.Errorf("%w: ttl must not be negative", domain.ErrValidation)
	case ttl == 0:
		ttl = s.holdTTL
	case ttl > s.maxHoldTTL:
		ttl = s.maxHoldTTL
	}

	now := s.clock.Now()
	held, err := s.slots.Hold(ctx, input.SlotID, input.OwnerToken, now, now.Add(ttl))
	if err != nil {
		return HoldResult{}, fmt.Errorf("hold slot %s: %w", input.SlotID, err)
	}

	s.invalidate(ctx)
	s.audit.Record(ctx, audit.Entry{
		Action:     domain.AuditHoldGranted,
		EntityType: domain.EntitySlot,
		EntityID:   held.ID,
		ActorToken: input.OwnerToken,
		Details: map[string]any{
			"hold_expiry": held.HoldExpiry,
			"ttl_seconds": int(ttl / time.Second),
		},
	})
	return HoldResult{SlotID: held.ID, HoldExpiry: *held.HoldExpiry}, nil
}

// ReleaseHold gives a live hold back before it expires.
func (s *ReservationService) ReleaseHold(ctx context.Context, slotID, ownerToken string) (err error) {
	defer func(start time.Time) { s.metrics.Observe("release", start, err) }(time.Now())

	if err := requireTokens(slotID, ownerToken); err != nil {
		return err
	}
	if _, err := s.slots.ReleaseHold(ctx, slotID, ownerToken, s.clock.Now()); err != nil {
		return fmt.Errorf("release hold on slot %s: %w", slotID, err)
	}

	s.invalidate(ctx)
	s.audit.Record(ctx, audit.Entry{
		Action:     domain.AuditHoldReleased,
		EntityType: domain.EntitySlot,
		EntityID:   slotID,
		ActorToken: ownerToken,
	})
	return nil
}

// Confirm turns the caller's live hold into a reservation. On any failure
// neither the slot nor the reservation table is changed.
func (s *ReservationService) Confirm(ctx context.Context, input ConfirmInput) (res *domain.Reservation, err error) {
	defer func(start time.Time) { s.metrics.Observe("confirm", start, err) }(time.Now())

	if err := requireTokens(input.SlotID, input.OwnerToken); err != nil {
		return nil, err
	}
	if len(input.SubjectDetails) > 0 && !json.Valid(input.SubjectDetails) {
		return nil, fmt.Errorf("%w: subject details must be valid JSON", domain.ErrValidation)
	}

	res = &domain.Reservation{
		ID:             uuid.NewString(),
		SlotID:         input.SlotID,
		SubjectDetails: input.SubjectDetails,
	}
	if err := s.reservations.Confirm(ctx, res, input.OwnerToken, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("confirm slot %s: %w", input.SlotID, err)
	}

	s.invalidate(ctx)
	s.audit.Record(ctx, audit.Entry{
		Action:     domain.AuditReservationConfirmed,
		EntityType: domain.EntityReservation,
		EntityID:   res.ID,
		ActorToken: input.OwnerToken,
		Details: map[string]any{
			"slot_id":         res.SlotID,
			"subject_details": res.SubjectDetails,
		},
	})
	s.notify(ctx, kafka.EventReservationConfirmed, res, input.OwnerToken)
	return res, nil
}

// Cancel frees the reserved slot. Cancelling twice is a no-op.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, actorToken string) (err error) {
	defer func(start time.Time) { s.metrics.Observe("cancel", start, err) }(time.Now())

	if strings.TrimSpace(reservationID) == "" {
		return fmt.Errorf("%w: reservation id is required", domain.ErrValidation)
	}
	res, changed, err := s.reservations.Cancel(ctx, reservationID, actorToken, s.clock.Now())
	if err != nil {
		return fmt.Errorf("cancel reservation %s: %w", reservationID, err)
	}
	if !changed {
		return nil
	}

	s.invalidate(ctx)
	s.audit.Record(ctx, audit.Entry{
		Action:     domain.AuditReservationCancelled,
		EntityType: domain.EntityReservation,
		EntityID:   res.ID,
		ActorToken: actorToken,
		Details:    map[string]any{"slot_id": res.SlotID},
	})
	s.notify(ctx, kafka.EventReservationCancelled, res, actorToken)
	return nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: reservation id is required", domain.ErrValidation)
	}
	return s.reservations.GetByID(ctx, id)
}

func (s *ReservationService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.Error(err))
	}
}

// notify publishes a notice for the notifier worker. Failures are logged only.
func (s *ReservationService) notify(ctx context.Context, eventType string, res *domain.Reservation, actor string) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}
	event := kafka.ReservationEvent{
		Type:           eventType,
		ReservationID:  res.ID,
		SlotID:         res.SlotID,
		ActorToken:     actor,
		SubjectDetails: res.SubjectDetails,
		OccurredAt:     s.clock.Now(),
	}
	if slot, err := s.slots.GetByID(ctx, res.SlotID); err == nil {
		event.ResourceIdentifier = slot.ResourceIdentifier
		event.ServiceTag = slot.ServiceTag
		event.StartTime = slot.StartTime
		event.EndTime = slot.EndTime
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.producer.Publish(pubCtx, s.notificationsTopic, res.ID, event); err != nil {
		s.logger.Warn("failed to publish reservation notice",
			zap.String("type", eventType),
			zap.String("reservation_id", res.ID),
			zap.Error(err))
	}
}

func requireTokens(slotID, owner string) error {
	if strings.TrimSpace(slotID) == "" {
		return fmt.Errorf("%w: slot id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("%w: owner token is required", domain.ErrValidation)
	}
	return nil
}

var _ ReservationUseCase = (*ReservationService)(nil)
