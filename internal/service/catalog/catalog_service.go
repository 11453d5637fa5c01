package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/slotbooking/internal/audit"
	"github.com/Domenick1991/slotbooking/internal/clock"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/Domenick1991/slotbooking/internal/logger"
	"github.com/Domenick1991/slotbooking/internal/metrics"
	"github.com/Domenick1991/slotbooking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CatalogUseCase interface {
	GenerateSlots(ctx context.Context, input GenerateSlotsInput) (GenerateResult, error)
	ListAvailable(ctx context.Context, filter domain.SlotFilter) ([]domain.Slot, error)
	GetSlot(ctx context.Context, id string) (*domain.Slot, error)
}

// AvailabilityCache is implemented by cache.RedisCache.
type AvailabilityCache interface {
	Generation(ctx context.Context) (int64, error)
	GetSlots(ctx context.Context, gen int64, filter domain.SlotFilter) ([]domain.Slot, bool, error)
	SetSlots(ctx context.Context, gen int64, filter domain.SlotFilter, slots []domain.Slot) error
	Invalidate(ctx context.Context) error
}

type GenerateSlotsInput struct {
	ResourceClass      domain.ResourceClass `json:"resource_class"`
	ResourceIdentifier string               `json:"resource_identifier"`
	ServiceTag         string               `json:"service_tag"`
	WindowStart        time.Time            `json:"window_start"`
	WindowEnd          time.Time            `json:"window_end"`
	SlotDuration       time.Duration        `json:"-"`
}

type GenerateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

var slotNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:slotbooking:slot"))

// SlotID is stable for a resource and start instant, which makes generation
// idempotent.
func SlotID(resourceIdentifier string, start time.Time) string {
	name := resourceIdentifier + "|" + start.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(slotNamespace, []byte(name)).String()
}

type CatalogService struct {
	slots    repository.SlotRepository
	audit    audit.Logger
	schedule Schedule
	cache    AvailabilityCache
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

type CatalogServiceOption func(*CatalogService)

func WithCache(c AvailabilityCache) CatalogServiceOption {
	return func(s *CatalogService) { s.cache = c }
}

func WithClock(c clock.Clock) CatalogServiceOption {
	return func(s *CatalogService) { s.clock = c }
}

func WithLogger(l *zap.Logger) CatalogServiceOption {
	return func(s *CatalogService) { s.logger = logger.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) CatalogServiceOption {
	return func(s *CatalogService) { s.metrics = m }
}

func NewCatalogService(slots repository.SlotRepository, auditLog audit.Logger, schedule Schedule, opts ...CatalogServiceOption) *CatalogService {
	s := &CatalogService{
		slots:    slots,
		audit:    auditLog,
		schedule: schedule,
		clock:    clock.NewSystem(),
		logger:   zap.NewNop(),
	}
	if s.schedule.Location == nil {
		s.schedule.Location = time.UTC
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CatalogService) GenerateSlots(ctx context.Context, input GenerateSlotsInput) (res GenerateResult, err error) {
	defer func(start time.Time) { s.metrics.Observe("generate", start, err) }(time.Now())

	hours, err := s.validateGenerate(input)
	if err != nil {
		return GenerateResult{}, err
	}

	now := s.clock.Now()
	var candidates []domain.Slot
	for _, w := range hours.windows(s.schedule.Location, input.WindowStart, input.WindowEnd) {
		// Slots are laid on a grid anchored at opening time so overlapping
		// windows produce the same slots.
		for start := w[0]; !start.Add(input.SlotDuration).After(w[1]); start = start.Add(input.SlotDuration) {
			end := start.Add(input.SlotDuration)
			if start.Before(input.WindowStart) || end.After(input.WindowEnd) {
				continue
			}
			candidates = append(candidates, domain.Slot{
				ID:                 SlotID(input.ResourceIdentifier, start),
				ResourceClass:      input.ResourceClass,
				ResourceIdentifier: input.ResourceIdentifier,
				ServiceTag:         input.ServiceTag,
				StartTime:          start.UTC(),
				EndTime:            end.UTC(),
				Status:             domain.SlotStatusFree,
				CreatedAt:          now,
				UpdatedAt:          now,
			})
		}
	}

	created, err := s.slots.InsertMany(ctx, candidates)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("insert slots for %s: %w", input.ResourceIdentifier, err)
	}
	res = GenerateResult{Created: created, Skipped: len(candidates) - created}

	s.metrics.Generated(created)
	if created > 0 {
		s.invalidate(ctx)
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     domain.AuditSlotsGenerated,
		EntityType: domain.EntityResource,
		EntityID:   input.ResourceIdentifier,
		Details: map[string]any{
			"resource_class": input.ResourceClass,
			"service_tag":    input.ServiceTag,
			"window_start":   input.WindowStart.UTC(),
			"window_end":     input.WindowEnd.UTC(),
			"slot_minutes":   int(input.SlotDuration / time.Minute),
			"created":        res.Created,
			"skipped":        res.Skipped,
		},
	})
	s.logger.Info("slots generated",
		zap.String("resource", input.ResourceIdentifier),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func (s *CatalogService) validateGenerate(input GenerateSlotsInput) (Hours, error) {
	if input.ResourceClass == "" {
		return Hours{}, fmt.Errorf("%w: resource class is required", domain.ErrValidation)
	}
	if !input.ResourceClass.Valid() {
		return Hours{}, fmt.Errorf("%w: unknown resource class %q", domain.ErrValidation, input.ResourceClass)
	}
	if strings.TrimSpace(input.ResourceIdentifier) == "" {
		return Hours{}, fmt.Errorf("%w: resource identifier is required", domain.ErrValidation)
	}
	if input.WindowStart.IsZero() || input.WindowEnd.IsZero() {
		return Hours{}, fmt.Errorf("%w: window start and end are required", domain.ErrValidation)
	}
	if !input.WindowEnd.After(input.WindowStart) {
		return Hours{}, fmt.Errorf("%w: window end must be after window start", domain.ErrValidation)
	}
	if input.SlotDuration <= 0 {
		return Hours{}, fmt.Errorf("%w: slot duration must be positive", domain.ErrValidation)
	}
	if s.schedule.MaxWindow > 0 && input.WindowEnd.Sub(input.WindowStart) > s.schedule.MaxWindow {
		return Hours{}, fmt.Errorf("%w: window exceeds %s", domain.ErrValidation, s.schedule.MaxWindow)
	}
	hours, ok := s.schedule.Hours[input.ResourceClass]
	if !ok {
		return Hours{}, fmt.Errorf("%w: no business hours for %s", domain.ErrValidation, input.ResourceClass)
	}
	return hours, nil
}

// ListAvailable returns free slots and held slots whose lease already elapsed,
// ordered by start time. Both are presented as free.
func (s *CatalogService) ListAvailable(ctx context.Context, filter domain.SlotFilter) (slots []domain.Slot, err error) {
	defer func(start time.Time) { s.metrics.Observe("list", start, err) }(time.Now())

	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.To.After(filter.From) {
		return nil, fmt.Errorf("%w: to must be after from", domain.ErrValidation)
	}

	var gen int64
	cached := false
	if s.cache != nil {
		if g, err := s.cache.Generation(ctx); err == nil {
			gen, cached = g, true
			if hit, ok, err := s.cache.GetSlots(ctx, gen, filter); err == nil && ok {
				return hit, nil
			} else if err != nil {
				s.logger.Debug("availability cache read failed", zap.Error(err))
			}
		} else {
			s.logger.Debug("availability cache unavailable", zap.Error(err))
		}
	}

	now := s.clock.Now()
	slots, err = s.slots.ListAvailable(ctx, filter, now)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	for i := range slots {
		if !slots[i].HoldLive(now) {
			slots[i].Status = domain.SlotStatusFree
			slots[i].HoldOwner = ""
			slots[i].HoldExpiry = nil
		}
	}

	if cached {
		if err := s.cache.SetSlots(ctx, gen, filter, slots); err != nil {
			s.logger.Debug("availability cache write failed", zap.Error(err))
		}
	}
	return slots, nil
}

func (s *CatalogService) GetSlot(ctx context.Context, id string) (*domain.Slot, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: slot id is required", domain.ErrValidation)
	}
	return s.slots.GetByID(ctx, id)
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.Error(err))
	}
}

var _ CatalogUseCase = (*CatalogService)(nil)
