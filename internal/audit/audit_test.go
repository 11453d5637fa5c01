package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/slotbooking/internal/clock"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/Domenick1991/slotbooking/internal/kafka"
	"github.com/Domenick1991/slotbooking/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, e domain.AuditEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByEntity(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, entityID, limit)
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var now = time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)

func TestRecorder_Record(t *testing.T) {
	repo := &MockAuditRepository{}
	producer := &MockProducer{}
	repo.On("Append", mock.Anything, mock.MatchedBy(func(e domain.AuditEntry) bool {
		return e.Action == domain.AuditHoldGranted &&
			e.EntityID == "slot-1" &&
			e.ActorToken == "alice" &&
			e.Timestamp.Equal(now) &&
			e.ID != "" &&
			string(e.Details) == `{"ttl_seconds":300}`
	})).Return(nil).Once()
	producer.On("Publish", mock.Anything, "audit", "slot-1", mock.AnythingOfType("kafka.AuditEvent")).Return(nil).Once()

	r := NewRecorder(repo, WithClock(clock.NewFixed(now)), WithProducer(producer, "audit"))
	r.Record(context.Background(), Entry{
		Action:     domain.AuditHoldGranted,
		EntityType: domain.EntitySlot,
		EntityID:   "slot-1",
		ActorToken: "alice",
		Details:    map[string]int{"ttl_seconds": 300},
	})
	r.Close()

	repo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestRecorder_RecordSurvivesCancelledContext(t *testing.T) {
	repo := &MockAuditRepository{}
	repo.On("Append", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewRecorder(repo).Record(ctx, Entry{Action: domain.AuditHoldsExpired, EntityType: domain.EntitySweep, EntityID: "sweep"})
	repo.AssertExpectations(t)
}

func TestRecorder_FailuresAreSwallowedAndCounted(t *testing.T) {
	repo := &MockAuditRepository{}
	producer := &MockProducer{}
	repo.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	producer.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	m := metrics.New(prometheus.NewRegistry())
	r := NewRecorder(repo, WithMetrics(m), WithProducer(producer, "audit"))
	r.Record(context.Background(), Entry{Action: domain.AuditReservationCancelled, EntityType: domain.EntityReservation, EntityID: "r-1"})
	r.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditFailures.WithLabelValues("store")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditFailures.WithLabelValues("stream")))
}

func TestRecorder_RawDetailsPassThrough(t *testing.T) {
	repo := &MockAuditRepository{}
	repo.On("Append", mock.Anything, mock.MatchedBy(func(e domain.AuditEntry) bool {
		return string(e.Details) == `{"a":1}`
	})).Return(nil).Once()

	NewRecorder(repo).Record(context.Background(), Entry{Action: domain.AuditSlotsGenerated, EntityID: "chair-1", Details: json.RawMessage(`{"a":1}`)})
	repo.AssertExpectations(t)
}

func TestRecorder_List(t *testing.T) {
	repo := &MockAuditRepository{}
	want := []domain.AuditEntry{{ID: "a-1", EntityID: "slot-1"}}
	repo.On("ListByEntity", mock.Anything, "slot-1", DefaultListLimit).Return(want, nil).Once()
	repo.On("ListByEntity", mock.Anything, "slot-1", MaxListLimit).Return(want, nil).Once()

	r := NewRecorder(repo)
	got, err := r.List(context.Background(), "slot-1", 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = r.List(context.Background(), "slot-1", 5000)
	require.NoError(t, err)

	_, err = r.List(context.Background(), "", 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
	repo.AssertExpectations(t)
}

func TestToEvent(t *testing.T) {
	e := toEvent(domain.AuditEntry{ID: "a-1", Action: domain.AuditHoldReleased, EntityType: domain.EntitySlot, EntityID: "slot-1", Timestamp: now})
	assert.Equal(t, kafka.AuditEvent{ID: "a-1", Action: "hold_released", EntityType: "slot", EntityID: "slot-1", Timestamp: now}, e)
}
