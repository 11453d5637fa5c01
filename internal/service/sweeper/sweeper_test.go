package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/slotbooking/internal/audit"
	"github.com/Domenick1991/slotbooking/internal/clock"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/Domenick1991/slotbooking/internal/metrics"
	"github.com/Domenick1991/slotbooking/internal/repository"
	"github.com/Domenick1991/slotbooking/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSlotRepository struct {
	mock.Mock
	repository.SlotRepository
}

func (m *MockSlotRepository) ReleaseExpiredHolds(ctx context.Context, now time.Time) ([]domain.Slot, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Slot), args.Error(1)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) Record(ctx context.Context, e audit.Entry) {
	m.Called(ctx, e)
}

func (m *MockAudit) List(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, entityID, limit)
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

type countingCache struct {
	calls atomic.Int32
}

func (c *countingCache) Invalidate(context.Context) error {
	c.calls.Add(1)
	return nil
}

var now = time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)

func TestSweeper_Sweep(t *testing.T) {
	repo := &MockSlotRepository{}
	auditLog := &MockAudit{}
	cache := &countingCache{}
	m := metrics.New(prometheus.NewRegistry())

	repo.On("ReleaseExpiredHolds", mock.Anything, now).Return([]domain.Slot{{ID: "s-1"}, {ID: "s-2"}}, nil).Once()
	auditLog.On("Record", mock.Anything, mock.MatchedBy(func(e audit.Entry) bool {
		d := e.Details.(map[string]any)
		return e.Action == domain.AuditHoldsExpired && e.EntityID == EntityID && d["count"] == 2
	})).Once()

	s := New(repo, auditLog, WithCache(cache), WithMetrics(m))
	n, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(1), cache.calls.Load())
	assert.Equal(t, 2.0, promtest.ToFloat64(m.SweptTotal))
	auditLog.AssertExpectations(t)
}

func TestSweeper_SweepNothingExpired(t *testing.T) {
	repo := &MockSlotRepository{}
	auditLog := &MockAudit{}
	cache := &countingCache{}
	repo.On("ReleaseExpiredHolds", mock.Anything, now).Return([]domain.Slot(nil), nil)

	n, err := New(repo, auditLog, WithCache(cache)).Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, cache.calls.Load())
	auditLog.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestSweeper_SweepStoreError(t *testing.T) {
	repo := &MockSlotRepository{}
	repo.On("ReleaseExpiredHolds", mock.Anything, now).Return([]domain.Slot(nil), errors.New("database is locked"))

	_, err := New(repo, &MockAudit{}).Sweep(context.Background(), now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestSweeper_SweepNowUsesClock(t *testing.T) {
	repo := &MockSlotRepository{}
	repo.On("ReleaseExpiredHolds", mock.Anything, now).Return([]domain.Slot(nil), nil).Once()

	n, err := New(repo, &MockAudit{}, WithClock(clock.NewFixed(now))).SweepNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	repo.AssertExpectations(t)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	repo := &MockSlotRepository{}
	swept := make(chan struct{}, 8)
	repo.On("ReleaseExpiredHolds", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	}).Return([]domain.Slot(nil), nil)

	s := New(repo, &MockAudit{}, WithInterval(10*time.Millisecond), WithClock(clock.NewFixed(now)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-swept:
		case <-time.After(2 * time.Second):
			t.Fatal("sweeper did not run")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSweeper_IdempotentOnStore(t *testing.T) {
	store := repository.NewSQLiteStore(testutil.NewTestSQLite(t))
	ctx := context.Background()
	slot := domain.Slot{
		ID:                 "s-1",
		ResourceClass:      domain.ResourceClassParking,
		ResourceIdentifier: "P-12",
		StartTime:          now.Add(time.Hour),
		EndTime:            now.Add(2 * time.Hour),
		CreatedAt:          now,
	}
	_, err := store.Slots.InsertMany(ctx, []domain.Slot{slot})
	require.NoError(t, err)
	_, err = store.Slots.Hold(ctx, slot.ID, "sess-1", now, now.Add(5*time.Minute))
	require.NoError(t, err)

	s := New(store.Slots, audit.NewRecorder(store.Audit, audit.WithClock(clock.NewFixed(now))))

	n, err := s.Sweep(ctx, now.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Sweep(ctx, now.Add(6*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Sweep(ctx, now.Add(6*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := store.Slots.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusFree, got.Status)
	assert.Empty(t, got.HoldOwner)
	assert.Nil(t, got.HoldExpiry)

	trail, err := store.Audit.ListByEntity(ctx, EntityID, 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, domain.AuditHoldsExpired, trail[0].Action)
}
