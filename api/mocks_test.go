package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/Domenick1991/slotbooking/internal/audit"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/Domenick1991/slotbooking/internal/service/catalog"
	"github.com/Domenick1991/slotbooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

// Mock структуры
type MockCatalogUseCase struct {
	mock.Mock
}

func (m *MockCatalogUseCase) GenerateSlots(ctx context.Context, input catalog.GenerateSlotsInput) (catalog.GenerateResult, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(catalog.GenerateResult), args.Error(1)
}

func (m *MockCatalogUseCase) ListAvailable(ctx context.Context, filter domain.SlotFilter) ([]domain.Slot, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Slot), args.Error(1)
}

func (m *MockCatalogUseCase) GetSlot(ctx context.Context, id string) (*domain.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Slot), args.Error(1)
}

type MockReservationUseCase struct {
	mock.Mock
}

func (m *MockReservationUseCase) Hold(ctx context.Context, input reservation.HoldInput) (reservation.HoldResult, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(reservation.HoldResult), args.Error(1)
}

func (m *MockReservationUseCase) ReleaseHold(ctx context.Context, slotID, ownerToken string) error {
	args := m.Called(ctx, slotID, ownerToken)
	return args.Error(0)
}

func (m *MockReservationUseCase) Confirm(ctx context.Context, input reservation.ConfirmInput) (*domain.Reservation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationUseCase) Cancel(ctx context.Context, reservationID, actorToken string) error {
	args := m.Called(ctx, reservationID, actorToken)
	return args.Error(0)
}

func (m *MockReservationUseCase) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepNow(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) Record(ctx context.Context, e audit.Entry) {
	m.Called(ctx, e)
}

func (m *MockAuditLogger) List(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, entityID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

type registrar interface {
	Register(router *gin.RouterGroup)
}

func newTestRouter(prefix string, h registrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r.Group(prefix))
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
