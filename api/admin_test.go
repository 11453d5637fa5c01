package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Domenick1991/slotbooking/internal/audit"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminHandler_sweep(t *testing.T) {
	sweeper := &MockSweeper{}
	r := newTestRouter("/v1", NewAdminHandler(sweeper, &MockAuditLogger{}))
	sweeper.On("SweepNow", mock.Anything).Return(3, nil).Once()
	sweeper.On("SweepNow", mock.Anything).Return(0, errors.New("database is locked")).Once()

	w := serve(r, http.MethodPost, "/v1/sweep", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"released":3}`, w.Body.String())

	w = serve(r, http.MethodPost, "/v1/sweep", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminHandler_auditTrail(t *testing.T) {
	auditLog := &MockAuditLogger{}
	r := newTestRouter("/v1", NewAdminHandler(&MockSweeper{}, auditLog))

	entries := []domain.AuditEntry{
		{
			ID:         "a1",
			Action:     domain.AuditHoldGranted,
			EntityType: domain.EntitySlot,
			EntityID:   "slot-1",
			ActorToken: "alice",
			Details:    json.RawMessage(`{"ttl_seconds":300}`),
			Timestamp:  time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		},
	}
	auditLog.On("List", mock.Anything, "slot-1", audit.DefaultListLimit).Return(entries, nil)
	auditLog.On("List", mock.Anything, "slot-1", 5).Return(entries, nil)

	w := serve(r, http.MethodGet, "/v1/audit/slot-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []auditEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "hold_granted", got[0].Action)
	assert.JSONEq(t, `{"ttl_seconds":300}`, string(got[0].Details))

	w = serve(r, http.MethodGet, "/v1/audit/slot-1?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/v1/audit/slot-1?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	auditLog.AssertExpectations(t)
}
