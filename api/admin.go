package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Domenick1991/slotbooking/internal/audit"
	"github.com/gin-gonic/gin"
)

// Sweeper is implemented by sweeper.Sweeper.
type Sweeper interface {
	SweepNow(ctx context.Context) (int, error)
}

// AdminHandler serves operator endpoints: an on-demand expiry sweep and the
// audit trail of an entity.
type AdminHandler struct {
	sweeper Sweeper
	audit   audit.Logger
}

func NewAdminHandler(sweeper Sweeper, auditLog audit.Logger) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, audit: auditLog}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.POST("/sweep", h.sweep)
	router.GET("/audit/:entity_id", h.auditTrail)
}

func (h *AdminHandler) sweep(c *gin.Context) {
	n, err := h.sweeper.SweepNow(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": n})
}

func (h *AdminHandler) auditTrail(c *gin.Context) {
	limit := audit.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.audit.List(c.Request.Context(), c.Param("entity_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAuditEntryResponse(e))
	}
	c.JSON(http.StatusOK, out)
}
