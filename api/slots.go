package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/Domenick1991/slotbooking/internal/service/catalog"
	"github.com/Domenick1991/slotbooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

type SlotHandler struct {
	catalog      catalog.CatalogUseCase
	reservations reservation.ReservationUseCase
}

type listSlotsQuery struct {
	ResourceIdentifier string    `form:"resource_identifier"`
	ServiceTag         string    `form:"service_tag"`
	From               time.Time `form:"from"`
	To                 time.Time `form:"to"`
}

type generateSlotsRequest struct {
	ResourceClass      string    `json:"resource_class"`
	ResourceIdentifier string    `json:"resource_identifier"`
	ServiceTag         string    `json:"service_tag"`
	WindowStart        time.Time `json:"window_start"`
	WindowEnd          time.Time `json:"window_end"`
	SlotMinutes        int       `json:"slot_minutes"`
}

type holdRequest struct {
	OwnerToken string `json:"owner_token"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type releaseRequest struct {
	OwnerToken string `json:"owner_token"`
}

type confirmRequest struct {
	OwnerToken     string          `json:"owner_token"`
	SubjectDetails json.RawMessage `json:"subject_details"`
}

func NewSlotHandler(catalog catalog.CatalogUseCase, reservations reservation.ReservationUseCase) *SlotHandler {
	return &SlotHandler{catalog: catalog, reservations: reservations}
}

func (h *SlotHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("/generate", h.generate)
	router.POST("/:id/hold", h.hold)
	router.DELETE("/:id/hold", h.release)
	router.POST("/:id/confirm", h.confirm)
}

func (h *SlotHandler) list(c *gin.Context) {
	var q listSlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	slots, err := h.catalog.ListAvailable(c.Request.Context(), domain.SlotFilter{
		ResourceIdentifier: q.ResourceIdentifier,
		ServiceTag:         q.ServiceTag,
		From:               q.From,
		To:                 q.To,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

func (h *SlotHandler) get(c *gin.Context) {
	slot, err := h.catalog.GetSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSlotResponse(*slot))
}

func (h *SlotHandler) generate(c *gin.Context) {
	var req generateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.catalog.GenerateSlots(c.Request.Context(), catalog.GenerateSlotsInput{
		ResourceClass:      domain.ResourceClass(req.ResourceClass),
		ResourceIdentifier: req.ResourceIdentifier,
		ServiceTag:         req.ServiceTag,
		WindowStart:        req.WindowStart,
		WindowEnd:          req.WindowEnd,
		SlotDuration:       time.Duration(req.SlotMinutes) * time.Minute,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if res.Created > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

func (h *SlotHandler) hold(c *gin.Context) {
	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.reservations.Hold(c.Request.Context(), reservation.HoldInput{
		SlotID:     c.Param("id"),
		OwnerToken: req.OwnerToken,
		TTL:        time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SlotHandler) release(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.reservations.ReleaseHold(c.Request.Context(), c.Param("id"), req.OwnerToken); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SlotHandler) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.reservations.Confirm(c.Request.Context(), reservation.ConfirmInput{
		SlotID:         c.Param("id"),
		OwnerToken:     req.OwnerToken,
		SubjectDetails: req.SubjectDetails,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(*res))
}
