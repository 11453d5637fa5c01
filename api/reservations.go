package api

import (
	"net/http"

	"github.com/Domenick1991/slotbooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	service reservation.ReservationUseCase
}

type cancelRequest struct {
	ActorToken string `json:"actor_token"`
}

func NewReservationHandler(service reservation.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id", h.get)
	router.POST("/:id/cancel", h.cancel)
}

func (h *ReservationHandler) get(c *gin.Context) {
	res, err := h.service.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(*res))
}

// cancel answers with the reservation as stored afterwards, so a repeated
// cancel looks the same as the first one.
func (h *ReservationHandler) cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.service.Cancel(ctx, id, req.ActorToken); err != nil {
		writeError(c, err)
		return
	}
	res, err := h.service.GetReservation(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(*res))
}
