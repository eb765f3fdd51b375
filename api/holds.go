package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openride/seatreserve/internal/auth"
	"github.com/openride/seatreserve/internal/domain"
)

type HoldHandler struct {
	service BookingUseCase
}

func NewHoldHandler(service BookingUseCase) *HoldHandler {
	return &HoldHandler{service: service}
}

func (h *HoldHandler) Register(router *gin.RouterGroup, authn gin.HandlerFunc) {
	rider := router.Group("/holds", authn, auth.RequireRole(domain.RoleRider))
	rider.GET("/:id", h.get)
	rider.DELETE("/:id", h.cancel)
	rider.POST("/:id/payments", h.pay)
}

func (h *HoldHandler) get(c *gin.Context) {
	hold, err := h.service.GetHold(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hold)
}

func (h *HoldHandler) cancel(c *gin.Context) {
	hold, err := h.service.CancelHold(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hold)
}

func (h *HoldHandler) pay(c *gin.Context) {
	params, err := h.service.InitiatePayment(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, params)
}
