package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openride/seatreserve/internal/auth"
	"github.com/openride/seatreserve/internal/domain"
)

type RatingHandler struct {
	service BookingUseCase
}

type rateRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}

func NewRatingHandler(service BookingUseCase) *RatingHandler {
	return &RatingHandler{service: service}
}

func (h *RatingHandler) Register(router *gin.RouterGroup, authn gin.HandlerFunc) {
	router.GET("/drivers/:id/ratings", h.forDriver)

	rider := router.Group("/ratings", authn, auth.RequireRole(domain.RoleRider))
	rider.POST("", h.rate)
}

func (h *RatingHandler) rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rating, err := h.service.RateBooking(c.Request.Context(), req.BookingID, caller(c).UserID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rating)
}

func (h *RatingHandler) forDriver(c *gin.Context) {
	ratings, err := h.service.DriverRatings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratings)
}
