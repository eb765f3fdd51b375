package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openride/seatreserve/internal/ticket"
)

type BookingHandler struct {
	service BookingUseCase
}

func NewBookingHandler(service BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup, authn gin.HandlerFunc) {
	group := router.Group("/bookings", authn)
	group.GET("/mine", h.mine)
	group.GET("/:id", h.get)
	group.DELETE("/:id", h.cancel)
	group.GET("/:id/ticket", h.ticket)
}

func (h *BookingHandler) mine(c *gin.Context) {
	bookings, err := h.service.MyBookings(c.Request.Context(), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ticket answers with JSON unless format=pdf is asked for.
func (h *BookingHandler) ticket(c *gin.Context) {
	bundle, err := h.service.Ticket(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("format") != "pdf" {
		c.JSON(http.StatusOK, bundle.Ticket)
		return
	}

	var buf bytes.Buffer
	if err := ticket.RenderPDF(&buf, bundle.Ticket, bundle.Route, bundle.Booking); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="ticket-`+bundle.Booking.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
