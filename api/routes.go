package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openride/seatreserve/internal/auth"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/service/catalog"
)

type RouteHandler struct {
	service BookingUseCase
}

type holdRequest struct {
	Seats int `json:"seats"`
}

type statusRequest struct {
	Status domain.RouteStatus `json:"status"`
}

func NewRouteHandler(service BookingUseCase) *RouteHandler {
	return &RouteHandler{service: service}
}

func (h *RouteHandler) Register(router *gin.RouterGroup, authn gin.HandlerFunc) {
	router.GET("/routes/search", h.search)
	router.GET("/routes/:id", h.get)

	driver := router.Group("", authn, auth.RequireRole(domain.RoleDriver))
	driver.POST("/routes", h.create)
	driver.GET("/routes/mine", h.mine)
	driver.PATCH("/routes/:id", h.update)
	driver.DELETE("/routes/:id", h.delete)
	driver.PATCH("/routes/:id/status", h.setStatus)

	rider := router.Group("", authn, auth.RequireRole(domain.RoleRider))
	rider.POST("/routes/:id/holds", h.hold)
}

// search accepts the departure window either as window_start/window_end or as
// window=<start>/<end>, both RFC 3339.
func (h *RouteHandler) search(c *gin.Context) {
	q := catalog.Query{Origin: c.Query("from"), Destination: c.Query("to")}

	start, end := c.Query("window_start"), c.Query("window_end")
	if w := c.Query("window"); w != "" {
		var ok bool
		start, end, ok = strings.Cut(w, "/")
		if !ok {
			badRequest(c, "window must be <start>/<end>")
			return
		}
	}
	var err error
	if q.From, err = parseTime(start); err != nil {
		badRequest(c, "invalid window start: "+err.Error())
		return
	}
	if q.To, err = parseTime(end); err != nil {
		badRequest(c, "invalid window end: "+err.Error())
		return
	}

	routes, err := h.service.SearchRoutes(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

func (h *RouteHandler) get(c *gin.Context) {
	route, err := h.service.GetRoute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

func (h *RouteHandler) create(c *gin.Context) {
	var req catalog.CreateRouteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.DriverID = caller(c).UserID

	route, err := h.service.CreateRoute(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

func (h *RouteHandler) mine(c *gin.Context) {
	routes, err := h.service.MyRoutes(c.Request.Context(), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

func (h *RouteHandler) setStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	route, err := h.service.SetRouteStatus(c.Request.Context(), c.Param("id"), caller(c).UserID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

func (h *RouteHandler) update(c *gin.Context) {
	var req catalog.UpdateRouteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	route, err := h.service.UpdateRoute(c.Request.Context(), c.Param("id"), caller(c).UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

func (h *RouteHandler) delete(c *gin.Context) {
	if err := h.service.DeleteRoute(c.Request.Context(), c.Param("id"), caller(c).UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RouteHandler) hold(c *gin.Context) {
	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	hold, err := h.service.RequestHold(c.Request.Context(), c.Param("id"), caller(c).UserID, req.Seats)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hold)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
