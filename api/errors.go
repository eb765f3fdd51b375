package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openride/seatreserve/internal/auth"
	"github.com/openride/seatreserve/internal/service/booking"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, err error) {
	e := booking.AsError(err)
	if e.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(e.Status, errorResponse{Code: e.Code, Message: e.Message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Code: booking.CodeValidation, Message: message})
}

// caller is only reached behind auth.Authenticate.
func caller(c *gin.Context) auth.Principal {
	p, _ := auth.FromContext(c.Request.Context())
	return p
}
