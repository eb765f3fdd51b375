package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/service/booking"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw callback body.
const SignatureHeader = "X-Signature"

type PaymentHandler struct {
	service BookingUseCase
	secret  []byte
	logger  *slog.Logger
}

type callbackRequest struct {
	TxnRef  string `json:"txn_ref"`
	Outcome string `json:"outcome"`
}

type callbackResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message,omitempty"`
	State   string          `json:"state,omitempty"`
	Booking *domain.Booking `json:"booking,omitempty"`
}

// NewPaymentHandler skips signature checks when webhookSecret is empty.
func NewPaymentHandler(service BookingUseCase, webhookSecret string, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, secret: []byte(webhookSecret), logger: logger}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/payments/callback", h.callback)
}

// callback acknowledges every well-formed, authentic notification with 200 so
// the provider stops retrying. The outcome for this service is in the body.
func (h *PaymentHandler) callback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	if !h.verify(body, c.GetHeader(SignatureHeader)) {
		h.logger.Warn("payment callback with bad signature", slog.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, errorResponse{Code: booking.CodeUnauthorized, Message: "invalid signature"})
		return
	}

	var req callbackRequest
	if err := json.Unmarshal(body, &req); err != nil || req.TxnRef == "" {
		badRequest(c, "txn_ref and outcome are required")
		return
	}

	outcome := domain.PaymentOutcome(strings.ToUpper(strings.TrimSpace(req.Outcome)))
	result, err := h.service.ConfirmBooking(c.Request.Context(), req.TxnRef, outcome)
	if err != nil {
		e := booking.AsError(err)
		h.logger.Info("payment callback not applied",
			slog.String("txn_ref", req.TxnRef),
			slog.String("outcome", string(outcome)),
			slog.String("code", e.Code))
		c.JSON(http.StatusOK, callbackResponse{Code: e.Code, Message: e.Message})
		return
	}

	resp := callbackResponse{Code: "OK", State: string(result.Attempt.State), Booking: result.Booking}
	if result.Duplicate {
		resp.Code = "DUPLICATE"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) verify(body []byte, signature string) bool {
	if len(h.secret) == 0 {
		return true
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(h.secret, body))
}

// Sign returns the HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
