package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/auth"
	"github.com/openride/seatreserve/internal/clock"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/repository"
	"github.com/openride/seatreserve/internal/service/booking"
	"github.com/openride/seatreserve/internal/service/catalog"
	"github.com/openride/seatreserve/internal/service/payment"
	"github.com/openride/seatreserve/internal/ticket"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) SearchRoutes(ctx context.Context, q catalog.Query) ([]booking.RouteView, error) {
	args := m.Called(ctx, q)
	routes, _ := args.Get(0).([]booking.RouteView)
	return routes, args.Error(1)
}

func (m *MockBookingUseCase) CreateRoute(ctx context.Context, input catalog.CreateRouteInput) (*booking.RouteView, error) {
	args := m.Called(ctx, input)
	route, _ := args.Get(0).(*booking.RouteView)
	return route, args.Error(1)
}

func (m *MockBookingUseCase) GetRoute(ctx context.Context, routeID string) (*booking.RouteView, error) {
	args := m.Called(ctx, routeID)
	route, _ := args.Get(0).(*booking.RouteView)
	return route, args.Error(1)
}

func (m *MockBookingUseCase) MyRoutes(ctx context.Context, driverID string) ([]booking.RouteView, error) {
	args := m.Called(ctx, driverID)
	routes, _ := args.Get(0).([]booking.RouteView)
	return routes, args.Error(1)
}

func (m *MockBookingUseCase) SetRouteStatus(ctx context.Context, routeID, driverID string, status domain.RouteStatus) (*booking.RouteView, error) {
	args := m.Called(ctx, routeID, driverID, status)
	route, _ := args.Get(0).(*booking.RouteView)
	return route, args.Error(1)
}

func (m *MockBookingUseCase) RequestHold(ctx context.Context, routeID, riderID string, seats int) (*domain.SeatHold, error) {
	args := m.Called(ctx, routeID, riderID, seats)
	hold, _ := args.Get(0).(*domain.SeatHold)
	return hold, args.Error(1)
}

func (m *MockBookingUseCase) GetHold(ctx context.Context, holdID, riderID string) (*domain.SeatHold, error) {
	args := m.Called(ctx, holdID, riderID)
	hold, _ := args.Get(0).(*domain.SeatHold)
	return hold, args.Error(1)
}

func (m *MockBookingUseCase) CancelHold(ctx context.Context, holdID, riderID string) (*domain.SeatHold, error) {
	args := m.Called(ctx, holdID, riderID)
	hold, _ := args.Get(0).(*domain.SeatHold)
	return hold, args.Error(1)
}

func (m *MockBookingUseCase) InitiatePayment(ctx context.Context, holdID, riderID string) (*payment.Params, error) {
	args := m.Called(ctx, holdID, riderID)
	params, _ := args.Get(0).(*payment.Params)
	return params, args.Error(1)
}

func (m *MockBookingUseCase) ConfirmBooking(ctx context.Context, txnRef string, outcome domain.PaymentOutcome) (*payment.CallbackResult, error) {
	args := m.Called(ctx, txnRef, outcome)
	result, _ := args.Get(0).(*payment.CallbackResult)
	return result, args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, userID)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *MockBookingUseCase) MyBookings(ctx context.Context, riderID string) ([]domain.Booking, error) {
	args := m.Called(ctx, riderID)
	bookings, _ := args.Get(0).([]domain.Booking)
	return bookings, args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, bookingID, riderID string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, riderID)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *MockBookingUseCase) Ticket(ctx context.Context, bookingID, riderID string) (*booking.TicketBundle, error) {
	args := m.Called(ctx, bookingID, riderID)
	bundle, _ := args.Get(0).(*booking.TicketBundle)
	return bundle, args.Error(1)
}

func (m *MockBookingUseCase) UpdateRoute(ctx context.Context, routeID, driverID string, input catalog.UpdateRouteInput) (*booking.RouteView, error) {
	args := m.Called(ctx, routeID, driverID, input)
	route, _ := args.Get(0).(*booking.RouteView)
	return route, args.Error(1)
}

func (m *MockBookingUseCase) DeleteRoute(ctx context.Context, routeID, driverID string) error {
	return m.Called(ctx, routeID, driverID).Error(0)
}

func (m *MockBookingUseCase) RateBooking(ctx context.Context, bookingID, riderID string, score int, comment string) (*domain.Rating, error) {
	args := m.Called(ctx, bookingID, riderID, score, comment)
	rating, _ := args.Get(0).(*domain.Rating)
	return rating, args.Error(1)
}

func (m *MockBookingUseCase) DriverRatings(ctx context.Context, driverID string) ([]domain.Rating, error) {
	args := m.Called(ctx, driverID)
	ratings, _ := args.Get(0).([]domain.Rating)
	return ratings, args.Error(1)
}

const webhookSecret = "hook-secret"

type harness struct {
	router  *gin.Engine
	service *MockBookingUseCase
	auth    *auth.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := auth.NewService(repository.NewMemoryStore().Users,
		config.AuthConfig{JWTSecret: "test", TokenTTLMinutes: 60}, clock.Real(), logger)
	svc := new(MockBookingUseCase)

	router := gin.New()
	v1 := router.Group("/api/v1")
	authn := authSvc.Authenticate()
	NewRouteHandler(svc).Register(v1, authn)
	NewHoldHandler(svc).Register(v1, authn)
	NewBookingHandler(svc).Register(v1, authn)
	NewRatingHandler(svc).Register(v1, authn)
	NewPaymentHandler(svc, webhookSecret, logger).Register(v1)
	return &harness{router: router, service: svc, auth: authSvc}
}

func (h *harness) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	token, err := h.auth.IssueToken(&domain.User{ID: userID, Email: userID + "@test.com", Role: role})
	require.NoError(t, err)
	return token
}

func (h *harness) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRouteHandler_search(t *testing.T) {
	h := newHarness(t)
	from := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	views := []booking.RouteView{{Route: domain.Route{ID: "r1", Origin: "Lagos", Destination: "Ibadan"}, AvailableSeats: 2}}

	h.service.On("SearchRoutes", mock.Anything, catalog.Query{Origin: "Lagos", Destination: "Ibadan", From: from, To: to}).
		Return(views, nil).Twice()

	w := h.do(httptest.NewRequest(http.MethodGet,
		"/api/v1/routes/search?from=Lagos&to=Ibadan&window_start=2026-05-05T00:00:00Z&window_end=2026-05-06T00:00:00Z", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []booking.RouteView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].AvailableSeats)

	w = h.do(httptest.NewRequest(http.MethodGet,
		"/api/v1/routes/search?from=Lagos&to=Ibadan&window=2026-05-05T00:00:00Z/2026-05-06T00:00:00Z", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/api/v1/routes/search?from=Lagos&to=Ibadan&window_start=yesterday", nil), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, booking.CodeValidation, decodeError(t, w).Code)

	h.service.AssertExpectations(t)
}

func TestRouteHandler_hold(t *testing.T) {
	h := newHarness(t)
	rider := h.token(t, "rider-1", domain.RoleRider)
	hold := &domain.SeatHold{ID: "h1", RouteID: "r1", RiderID: "rider-1", SeatCount: 2, State: domain.HoldStateActive}

	h.service.On("RequestHold", mock.Anything, "r1", "rider-1", 2).Return(hold, nil)
	h.service.On("RequestHold", mock.Anything, "r1", "rider-1", 9).
		Return(nil, booking.Translate(fmt.Errorf("route r1: %w", domain.ErrInsufficientSeats)))

	w := h.do(httptest.NewRequest(http.MethodPost, "/api/v1/routes/r1/holds", bytes.NewBufferString(`{"seats":2}`)), rider)
	require.Equal(t, http.StatusCreated, w.Code)
	var got domain.SeatHold
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "h1", got.ID)

	w = h.do(httptest.NewRequest(http.MethodPost, "/api/v1/routes/r1/holds", bytes.NewBufferString(`{"seats":9}`)), rider)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, booking.CodeInsufficientSeats, decodeError(t, w).Code)
}

func TestRouteHandler_RequiresRole(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodPost, "/api/v1/routes/r1/holds", bytes.NewBufferString(`{"seats":1}`)), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	driver := h.token(t, "driver-1", domain.RoleDriver)
	w = h.do(httptest.NewRequest(http.MethodPost, "/api/v1/routes/r1/holds", bytes.NewBufferString(`{"seats":1}`)), driver)
	assert.Equal(t, http.StatusForbidden, w.Code)

	h.service.AssertNotCalled(t, "RequestHold", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouteHandler_create(t *testing.T) {
	h := newHarness(t)
	driver := h.token(t, "driver-1", domain.RoleDriver)
	departure := time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC)

	h.service.On("CreateRoute", mock.Anything, mock.MatchedBy(func(in catalog.CreateRouteInput) bool {
		return in.DriverID == "driver-1" && in.TotalSeats == 4 && in.PricePerSeat.Equal(decimal.NewFromInt(3000)) && in.DepartureTime.Equal(departure)
	})).Return(&booking.RouteView{Route: domain.Route{ID: "r9"}, AvailableSeats: 4}, nil)

	body := `{"origin":"Lagos","destination":"Abuja","departure_time":"2026-06-01T07:30:00Z","total_seats":4,"price_per_seat":"3000"}`
	w := h.do(httptest.NewRequest(http.MethodPost, "/api/v1/routes", bytes.NewBufferString(body)), driver)
	assert.Equal(t, http.StatusCreated, w.Code)
	h.service.AssertExpectations(t)
}

func TestHoldHandler(t *testing.T) {
	h := newHarness(t)
	rider := h.token(t, "rider-1", domain.RoleRider)

	h.service.On("InitiatePayment", mock.Anything, "h1", "rider-1").
		Return(&payment.Params{TxnRef: "OPENRIDE-ABC", Amount: 500000, Currency: 566}, nil)
	h.service.On("CancelHold", mock.Anything, "h2", "rider-1").
		Return(nil, booking.Translate(fmt.Errorf("hold h2: %w", domain.ErrForbidden)))

	w := h.do(httptest.NewRequest(http.MethodPost, "/api/v1/holds/h1/payments", nil), rider)
	require.Equal(t, http.StatusCreated, w.Code)
	var params payment.Params
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	assert.Equal(t, "OPENRIDE-ABC", params.TxnRef)

	w = h.do(httptest.NewRequest(http.MethodDelete, "/api/v1/holds/h2", nil), rider)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, booking.CodeForbidden, decodeError(t, w).Code)
}

func signedCallback(body string, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewBufferString(body))
	req.Header.Set(SignatureHeader, hex.EncodeToString(Sign([]byte(secret), []byte(body))))
	return req
}

func TestPaymentHandler_callback(t *testing.T) {
	h := newHarness(t)
	b := &domain.Booking{ID: "b1", Status: domain.BookingStatusConfirmed}

	h.service.On("ConfirmBooking", mock.Anything, "OPENRIDE-1", domain.OutcomeSuccess).
		Return(&payment.CallbackResult{Attempt: domain.PaymentAttempt{State: domain.PaymentStateSucceeded}, Booking: b}, nil)
	h.service.On("ConfirmBooking", mock.Anything, "OPENRIDE-2", domain.OutcomeSuccess).
		Return(nil, booking.Translate(fmt.Errorf("hold h2: %w", domain.ErrHoldExpired)))

	w := h.do(signedCallback(`{"txn_ref":"OPENRIDE-1","outcome":"success"}`, webhookSecret), "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp callbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Code)
	require.NotNil(t, resp.Booking)
	assert.Equal(t, "b1", resp.Booking.ID)

	w = h.do(signedCallback(`{"txn_ref":"OPENRIDE-2","outcome":"SUCCESS"}`, webhookSecret), "")
	require.Equal(t, http.StatusOK, w.Code, "late callbacks are still acknowledged")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, booking.CodeHoldExpired, resp.Code)

	w = h.do(signedCallback(`{"txn_ref":"OPENRIDE-1","outcome":"SUCCESS"}`, "wrong"), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(signedCallback(`not json`, webhookSecret), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_ticket(t *testing.T) {
	h := newHarness(t)
	rider := h.token(t, "rider-1", domain.RoleRider)

	b := domain.Booking{
		ID: "b1", RouteID: "r1", RiderID: "rider-1", SeatCount: 1,
		TotalAmount: decimal.NewFromInt(2500), Status: domain.BookingStatusConfirmed,
		CreatedAt: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC),
	}
	tk, err := ticket.NewIssuer("secret").Issue(b, b.CreatedAt)
	require.NoError(t, err)
	bundle := &booking.TicketBundle{
		Ticket:  tk,
		Route:   &domain.Route{ID: "r1", Origin: "Lagos", Destination: "Ibadan", DepartureTime: b.CreatedAt.Add(time.Hour)},
		Booking: &b,
	}
	h.service.On("Ticket", mock.Anything, "b1", "rider-1").Return(bundle, nil)

	w := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/b1/ticket", nil), rider)
	require.Equal(t, http.StatusOK, w.Code)
	var got ticket.Ticket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, tk.QRData, got.QRData)

	w = h.do(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/b1/ticket?format=pdf", nil), rider)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestBookingHandler_mineAndCancel(t *testing.T) {
	h := newHarness(t)
	rider := h.token(t, "rider-1", domain.RoleRider)

	h.service.On("MyBookings", mock.Anything, "rider-1").Return([]domain.Booking{{ID: "b1"}, {ID: "b2"}}, nil)
	h.service.On("CancelBooking", mock.Anything, "b1", "rider-1").
		Return(&domain.Booking{ID: "b1", Status: domain.BookingStatusCancelled}, nil)

	w := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/mine", nil), rider)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = h.do(httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/b1", nil), rider)
	require.Equal(t, http.StatusOK, w.Code)
	var cancelled domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
}

type MockAuthUseCase struct {
	mock.Mock
}

func (m *MockAuthUseCase) Register(ctx context.Context, in auth.RegisterInput) (*domain.User, string, error) {
	args := m.Called(ctx, in)
	user, _ := args.Get(0).(*domain.User)
	return user, args.String(1), args.Error(2)
}

func (m *MockAuthUseCase) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.String(1), args.Error(2)
}

func (m *MockAuthUseCase) Me(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func TestAuthHandler_login(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(MockAuthUseCase)
	handler := NewAuthHandler(svc)

	svc.On("Login", mock.Anything, "rider@demo.com", "demo123").Return(&domain.User{ID: "u1", Role: domain.RoleRider}, "tok", nil)
	svc.On("Login", mock.Anything, "rider@demo.com", "nope").
		Return(nil, "", booking.Translate(fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"rider@demo.com","password":"demo123"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	handler.login(c)

	require.Equal(t, http.StatusOK, w.Code)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, "tok", session.Token)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"rider@demo.com","password":"nope"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	handler.login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, booking.CodeUnauthorized, decodeError(t, w).Code)
}

func TestRouteHandler_update(t *testing.T) {
	h := newHarness(t)
	driver := h.token(t, "driver-1", domain.RoleDriver)
	two := 2
	price := decimal.RequireFromString("3000")

	h.service.On("UpdateRoute", mock.Anything, "r1", "driver-1", catalog.UpdateRouteInput{TotalSeats: &two}).
		Return(nil, booking.Translate(fmt.Errorf("route r1: %w", domain.ErrInsufficientSeats))).Once()
	h.service.On("UpdateRoute", mock.Anything, "r1", "driver-1", mock.MatchedBy(func(in catalog.UpdateRouteInput) bool {
		return in.TotalSeats == nil && in.PricePerSeat != nil && in.PricePerSeat.Equal(price)
	})).Return(&booking.RouteView{Route: domain.Route{ID: "r1", PricePerSeat: price}, AvailableSeats: 4}, nil).Once()

	w := h.do(httptest.NewRequest(http.MethodPatch, "/api/v1/routes/r1", bytes.NewBufferString(`{"total_seats":2}`)), driver)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, booking.CodeInsufficientSeats, decodeError(t, w).Code)

	w = h.do(httptest.NewRequest(http.MethodPatch, "/api/v1/routes/r1", bytes.NewBufferString(`{"price_per_seat":"3000"}`)), driver)
	require.Equal(t, http.StatusOK, w.Code)
	var got booking.RouteView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 4, got.AvailableSeats)

	rider := h.token(t, "rider-a", domain.RoleRider)
	w = h.do(httptest.NewRequest(http.MethodPatch, "/api/v1/routes/r1", bytes.NewBufferString(`{"total_seats":9}`)), rider)
	assert.Equal(t, http.StatusForbidden, w.Code)

	h.service.AssertExpectations(t)
}

func TestRouteHandler_delete(t *testing.T) {
	h := newHarness(t)
	driver := h.token(t, "driver-1", domain.RoleDriver)

	h.service.On("DeleteRoute", mock.Anything, "r1", "driver-1").Return(nil).Once()
	h.service.On("DeleteRoute", mock.Anything, "r2", "driver-1").
		Return(booking.Translate(fmt.Errorf("route r2: %w", domain.ErrInvalidTransition))).Once()

	w := h.do(httptest.NewRequest(http.MethodDelete, "/api/v1/routes/r1", nil), driver)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(httptest.NewRequest(http.MethodDelete, "/api/v1/routes/r2", nil), driver)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, booking.CodeInvalidTransition, decodeError(t, w).Code)

	h.service.AssertExpectations(t)
}

func TestRatingHandler(t *testing.T) {
	h := newHarness(t)
	rider := h.token(t, "rider-a", domain.RoleRider)

	h.service.On("RateBooking", mock.Anything, "b1", "rider-a", 5, "great").
		Return(&domain.Rating{ID: "rt1", BookingID: "b1", DriverID: "driver-1", Score: 5}, nil).Once()
	h.service.On("RateBooking", mock.Anything, "b1", "rider-a", 4, "").
		Return(nil, booking.Translate(fmt.Errorf("booking b1 is already rated: %w", domain.ErrConflict))).Once()
	h.service.On("DriverRatings", mock.Anything, "driver-1").
		Return([]domain.Rating{{ID: "rt1", Score: 5}}, nil).Once()

	w := h.do(httptest.NewRequest(http.MethodPost, "/api/v1/ratings",
		bytes.NewBufferString(`{"booking_id":"b1","rating":5,"comment":"great"}`)), rider)
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(httptest.NewRequest(http.MethodPost, "/api/v1/ratings",
		bytes.NewBufferString(`{"booking_id":"b1","rating":4}`)), rider)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, booking.CodeConflict, decodeError(t, w).Code)

	w = h.do(httptest.NewRequest(http.MethodPost, "/api/v1/ratings", bytes.NewBufferString(`{"rating":4}`)), rider)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(httptest.NewRequest(http.MethodPost, "/api/v1/ratings",
		bytes.NewBufferString(`{"booking_id":"b1","rating":5}`)), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/api/v1/drivers/driver-1/ratings", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []domain.Rating
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)

	h.service.AssertExpectations(t)
}
