// Package payment drives a hold through its payment attempt:
//
//	HOLD_ACTIVE -> PAYMENT_INITIATED -> PAYMENT_SUCCEEDED -> BOOKING_CONFIRMED
//	                                 -> PAYMENT_FAILED | PAYMENT_CANCELLED -> HOLD_RELEASED
//
// Everything that touches one hold runs under the "hold:<id>" lock. The ledger
// takes the route lock inside it, never the other way round.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/clock"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/kafka"
	"github.com/openride/seatreserve/internal/lock"
	"github.com/openride/seatreserve/internal/metrics"
	"github.com/openride/seatreserve/internal/repository"
)

// Ledger is the part of ledger.Ledger the coordinator needs.
type Ledger interface {
	ActiveHold(ctx context.Context, holdID string) (*domain.SeatHold, error)
	Lookup(ctx context.Context, holdID string) (*domain.SeatHold, error)
	Convert(ctx context.Context, holdID, paymentRef string) (*domain.Booking, error)
	Release(ctx context.Context, holdID string) (*domain.SeatHold, error)
}

type Emitter interface {
	Emit(ctx context.Context, event kafka.BookingEvent)
}

type Coordinator struct {
	ledger   Ledger
	routes   repository.RouteRepository
	bookings repository.BookingRepository
	payments repository.PaymentRepository
	events   Emitter
	locker   lock.Locker
	clock    clock.Clock
	cfg      config.PaymentConfig
	logger   *slog.Logger
}

type Option func(*Coordinator)

// WithLocker must be given the same Locker as the ledger when both run in
// one process with a shared Redis lock.
func WithLocker(l lock.Locker) Option {
	return func(c *Coordinator) { c.locker = l }
}

func WithClock(cl clock.Clock) Option {
	return func(c *Coordinator) { c.clock = cl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func NewCoordinator(
	ledger Ledger,
	routes repository.RouteRepository,
	bookings repository.BookingRepository,
	payments repository.PaymentRepository,
	events Emitter,
	cfg config.PaymentConfig,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		ledger:   ledger,
		routes:   routes,
		bookings: bookings,
		payments: payments,
		events:   events,
		locker:   lock.NewLocal(),
		clock:    clock.Real(),
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Customer is optional payer detail forwarded to the provider.
type Customer struct {
	Name  string
	Email string
}

// Params is what the client hands to the provider's checkout.
type Params struct {
	MerchantCode    string    `json:"merchant_code"`
	PayItemID       string    `json:"pay_item_id"`
	TxnRef          string    `json:"txn_ref"`
	Amount          int64     `json:"amount"`
	Currency        int       `json:"currency"`
	CurrencyCode    string    `json:"currency_code"`
	SiteRedirectURL string    `json:"site_redirect_url,omitempty"`
	CustName        string    `json:"cust_name,omitempty"`
	CustEmail       string    `json:"cust_email,omitempty"`
	Mode            string    `json:"mode"`
	HoldID          string    `json:"hold_id"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// CallbackResult describes what a provider callback changed. Booking is set
// when this callback converted the hold, and on a duplicate success whose
// booking already exists.
type CallbackResult struct {
	Attempt   domain.PaymentAttempt
	Booking   *domain.Booking
	Duplicate bool
}

func (c *Coordinator) withHoldLock(ctx context.Context, holdID string, fn func(ctx context.Context) error) error {
	started := time.Now()
	unlock, err := c.locker.Lock(ctx, lock.HoldKey(holdID))
	metrics.LockWait("hold", started)
	if err != nil {
		return fmt.Errorf("lock hold %s: %w", holdID, err)
	}
	defer unlock()
	return fn(ctx)
}

// Initiate opens a new payment attempt for an ACTIVE hold. Any attempt still
// live for the hold is superseded and its later callbacks are rejected.
func (c *Coordinator) Initiate(ctx context.Context, holdID string, customer Customer) (*Params, error) {
	var (
		params  *Params
		routeID string
	)
	err := c.withHoldLock(ctx, holdID, func(ctx context.Context) error {
		hold, err := c.ledger.ActiveHold(ctx, holdID)
		if err != nil {
			return err
		}
		routeID = hold.RouteID
		route, err := c.routes.GetByID(ctx, hold.RouteID)
		if err != nil {
			return err
		}

		superseded, err := c.payments.SupersedeLive(ctx, holdID)
		if err != nil {
			return err
		}
		if superseded > 0 {
			c.logger.Info("superseded live payment attempts", slog.String("hold_id", holdID), slog.Int("count", superseded))
		}

		now := c.clock.Now().UTC()
		attempt := &domain.PaymentAttempt{
			ID:               uuid.NewString(),
			HoldID:           holdID,
			RouteID:          hold.RouteID,
			ProviderRef:      NewTxnRef(),
			AmountMinorUnits: MinorUnits(route.PricePerSeat, hold.SeatCount),
			Currency:         c.cfg.Currency,
			State:            domain.PaymentStateInitiated,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := c.payments.Create(ctx, attempt); err != nil {
			return err
		}

		params = c.params(attempt, hold, customer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("payment initiated", slog.String("hold_id", holdID), slog.String("txn_ref", params.TxnRef))
	c.events.Emit(ctx, kafka.BookingEvent{
		Type:       kafka.EventPaymentInitiated,
		RouteID:    routeID,
		HoldID:     holdID,
		PaymentRef: params.TxnRef,
		OccurredAt: c.clock.Now().UTC(),
	})
	return params, nil
}

func (c *Coordinator) params(a *domain.PaymentAttempt, hold *domain.SeatHold, customer Customer) *Params {
	p := &Params{
		MerchantCode: c.cfg.MerchantCode,
		PayItemID:    c.cfg.PayItemID,
		TxnRef:       a.ProviderRef,
		Amount:       a.AmountMinorUnits,
		Currency:     c.cfg.CurrencyNumeric,
		CurrencyCode: c.cfg.Currency,
		CustName:     customer.Name,
		CustEmail:    customer.Email,
		Mode:         c.cfg.Mode,
		HoldID:       hold.ID,
		ExpiresAt:    hold.ExpiresAt,
	}
	if c.cfg.RedirectURL != "" {
		sep := "?"
		if strings.Contains(c.cfg.RedirectURL, "?") {
			sep = "&"
		}
		p.SiteRedirectURL = c.cfg.RedirectURL + sep + "id=" + a.ProviderRef
	}
	return p
}

// OnProviderCallback applies the provider's outcome for providerRef. Repeated
// callbacks with the outcome already recorded change nothing.
func (c *Coordinator) OnProviderCallback(ctx context.Context, providerRef string, outcome domain.PaymentOutcome) (*CallbackResult, error) {
	result, err := c.onCallback(ctx, providerRef, outcome)
	metrics.PaymentCallback(string(outcome), err)
	return result, err
}

func (c *Coordinator) onCallback(ctx context.Context, providerRef string, outcome domain.PaymentOutcome) (*CallbackResult, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("unknown outcome %q: %w", outcome, domain.ErrValidation)
	}

	attempt, err := c.payments.GetByProviderRef(ctx, providerRef)
	if errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn("callback for unknown payment attempt", slog.String("txn_ref", providerRef))
		return nil, fmt.Errorf("txn_ref %s: %w", providerRef, domain.ErrUnknownAttempt)
	}
	if err != nil {
		return nil, err
	}

	var result *CallbackResult
	err = c.withHoldLock(ctx, attempt.HoldID, func(ctx context.Context) error {
		attempt, err = c.payments.GetByProviderRef(ctx, providerRef)
		if err != nil {
			return err
		}
		if attempt.Superseded {
			c.logger.Warn("callback for superseded payment attempt",
				slog.String("txn_ref", providerRef),
				slog.String("outcome", string(outcome)))
			return fmt.Errorf("txn_ref %s was superseded: %w", providerRef, domain.ErrUnknownAttempt)
		}

		result, err = c.apply(ctx, attempt, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// apply runs under the hold lock.
func (c *Coordinator) apply(ctx context.Context, attempt *domain.PaymentAttempt, outcome domain.PaymentOutcome) (*CallbackResult, error) {
	switch attempt.State {
	case domain.PaymentStateInitiated:
		if outcome == domain.OutcomeSuccess {
			return c.succeed(ctx, attempt)
		}
		return c.fail(ctx, attempt, outcome)

	case domain.PaymentStateSucceeded:
		if outcome != domain.OutcomeSuccess {
			c.logger.Warn("negative callback after success ignored",
				slog.String("txn_ref", attempt.ProviderRef),
				slog.String("outcome", string(outcome)))
		}
		return &CallbackResult{Attempt: *attempt, Duplicate: true}, nil

	case domain.PaymentStateFailed, domain.PaymentStateCancelled:
		if outcome != domain.OutcomeSuccess {
			return &CallbackResult{Attempt: *attempt, Duplicate: true}, nil
		}
		// Money was captured after the attempt was given up on.
		hold, booking, err := c.convertedBy(ctx, attempt)
		if err != nil {
			return nil, err
		}
		if booking != nil {
			return c.settle(ctx, attempt, booking)
		}
		cause := domain.ErrHoldNotActive
		if hold.State == domain.HoldStateExpired {
			cause = fmt.Errorf("%w: %w", domain.ErrHoldExpired, domain.ErrHoldNotActive)
		}
		return nil, c.refund(ctx, attempt, fmt.Errorf("hold %s is %s: %w", hold.ID, hold.State, cause))

	case domain.PaymentStateRefundPending:
		return &CallbackResult{Attempt: *attempt, Duplicate: true}, nil
	}

	return nil, fmt.Errorf("payment attempt %s in unexpected state %s: %w", attempt.ID, attempt.State, domain.ErrInvalidTransition)
}

func (c *Coordinator) succeed(ctx context.Context, attempt *domain.PaymentAttempt) (*CallbackResult, error) {
	booking, err := c.ledger.Convert(ctx, attempt.HoldID, attempt.ProviderRef)
	if errors.Is(err, domain.ErrHoldNotActive) {
		_, converted, lookupErr := c.convertedBy(ctx, attempt)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if converted != nil {
			return c.settle(ctx, attempt, converted)
		}
		return nil, c.refund(ctx, attempt, err)
	}
	if err != nil {
		return nil, err
	}

	// The booking is committed. A failed state write leaves the attempt
	// INITIATED; Reconcile and any retried callback settle it from the booking.
	if err := c.payments.UpdateState(ctx, attempt.ID, domain.PaymentStateInitiated, domain.PaymentStateSucceeded); err != nil {
		c.logger.Error("failed to record payment success",
			slog.String("txn_ref", attempt.ProviderRef),
			slog.String("booking_id", booking.ID),
			slog.Any("error", err))
	} else {
		attempt.State = domain.PaymentStateSucceeded
	}
	c.logger.Info("payment succeeded", slog.String("txn_ref", attempt.ProviderRef), slog.String("booking_id", booking.ID))
	return &CallbackResult{Attempt: *attempt, Booking: booking}, nil
}

func (c *Coordinator) fail(ctx context.Context, attempt *domain.PaymentAttempt, outcome domain.PaymentOutcome) (*CallbackResult, error) {
	_, converted, err := c.convertedBy(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if converted != nil {
		c.logger.Warn("negative callback after success ignored",
			slog.String("txn_ref", attempt.ProviderRef),
			slog.String("outcome", string(outcome)))
		return c.settle(ctx, attempt, converted)
	}

	next := domain.PaymentStateFailed
	if outcome == domain.OutcomeCancelled {
		next = domain.PaymentStateCancelled
	}
	if err := c.payments.UpdateState(ctx, attempt.ID, domain.PaymentStateInitiated, next); err != nil {
		return nil, err
	}
	attempt.State = next

	if _, err := c.ledger.Release(ctx, attempt.HoldID); err != nil {
		return nil, err
	}

	c.logger.Info("payment did not complete, hold released",
		slog.String("txn_ref", attempt.ProviderRef),
		slog.String("state", string(next)))
	c.events.Emit(ctx, kafka.BookingEvent{
		Type:       kafka.EventPaymentFailed,
		RouteID:    attempt.RouteID,
		HoldID:     attempt.HoldID,
		PaymentRef: attempt.ProviderRef,
		Status:     string(next),
		OccurredAt: c.clock.Now().UTC(),
	})
	return &CallbackResult{Attempt: *attempt}, nil
}

// convertedBy returns the attempt's hold and, when that hold was converted with
// this attempt's payment, the resulting booking.
func (c *Coordinator) convertedBy(ctx context.Context, attempt *domain.PaymentAttempt) (*domain.SeatHold, *domain.Booking, error) {
	hold, err := c.ledger.Lookup(ctx, attempt.HoldID)
	if err != nil {
		return nil, nil, err
	}
	if hold.State != domain.HoldStateConverted {
		return hold, nil, nil
	}
	booking, err := c.bookings.GetByHoldID(ctx, hold.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return hold, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if booking.PaymentRef != attempt.ProviderRef {
		return hold, nil, nil
	}
	return hold, booking, nil
}

// settle records SUCCEEDED for an attempt whose payment already produced
// booking. Nothing is refunded and no new booking event is due.
func (c *Coordinator) settle(ctx context.Context, attempt *domain.PaymentAttempt, booking *domain.Booking) (*CallbackResult, error) {
	if attempt.State != domain.PaymentStateSucceeded {
		if err := c.payments.UpdateState(ctx, attempt.ID, attempt.State, domain.PaymentStateSucceeded); err != nil {
			return nil, err
		}
		c.logger.Warn("payment success recorded for an already converted hold",
			slog.String("txn_ref", attempt.ProviderRef),
			slog.String("previous_state", string(attempt.State)),
			slog.String("booking_id", booking.ID))
		attempt.State = domain.PaymentStateSucceeded
	}
	return &CallbackResult{Attempt: *attempt, Booking: booking, Duplicate: true}, nil
}

// refund records that captured money must be returned and passes cause on.
func (c *Coordinator) refund(ctx context.Context, attempt *domain.PaymentAttempt, cause error) error {
	if err := c.payments.UpdateState(ctx, attempt.ID, attempt.State, domain.PaymentStateRefundPending); err != nil {
		return err
	}
	attempt.State = domain.PaymentStateRefundPending

	c.logger.Warn("payment captured for unconvertible hold, refund requested",
		slog.String("txn_ref", attempt.ProviderRef),
		slog.String("hold_id", attempt.HoldID),
		slog.Any("reason", cause))
	event := kafka.BookingEvent{
		Type:       kafka.EventRefundRequested,
		RouteID:    attempt.RouteID,
		HoldID:     attempt.HoldID,
		PaymentRef: attempt.ProviderRef,
		Amount:     decimal.New(attempt.AmountMinorUnits, -2).StringFixed(2),
		Status:     string(attempt.State),
		Reason:     cause.Error(),
		OccurredAt: c.clock.Now().UTC(),
	}
	if hold, err := c.ledger.Lookup(ctx, attempt.HoldID); err == nil {
		event.RiderID = hold.RiderID
	} else {
		c.logger.Warn("refund event sent without rider",
			slog.String("txn_ref", attempt.ProviderRef),
			slog.String("hold_id", attempt.HoldID),
			slog.Any("error", err))
	}
	c.events.Emit(ctx, event)
	return cause
}

// Reconcile settles INITIATED attempts whose hold is no longer ACTIVE and
// returns how many it changed. An attempt whose payment converted the hold is
// marked SUCCEEDED; any other is marked FAILED.
func (c *Coordinator) Reconcile(ctx context.Context) (int, error) {
	live, err := c.payments.ListInitiated(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	var errs []error
	for _, a := range live {
		err := c.withHoldLock(ctx, a.HoldID, func(ctx context.Context) error {
			attempt, err := c.payments.GetByProviderRef(ctx, a.ProviderRef)
			if err != nil {
				return err
			}
			if attempt.State != domain.PaymentStateInitiated || attempt.Superseded {
				return nil
			}
			hold, booking, err := c.convertedBy(ctx, attempt)
			if err != nil {
				return err
			}
			if hold.State == domain.HoldStateActive {
				return nil
			}
			if booking != nil {
				if _, err := c.settle(ctx, attempt, booking); err != nil {
					return err
				}
				changed++
				return nil
			}
			if err := c.payments.UpdateState(ctx, attempt.ID, domain.PaymentStateInitiated, domain.PaymentStateFailed); err != nil {
				return err
			}
			changed++
			c.logger.Info("reconciled stale payment attempt",
				slog.String("txn_ref", attempt.ProviderRef),
				slog.String("hold_state", string(hold.State)))
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s: %w", a.ProviderRef, err))
		}
	}
	return changed, errors.Join(errs...)
}

// MinorUnits converts price × seats to the currency's minor unit (kobo for NGN).
func MinorUnits(pricePerSeat decimal.Decimal, seats int) int64 {
	return pricePerSeat.Mul(decimal.NewFromInt(int64(seats))).Shift(2).Round(0).IntPart()
}

// NewTxnRef returns a provider transaction reference such as
// "OPENRIDE-3F2A9C...".
func NewTxnRef() string {
	return "OPENRIDE-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
