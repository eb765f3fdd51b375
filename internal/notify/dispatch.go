package notify

import (
	"context"
	"log/slog"

	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/kafka"
	"github.com/openride/seatreserve/internal/ticket"
)

type BookingSource interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
}

// Dispatcher turns consumed BookingEvents into PubNub messages. Its handlers
// log delivery failures instead of returning them so one bad message cannot
// stop a consumer.
type Dispatcher struct {
	sender   *Sender
	bookings BookingSource
	tickets  *ticket.Issuer
	logger   *slog.Logger
}

func NewDispatcher(sender *Sender, bookings BookingSource, tickets *ticket.Issuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, bookings: bookings, tickets: tickets, logger: logger}
}

// HandleBookingEvent consumes the booking topic: every event that carries a
// seat count becomes an availability update.
func (d *Dispatcher) HandleBookingEvent(ctx context.Context, event kafka.BookingEvent) error {
	if err := d.sender.SendAvailability(ctx, event); err != nil {
		d.logger.Warn("availability update not delivered", slog.String("route_id", event.RouteID), slog.Any("error", err))
	}
	return nil
}

// HandleNotification consumes the notifications topic. A confirmed booking
// also gets its ticket.
func (d *Dispatcher) HandleNotification(ctx context.Context, event kafka.BookingEvent) error {
	if err := d.sender.SendNotice(ctx, event); err != nil {
		d.logger.Warn("rider notice not delivered", slog.String("type", event.Type), slog.Any("error", err))
	}
	if event.Type != kafka.EventBookingConfirmed || event.BookingID == "" {
		return nil
	}

	b, err := d.bookings.GetByID(ctx, event.BookingID)
	if err != nil {
		d.logger.Error("ticket not issued", slog.String("booking_id", event.BookingID), slog.Any("error", err))
		return nil
	}
	t, err := d.tickets.Issue(*b, b.CreatedAt)
	if err != nil {
		d.logger.Warn("ticket not issued", slog.String("booking_id", b.ID), slog.String("status", string(b.Status)), slog.Any("error", err))
		return nil
	}
	if err := d.sender.SendTicket(ctx, b.RiderID, t); err != nil {
		d.logger.Warn("ticket not delivered", slog.String("booking_id", b.ID), slog.Any("error", err))
	}
	return nil
}
