// Package notify pushes realtime updates to riders and route watchers over
// PubNub. Channels are "route-<id>" for seat availability and "rider-<id>" for
// ticket and refund notices.
package notify

import (
	"context"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/kafka"
	"github.com/openride/seatreserve/internal/ticket"
)

type Publisher interface {
	Publish(channel string, message any) error
}

type Sender struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewSender(publisher Publisher, logger *slog.Logger) *Sender {
	return &Sender{publisher: publisher, logger: logger}
}

func RouteChannel(routeID string) string { return "route-" + routeID }

func RiderChannel(riderID string) string { return "rider-" + riderID }

// Send fans an event out to the channels it concerns.
func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if err := s.SendAvailability(ctx, event); err != nil {
		return err
	}
	return s.SendNotice(ctx, event)
}

// SendAvailability publishes the route's seat count when the event carries one.
func (s *Sender) SendAvailability(ctx context.Context, event kafka.BookingEvent) error {
	if event.Available == nil || event.RouteID == "" {
		return nil
	}
	return s.publish(RouteChannel(event.RouteID), map[string]any{
		"type":      "availability",
		"route_id":  event.RouteID,
		"available": *event.Available,
	})
}

// SendNotice tells the rider about events that concern them.
func (s *Sender) SendNotice(ctx context.Context, event kafka.BookingEvent) error {
	if !event.NotifiesRider() || event.RiderID == "" {
		return nil
	}
	msg := map[string]any{
		"type":        event.Type,
		"route_id":    event.RouteID,
		"booking_id":  event.BookingID,
		"hold_id":     event.HoldID,
		"payment_ref": event.PaymentRef,
		"status":      event.Status,
	}
	if event.Amount != "" {
		msg["amount"] = event.Amount
	}
	return s.publish(RiderChannel(event.RiderID), msg)
}

// SendTicket hands a freshly issued ticket to its rider.
func (s *Sender) SendTicket(ctx context.Context, riderID string, t *ticket.Ticket) error {
	return s.publish(RiderChannel(riderID), map[string]any{
		"type":       "ticket",
		"booking_id": t.BookingID,
		"route_id":   t.RouteID,
		"seat_count": t.SeatCount,
		"issued_at":  t.IssuedAt,
		"qr_data":    t.QRData,
		"hash":       t.Hash,
	})
}

func (s *Sender) publish(channel string, msg map[string]any) error {
	if err := s.publisher.Publish(channel, msg); err != nil {
		s.logger.Error("pubnub publish failed", slog.String("channel", channel), slog.Any("error", err))
		return err
	}
	s.logger.Debug("pubnub published", slog.String("channel", channel), slog.Any("type", msg["type"]))
	return nil
}

// PubNubPublisher adapts a PubNub client to Publisher.
type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNub(cfg config.PubNubConfig) *PubNubPublisher {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	return &PubNubPublisher{pn: pubnub.NewPubNub(pnCfg)}
}

func (p *PubNubPublisher) Publish(channel string, message any) error {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	return err
}

// LogPublisher stands in for PubNub when no keys are configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(channel string, message any) error {
	p.Logger.Info("notification", slog.String("channel", channel), slog.Any("message", message))
	return nil
}
