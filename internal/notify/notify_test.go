package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/openride/seatreserve/internal/kafka"
	"github.com/openride/seatreserve/internal/ticket"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(channel string, message any) error {
	args := m.Called(channel, message)
	return args.Error(0)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSend_AvailabilityAndRiderNotice(t *testing.T) {
	pub := new(MockPublisher)
	available := 2
	pub.On("Publish", "route-r1", mock.MatchedBy(func(m map[string]any) bool {
		return m["type"] == "availability" && m["available"] == 2
	})).Return(nil).Once()
	pub.On("Publish", "rider-u1", mock.MatchedBy(func(m map[string]any) bool {
		return m["type"] == kafka.EventBookingCancelled && m["booking_id"] == "b1"
	})).Return(nil).Once()

	err := NewSender(pub, discard()).Send(context.Background(), kafka.BookingEvent{
		Type: kafka.EventBookingCancelled, RouteID: "r1", RiderID: "u1", BookingID: "b1", Available: &available,
	})

	assert.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestSend_InternalEventWithoutAvailabilityPublishesNothing(t *testing.T) {
	pub := new(MockPublisher)
	err := NewSender(pub, discard()).Send(context.Background(), kafka.BookingEvent{Type: kafka.EventPaymentInitiated, RouteID: "r1", RiderID: "u1"})
	assert.NoError(t, err)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSendTicket_PropagatesError(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", "rider-u1", mock.Anything).Return(errors.New("403 forbidden")).Once()

	err := NewSender(pub, discard()).SendTicket(context.Background(), "u1", &ticket.Ticket{BookingID: "b1", IssuedAt: time.Now()})
	assert.EqualError(t, err, "403 forbidden")
}
