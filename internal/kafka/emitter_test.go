package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openride/seatreserve/config"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error {
	args := m.Called(ctx, topic, key, payload, maxRetries)
	return args.Error(0)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var kafkaCfg = config.KafkaConfig{BookingTopic: "booking-events", NotificationsTopic: "booking-notifications", PublishRetries: 3}

func TestEmitter_RoutesRiderEventsToBothTopics(t *testing.T) {
	pub := new(MockPublisher)
	event := BookingEvent{Type: EventBookingConfirmed, RouteID: "r1", BookingID: "b1"}
	pub.On("PublishWithRetry", mock.Anything, "booking-events", "r1", event, 3).Return(nil).Once()
	pub.On("PublishWithRetry", mock.Anything, "booking-notifications", "r1", event, 3).Return(nil).Once()

	NewEmitter(pub, kafkaCfg, discard()).Emit(context.Background(), event)

	pub.AssertExpectations(t)
}

func TestEmitter_InternalEventsStayOnBookingTopic(t *testing.T) {
	pub := new(MockPublisher)
	event := BookingEvent{Type: EventHoldCreated, RouteID: "r1"}
	pub.On("PublishWithRetry", mock.Anything, "booking-events", "r1", event, 3).Return(errors.New("broker down")).Once()

	NewEmitter(pub, kafkaCfg, discard()).Emit(context.Background(), event)

	pub.AssertExpectations(t)
	pub.AssertNumberOfCalls(t, "PublishWithRetry", 1)
}

func TestEmitter_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		NewEmitter(nil, kafkaCfg, discard()).Emit(context.Background(), BookingEvent{Type: EventHoldCreated})
	})
}

func TestDecodeEvent(t *testing.T) {
	event, err := DecodeEvent(kafkago.Message{Value: []byte(`{"type":"refund_requested","route_id":"r1","payment_ref":"OPENRIDE-1"}`)})
	require.NoError(t, err)
	assert.Equal(t, EventRefundRequested, event.Type)
	assert.True(t, event.NotifiesRider())

	_, err = DecodeEvent(kafkago.Message{Value: []byte("{")})
	assert.Error(t, err)
}
