package kafka

import (
	"context"
	"log/slog"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/metrics"
)

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error
}

// Emitter routes BookingEvents to their topics. Publishing failures are logged
// and counted but never returned: the state change they describe has already
// been committed.
type Emitter struct {
	publisher          Publisher
	bookingTopic       string
	notificationsTopic string
	retries            int
	logger             *slog.Logger
}

// NewEmitter accepts a nil publisher, in which case events are only logged.
func NewEmitter(publisher Publisher, cfg config.KafkaConfig, logger *slog.Logger) *Emitter {
	return &Emitter{
		publisher:          publisher,
		bookingTopic:       cfg.BookingTopic,
		notificationsTopic: cfg.NotificationsTopic,
		retries:            cfg.PublishRetries,
		logger:             logger,
	}
}

func (e *Emitter) Emit(ctx context.Context, event BookingEvent) {
	if e.publisher == nil {
		e.logger.Debug("event", slog.String("type", event.Type), slog.String("route_id", event.RouteID))
		return
	}

	topics := []string{e.bookingTopic}
	if event.NotifiesRider() && e.notificationsTopic != "" {
		topics = append(topics, e.notificationsTopic)
	}
	for _, topic := range topics {
		err := e.publisher.PublishWithRetry(ctx, topic, event.RouteID, event, e.retries)
		metrics.EventPublished(event.Type, err)
		if err != nil {
			e.logger.Error("failed to publish event",
				slog.String("type", event.Type),
				slog.String("topic", topic),
				slog.Any("error", err))
		}
	}
}
