// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatreserve_ledger_operations_total",
			Help: "Ledger operations by outcome",
		},
		[]string{"operation", "result"},
	)

	holdsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatreserve_holds_expired_total",
			Help: "Holds moved to EXPIRED, lazily or by the sweeper",
		},
	)

	paymentCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatreserve_payment_callbacks_total",
			Help: "Provider callbacks by outcome and result",
		},
		[]string{"outcome", "result"},
	)

	lockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seatreserve_lock_wait_seconds",
			Help:    "Time spent waiting for a route or hold lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"scope"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatreserve_events_published_total",
			Help: "Booking events handed to the broker",
		},
		[]string{"type", "status"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seatreserve_active_goroutines",
			Help: "Current number of goroutines",
		},
	)
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// LedgerOperation counts one ledger call.
func LedgerOperation(op string, err error) {
	ledgerOperations.WithLabelValues(op, result(err)).Inc()
}

func HoldsExpired(n int) {
	holdsExpired.Add(float64(n))
}

func PaymentCallback(outcome string, err error) {
	paymentCallbacks.WithLabelValues(outcome, result(err)).Inc()
}

// LockWait records how long an acquisition of the given scope took.
func LockWait(scope string, started time.Time) {
	lockWait.WithLabelValues(scope).Observe(time.Since(started).Seconds())
}

func EventPublished(eventType string, err error) {
	eventsPublished.WithLabelValues(eventType, result(err)).Inc()
}

// Collect samples runtime gauges every interval until ctx is done.
func Collect(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		goroutineCount.Set(float64(runtime.NumGoroutine()))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
