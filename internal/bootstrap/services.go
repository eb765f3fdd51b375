package bootstrap

import (
	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/auth"
	"github.com/openride/seatreserve/internal/kafka"
	"github.com/openride/seatreserve/internal/service/booking"
	"github.com/openride/seatreserve/internal/service/catalog"
	"github.com/openride/seatreserve/internal/service/ledger"
	"github.com/openride/seatreserve/internal/service/payment"
	"github.com/openride/seatreserve/internal/ticket"
)

// Services is the application graph shared by the API server and the worker.
type Services struct {
	Ledger   *ledger.Ledger
	Catalog  *catalog.Service
	Payments *payment.Coordinator
	Facade   *booking.Facade
	Auth     *auth.Service
	Tickets  *ticket.Issuer
	Events   *kafka.Emitter
}

// NewServices wires the services over infra. The ledger and the payment
// coordinator share one Locker so hold and route locks nest consistently.
func NewServices(cfg *config.Config, infra *Infra) *Services {
	logger := infra.Logger
	events := kafka.NewEmitter(infra.Publisher, cfg.Kafka, logger)

	ld := ledger.New(infra.Store,
		ledger.WithLocker(infra.Locker),
		ledger.WithClock(infra.Clock),
		ledger.WithLogger(logger))
	routes := catalog.NewService(infra.Store.Routes, ld, infra.Cache, infra.Clock, logger)
	payments := payment.NewCoordinator(ld, infra.Store.Routes, infra.Store.Bookings, infra.Store.Payments, events, cfg.Payment,
		payment.WithLocker(infra.Locker),
		payment.WithClock(infra.Clock),
		payment.WithLogger(logger))
	tickets := ticket.NewIssuer(cfg.Auth.JWTSecret)

	return &Services{
		Ledger:   ld,
		Catalog:  routes,
		Payments: payments,
		Facade:   booking.NewFacade(routes, ld, payments, infra.Store, tickets, events, cfg.Booking, infra.Clock, logger),
		Auth:     auth.NewService(infra.Store.Users, cfg.Auth, infra.Clock, logger),
		Tickets:  tickets,
		Events:   events,
	}
}
