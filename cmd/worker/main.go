package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/bootstrap"
	"github.com/openride/seatreserve/internal/kafka"
	"github.com/openride/seatreserve/internal/logging"
	"github.com/openride/seatreserve/internal/metrics"
	"github.com/openride/seatreserve/internal/notify"
	"github.com/openride/seatreserve/internal/service/booking"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("seatreserve-worker", pflag.ContinueOnError)
	cfgPath := flagSet.String("config", "", "path to the YAML config (default: $CONFIG_PATH or config.yaml)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	path := *cfgPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.OpenInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()
	services := bootstrap.NewServices(cfg, infra)

	var wg sync.WaitGroup
	wg.Go(func() { metrics.Collect(ctx, 15*time.Second) })
	wg.Go(func() { serveMetrics(ctx, cfg.Worker.MetricsAddress, logger) })

	if len(cfg.Kafka.Brokers) > 0 {
		var publisher notify.Publisher = notify.LogPublisher{Logger: logger}
		if cfg.PubNub.PublishKey != "" {
			publisher = notify.NewPubNub(cfg.PubNub)
		}
		dispatcher := notify.NewDispatcher(notify.NewSender(publisher, logger), infra.Store.Bookings, services.Tickets, logger)

		consume := func(topic, group string, handler func(context.Context, kafka.BookingEvent) error) {
			consumer := kafka.NewConsumer(cfg.Kafka.Brokers, group, topic, logger)
			defer consumer.Close()
			if err := consumer.ConsumeEvents(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", slog.String("topic", topic), slog.Any("error", err))
			}
		}
		wg.Go(func() { consume(cfg.Kafka.BookingTopic, cfg.Kafka.GroupID+"-availability", dispatcher.HandleBookingEvent) })
		wg.Go(func() { consume(cfg.Kafka.NotificationsTopic, cfg.Kafka.GroupID, dispatcher.HandleNotification) })
	} else {
		logger.Warn("no kafka brokers configured, notifications are disabled")
	}

	sweep(ctx, services.Facade, cfg.Worker.SweepInterval(), logger)
	wg.Wait()
	return nil
}

// sweep expires overdue holds and fails stale payment attempts until ctx is done.
func sweep(ctx context.Context, facade *booking.Facade, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("worker started", slog.Duration("sweep_interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			return
		case <-ticker.C:
		}

		if _, err := facade.ExpireOverdue(ctx); err != nil {
			logger.Error("expire holds failed", slog.Any("error", err))
		}
		if _, err := facade.Reconcile(ctx); err != nil {
			logger.Error("reconcile payments failed", slog.Any("error", err))
		}
	}
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", slog.Any("error", err))
	}
}
