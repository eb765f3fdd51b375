package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/bootstrap"
	"github.com/openride/seatreserve/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("seatreserve", pflag.ContinueOnError)
	cfgPath := flagSet.String("config", "", "path to the YAML config (default: $CONFIG_PATH or config.yaml)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.LoadConfig(configPath(*cfgPath))
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
	if cfg.Auth.SeedDemoUsers {
		if err := services.Auth.SeedDemoUsers(ctx); err != nil {
			return err
		}
	}

	return bootstrap.Run(ctx, cfg, bootstrap.Deps{
		Facade: services.Facade,
		Auth:   services.Auth,
		Ready:  infra.Ready,
		Logger: logger,
	})
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "config.yaml"
}
