package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/openride/seatreserve/api"
	_ "github.com/openride/seatreserve/api/swagger"
	"github.com/openride/seatreserve/config"
	ledgeradmin "github.com/openride/seatreserve/internal/api/ledger_admin_api"
	"github.com/openride/seatreserve/internal/auth"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/service/booking"
)

// Deps are the services the servers expose.
type Deps struct {
	Facade *booking.Facade
	Auth   *auth.Service
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
}

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	adminConn  *grpc.ClientConn
}

// Run starts the gRPC admin server and the HTTP server (REST API, admin
// gateway, swagger, metrics) and blocks until ctx is cancelled or a server fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	s, err := newServers(cfg, deps)
	if err != nil {
		return err
	}
	defer s.adminConn.Close()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	deps.Logger.Info("servers started", slog.String("http", cfg.HTTP.Address), slog.String("grpc", cfg.GRPC.Address))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, deps Deps) (*Servers, error) {
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(unaryLogger(deps.Logger)))
	ledgeradmin.Register(grpcSrv, ledgeradmin.NewServer(deps.Facade))

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial admin gRPC: %w", err)
	}
	gateway := runtime.NewServeMux()
	if err := ledgeradmin.RegisterGateway(gateway, ledgeradmin.NewClient(conn)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register admin gateway: %w", err)
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           NewRouter(cfg, deps, gateway),
			ReadHeaderTimeout: 10 * time.Second,
		},
		adminConn: conn,
	}, nil
}

// NewRouter assembles the HTTP surface. gateway may be nil.
func NewRouter(cfg *config.Config, deps Deps, gateway http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(deps.Logger), cors.New(corsConfig(cfg.HTTP)))

	router.GET("/healthz", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))
	authn := deps.Auth.Authenticate()
	if gateway != nil {
		router.Any("/admin/*any", authn, auth.RequireRole(domain.RoleOperator), gin.WrapH(gateway))
	}

	v1 := router.Group("/api/v1")
	api.NewAuthHandler(deps.Auth).Register(v1, authn)
	api.NewRouteHandler(deps.Facade).Register(v1, authn)
	api.NewHoldHandler(deps.Facade).Register(v1, authn)
	api.NewBookingHandler(deps.Facade).Register(v1, authn)
	api.NewRatingHandler(deps.Facade).Register(v1, authn)
	api.NewPaymentHandler(deps.Facade, cfg.Payment.WebhookSecret, deps.Logger).Register(v1)
	return router
}

func corsConfig(cfg config.HTTPConfig) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", requestIDHeader)
	c.ExposeHeaders = []string{requestIDHeader}
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}
	return c
}

func unaryLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "grpc request",
			slog.String("method", info.FullMethod),
			slog.Duration("latency", time.Since(start)),
			slog.Any("error", err))
		return resp, err
	}
}
