package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	accountrepo "vibhanet-auth/backend/internal/account/repository"
	"vibhanet-auth/backend/internal/audit"
	auditrepo "vibhanet-auth/backend/internal/audit/repository"
	"vibhanet-auth/backend/internal/config"
	"vibhanet-auth/backend/internal/db"
	healthhandler "vibhanet-auth/backend/internal/health/handler"
	identityhandler "vibhanet-auth/backend/internal/identity/handler"
	identityservice "vibhanet-auth/backend/internal/identity/service"
	"vibhanet-auth/backend/internal/logging"
	"vibhanet-auth/backend/internal/ratelimit"
	"vibhanet-auth/backend/internal/security"
	"vibhanet-auth/backend/internal/server"
	"vibhanet-auth/backend/internal/server/middleware"
	sessionrepo "vibhanet-auth/backend/internal/session/repository"
	sessionservice "vibhanet-auth/backend/internal/session/service"
	"vibhanet-auth/backend/internal/telemetry"
	telemetryotel "vibhanet-auth/backend/internal/telemetry/otel"
)

const (
	healthInterval  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	conn, err := db.OpenContext(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = providers.Shutdown(context.Background())
		return fmt.Errorf("db: %w", err)
	}

	metrics, err := telemetry.NewAuthMetrics(providers.MeterProvider)
	if err != nil {
		_ = conn.Close()
		_ = providers.Shutdown(context.Background())
		return fmt.Errorf("metrics: %w", err)
	}

	limiter := ratelimit.New()
	sweepCtx, stopSweep := context.WithCancel(context.Background())

	sessions := sessionservice.NewStore(sessionrepo.NewPostgresRepository(conn), cfg.SessionTTL())
	auth := identityservice.NewAuthService(identityservice.Deps{
		Accounts: accountrepo.NewPostgresRepository(conn),
		Sessions: sessions,
		Limiter:  limiter,
		Hasher:   security.NewHasher(cfg.Argon2()),
		Audit:    audit.NewLogger(auditrepo.NewPostgresRepository(conn), middleware.ClientIPFromContext, log),
		Metrics:  metrics,
		Events:   telemetryotel.NewEventEmitter(providers.LoggerProvider),
		Log:      log,
	}, identityservice.Policy{
		SignupPerIP:   cfg.SignupPerIP(),
		LoginPerIP:    cfg.LoginPerIP(),
		LoginPerPhone: cfg.LoginPerPhone(),
		Lockout:       cfg.Lockout(),
	})

	go limiter.Run(sweepCtx, auth.Policy().SweepInterval())

	grpcServer, healthServer := server.NewGRPCServer()
	server.RegisterServices(grpcServer, healthServer)
	checker := healthhandler.NewChecker(conn, healthServer, log)
	go checker.Run(sweepCtx, healthInterval)

	cookies := identityhandler.NewCookieManager(cfg.SessionCookieName, cfg.IsProduction(), sessions.TTL())
	router, err := server.NewRouter(server.HTTPDeps{
		Auth:           identityhandler.NewHandler(auth, cookies, log),
		Health:         checker,
		Log:            log,
		PublicDir:      cfg.PublicDir,
		AllowedOrigins: cfg.AllowedOrigins(),
		TrustedProxies: cfg.TrustedProxyList(),
	})
	if err != nil {
		stopSweep()
		_ = conn.Close()
		_ = providers.Shutdown(context.Background())
		return fmt.Errorf("router: %w", err)
	}
	httpServer := server.NewHTTPServer(cfg.HTTPAddr, router)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		stopSweep()
		_ = conn.Close()
		_ = providers.Shutdown(context.Background())
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info(ctx, "gRPC health server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.Info(ctx, "HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down")
	case serveErr = <-errCh:
		log.Error(context.Background(), "server failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	stopSweep()

	// Let in-flight async event emits finish before the log provider stops.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "otel shutdown", "error", err)
	}
	if err := conn.Close(); err != nil {
		log.Warn(shutdownCtx, "db close", "error", err)
	}
	log.Info(context.Background(), "stopped")
	return serveErr
}
