package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"
	"meetsignal/internal/core/services"
	httphandlers "meetsignal/internal/handlers/http"
	"meetsignal/internal/infrastructure/middleware"
	"meetsignal/internal/infrastructure/monitoring"
	repositories "meetsignal/internal/infrastructure/repositories"
	signalws "meetsignal/internal/infrastructure/signal"
	"meetsignal/pkg/circuitbreaker"
	"meetsignal/pkg/config"
	"meetsignal/pkg/logger"
	"meetsignal/pkg/retry"
	"meetsignal/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/meetsignal/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize collaborator repositories
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	meetingRepo := repoFactory.CreateMeetingRepository()
	profileRepo := repoFactory.CreateProfileRepository()

	// Initialize metrics
	var metrics ports.MetricsRecorder = services.NoopMetrics()
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector()
	}

	// Initialize core services
	sessionStore := services.NewSessionStore(metrics, log)
	registry := services.NewConnectionRegistry(metrics, log)

	retryCfg := retry.Config{
		Enabled:            true,
		MaxAttempts:        cfg.HostLookup.MaxAttempts,
		InitialDelay:       cfg.HostLookup.InitialDelay,
		MaxDelay:           cfg.HostLookup.MaxDelay,
		Multiplier:         2.0,
		Jitter:             true,
		NonRetryableErrors: []error{domain.ErrMeetingNotFound},
	}
	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.FailureThreshold = cfg.HostLookup.BreakerThreshold
	breakerCfg.Timeout = cfg.HostLookup.BreakerTimeout
	breaker := circuitbreaker.New(breakerCfg)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warnw("meeting metadata breaker state changed", "from", from.String(), "to", to.String())
	})

	hostResolver := services.NewHostResolver(meetingRepo, sessionStore, retryCfg, breaker, log)
	joinService := services.NewJoinService(registry, sessionStore, hostResolver, profileRepo, metrics, log)
	routerService := services.NewRouterService(registry, sessionStore, metrics, log)
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	// A channel pruned by the registry after a failed write unwinds the
	// session the same way a closed socket does.
	registry.OnDeadConnection(signalws.OnDeadConnection(joinService))

	// WebSocket push-channel server
	wsLimiter := middleware.NewWSConnectionLimiter(cfg)
	wsServer := signalws.NewWebSocketServer(joinService, authService, wsLimiter, signalws.Config{
		PingInterval:    cfg.Signal.PingInterval,
		PongTimeout:     cfg.Signal.PongTimeout,
		WriteTimeout:    cfg.Signal.WriteTimeout,
		MaxMessageBytes: cfg.Signal.MaxMessageBytes,
	}, log)

	// HTTP handlers
	authHandler := httphandlers.NewAuthHandler(authService, cfg.Auth.AccessTokenTTL)
	actionHandler := httphandlers.NewActionHandler(routerService, sessionStore)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	// Token issuance (public)
	authHandler.SetupRoutes(router)

	// Signaling action API (authenticated)
	api := router.Group("/api/v1/signal")
	api.Use(middleware.AuthMiddleware(authService))
	actionHandler.SetupRoutes(api)

	// Push channels
	router.GET("/ws", gin.WrapF(wsServer.HandleWebSocket))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := repoFactory.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{
				"status":       "not_ready",
				"timestamp":    time.Now(),
				"dependencies": "unhealthy",
				"error":        err.Error(),
			})
			return
		}

		c.JSON(200, gin.H{
			"status":       "ready",
			"timestamp":    time.Now(),
			"dependencies": "ok",
		})
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting meetsignal server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down meetsignal server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("meetsignal server stopped")
}
