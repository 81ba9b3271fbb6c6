package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/parleyhq/chat-backend/internal/adapters/primary/http"
	mw "github.com/parleyhq/chat-backend/internal/adapters/primary/http/middleware"
	"github.com/parleyhq/chat-backend/internal/adapters/primary/websocket"
	"github.com/parleyhq/chat-backend/internal/adapters/secondary/postgres"
	"github.com/parleyhq/chat-backend/internal/config"
	"github.com/parleyhq/chat-backend/internal/core/ports"
	"github.com/parleyhq/chat-backend/internal/core/services"
	"github.com/parleyhq/chat-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize the Real-time Hub
	// The hub publishes for the services, and the channel authorizer the
	// hub needs is built on top of those same services, so it is bound
	// after the services exist.
	hub := websocket.NewHub(logger)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	var messageRateLimiter *mw.RateLimitByKey
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})

		messageRateLimiter = mw.NewRateLimitByKey(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	roomRepo := postgres.NewRoomRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)
	reactionRepo := postgres.NewReactionRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Services (Core)
	authService := services.NewAuthService(userRepo, sessionRepo, cfg.Session.TTL)
	membershipService := services.NewMembershipService(membershipRepo, roomRepo, hub)
	roomService := services.NewRoomService(roomRepo, membershipRepo, txManager)
	messageService := services.NewMessageService(messageRepo, roomRepo, membershipService, hub)
	reactionService := services.NewReactionService(reactionRepo, messageRepo, roomRepo, membershipService, hub)
	userService := services.NewUserService(userRepo)

	hub.SetAuthorizer(services.NewChannelAuthorizer(membershipService))
	go hub.Run()

	// Handlers (Primary Adapters)
	authHandler := httpAdapter.NewAuthHandler(authService, errorHandler, logger)
	userHandler := httpAdapter.NewUserHandler(userService, errorHandler, logger)
	memberHandler := httpAdapter.NewMemberHandler(membershipService, errorHandler, logger)
	reactionHandler := httpAdapter.NewReactionHandler(reactionService, errorHandler, logger)
	messageHandler := httpAdapter.NewMessageHandler(messageService, reactionHandler, errorHandler, logger)
	roomHandler := httpAdapter.NewRoomHandler(roomService, memberHandler, messageHandler, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, authService, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, hub, cfg.App.Version)

	// Background session cleanup
	go runSessionCleanup(ctx, sessionRepo, cfg.Session.CleanupInterval, logger)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Socket-ID"},
		AllowCredentials: true,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			if authRateLimiter != nil {
				r.Use(authRateLimiter.Middleware)
			}
			r.Route("/auth", authHandler.RegisterPublicRoutes)
		})

		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.SessionAuth(authService))
			if messageRateLimiter != nil {
				r.Use(messageRateLimiter.PerUserMiddleware)
			}

			r.Route("/auth", authHandler.RegisterProtectedRoutes)
			r.Route("/users", userHandler.RegisterRoutes)
			r.Route("/rooms", roomHandler.RegisterRoutes)
			r.Route("/messages", messageHandler.RegisterRoutes)
			r.Route("/reactions", reactionHandler.RegisterRoutes)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	hub.Shutdown()

	logger.Info("server shutdown complete")
}

// runSessionCleanup periodically deletes expired sessions so the table does
// not accumulate dead rows. Expired sessions are already rejected at
// validation time; this is purely housekeeping.
func runSessionCleanup(ctx context.Context, sessions ports.SessionRepository, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Error("session cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("expired sessions deleted", "count", deleted)
			}
		}
	}
}
