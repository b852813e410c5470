package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"screenpoints/internal/analytics"
	"screenpoints/internal/config"
	"screenpoints/internal/database"
	"screenpoints/internal/handlers"
	"screenpoints/internal/metrics"
	"screenpoints/internal/repository"
	"screenpoints/internal/security"
	"screenpoints/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database connection established", zap.String("type", cfg.DatabaseType))

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("migrations completed")

	m := metrics.New()

	// Repositories
	parentRepo := repository.NewParentRepository(db)
	childRepo := repository.NewChildRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Services
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenDuration)
	authService := service.NewAuthService(parentRepo, tokens, logger)
	childService := service.NewChildService(childRepo, logger)
	calculator := service.NewPointsCalculator()
	ledgerService := service.NewLedgerService(ledgerRepo, childRepo, calculator, logger, m)
	rewardService := service.NewRewardService(rewardRepo, logger)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, logger)
	if err != nil {
		logger.Fatal("failed to initialize email service", zap.Error(err))
	}

	redemptionService := service.NewRedemptionService(ledgerService, rewardService, childRepo, parentRepo, redemptionRepo, emailService, logger, m)

	// Analytics pipeline
	installKey, err := settingsRepo.EnsureInstallKey()
	if err != nil {
		logger.Fatal("failed to load install key", zap.Error(err))
	}
	anonymizer, err := analytics.NewAnonymizer(installKey)
	if err != nil {
		logger.Fatal("failed to initialize anonymizer", zap.Error(err))
	}
	eventService := analytics.NewEventService(anonymizer, eventRepo, logger, m)

	scheduler := analytics.NewScheduler(analytics.NewEngine(), eventRepo, metricsRepo, cfg.EventRetention, logger, m)
	if err := scheduler.Start(cfg.AggregationSchedule, cfg.PurgeSchedule); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// OAuth providers; unconfigured ones are rejected at request time
	oauthProviders := map[string]handlers.OAuthProvider{
		"google": handlers.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret),
		"apple":  handlers.AppleProvider(cfg.AppleClientID, cfg.AppleClientSecret),
	}

	// Handlers
	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, logger)
	middleware := handlers.NewMiddleware(authService, limiter, logger)
	authHandler := handlers.NewAuthHandler(authService, oauthProviders, cfg.AppBaseURL, logger)
	childHandler := handlers.NewChildHandler(childService, logger)
	usageHandler := handlers.NewUsageHandler(ledgerService, childService, logger)
	rewardHandler := handlers.NewRewardHandler(rewardService, logger)
	redemptionHandler := handlers.NewRedemptionHandler(redemptionService, childService, logger)
	eventsHandler := handlers.NewEventsHandler(eventService, logger)
	metricsHandler := handlers.NewMetricsHandler(metricsRepo, logger)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("GET /api/auth/oauth/{provider}", authHandler.StartOAuth)
	mux.HandleFunc("GET /api/auth/oauth/{provider}/callback", authHandler.OAuthCallback)
	mux.HandleFunc("GET /api/categories", usageHandler.Categories)

	// Children
	mux.HandleFunc("POST /api/children", middleware.RequireAuth(childHandler.Create))
	mux.HandleFunc("GET /api/children", middleware.RequireAuth(childHandler.List))
	mux.HandleFunc("GET /api/children/{id}", middleware.RequireAuth(childHandler.Get))
	mux.HandleFunc("PUT /api/children/{id}", middleware.RequireAuth(childHandler.Update))
	mux.HandleFunc("GET /api/children/{id}/stats", middleware.RequireAuth(childHandler.Stats))

	// Ledger
	mux.HandleFunc("POST /api/usage/sessions", middleware.RequireAuth(usageHandler.RecordSession))
	mux.HandleFunc("GET /api/children/{id}/balance", middleware.RequireAuth(usageHandler.Balance))
	mux.HandleFunc("GET /api/children/{id}/ledger", middleware.RequireAuth(usageHandler.History))
	mux.HandleFunc("GET /api/children/{id}/sessions", middleware.RequireAuth(usageHandler.Sessions))
	mux.HandleFunc("POST /api/children/{id}/reconcile", middleware.RequireAuth(usageHandler.Reconcile))

	// Rewards and redemptions
	mux.HandleFunc("POST /api/rewards", middleware.RequireAuth(rewardHandler.Create))
	mux.HandleFunc("GET /api/rewards", middleware.RequireAuth(rewardHandler.List))
	mux.HandleFunc("GET /api/rewards/{id}", middleware.RequireAuth(rewardHandler.Get))
	mux.HandleFunc("PUT /api/rewards/{id}", middleware.RequireAuth(rewardHandler.Update))
	mux.HandleFunc("DELETE /api/rewards/{id}", middleware.RequireAuth(rewardHandler.Deactivate))
	mux.HandleFunc("POST /api/redemptions", middleware.RequireAuth(redemptionHandler.Redeem))
	mux.HandleFunc("GET /api/children/{id}/redemptions", middleware.RequireAuth(redemptionHandler.History))

	// Analytics
	mux.HandleFunc("POST /api/events", middleware.RequireAuth(eventsHandler.Ingest))
	mux.HandleFunc("GET /api/metrics/aggregates", middleware.RequireAuth(metricsHandler.Aggregates))

	// Operational metrics
	mux.Handle("GET /metrics", m.Handler())

	handler := handlers.Logging(logger)(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
