package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	apirouter "github.com/bookline-ai/bookline/internal/api/router"
	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/internal/availability"
	"github.com/bookline-ai/bookline/internal/catalog"
	appconfig "github.com/bookline-ai/bookline/internal/config"
	"github.com/bookline-ai/bookline/internal/conversation"
	"github.com/bookline-ai/bookline/internal/customer"
	"github.com/bookline-ai/bookline/internal/flow"
	"github.com/bookline-ai/bookline/internal/http/handlers"
	"github.com/bookline-ai/bookline/internal/messaging"
	"github.com/bookline-ai/bookline/internal/observability/metrics"
	"github.com/bookline-ai/bookline/internal/onboarding"
	"github.com/bookline-ai/bookline/internal/org"
	"github.com/bookline-ai/bookline/internal/router"
	"github.com/bookline-ai/bookline/internal/schedule"
	"github.com/bookline-ai/bookline/internal/staff"
	"github.com/bookline-ai/bookline/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bookline API server", "env", cfg.Env, "port", cfg.Port)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pg pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	registry := prometheus.NewRegistry()
	routerMetrics := metrics.NewRouterMetrics(registry)

	// Repositories.
	orgs := org.NewRepository(pool)
	staffRepo := staff.NewRepository(pool)
	customers := customer.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)
	schedules := schedule.NewRepository(pool)
	apptRepo := appointment.NewRepository(pool)
	sessions := flow.NewStore(pool)
	conversations := conversation.NewStore(pool)
	leads := onboarding.NewRepository(pool)
	inbound := router.NewInboundStore(pool)

	// Domain services.
	apptService := appointment.NewService(apptRepo, appointment.NewResolver(apptRepo), catalogRepo, logger)
	engine := availability.NewEngine(orgs, catalogRepo, staffRepo, schedules, apptRepo, cfg.SlotIntervalMinutes, logger)

	// Agent loop.
	var agent conversation.AgentClient
	if client := conversation.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel); client != nil {
		agent = client
	} else {
		logger.Warn("OPENAI_API_KEY not set, customer replies degrade to the scripted fallback")
	}
	runner := conversation.NewRunner(agent, cfg.AgentMaxToolRounds, logger)

	// Handlers.
	customerHandler := conversation.NewCustomerHandler(
		conversations, sessions, customers, apptService, engine, catalogRepo,
		runner, cfg.AbandonTimeout, logger,
	)
	staffHandler := conversation.NewStaffHandler(apptService, schedules, customers, catalogRepo, logger)
	onboardingHandler := onboarding.NewHandler(leads, logger)

	var transport messaging.Transport
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		transport = messaging.NewTwilioWhatsAppSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.CentralNumber, logger)
	} else {
		logger.Warn("twilio credentials not set, outbound messages are dropped")
		transport = messaging.NewNoopTransport()
	}

	rt := router.New(router.Config{
		Pool:            pool,
		Orgs:            orgs,
		Staff:           staffRepo,
		Customers:       customers,
		Inbound:         inbound,
		Locker:          router.NewLocker(redisClient, cfg.ConversationLockTTL),
		CustomerHandler: customerHandler,
		StaffHandler:    staffHandler,
		Onboarding:      onboardingHandler,
		Transport:       transport,
		CentralNumber:   cfg.CentralNumber,
		Metrics:         routerMetrics,
		Logger:          logger,
	})

	handler := apirouter.New(&apirouter.Config{
		Logger:          logger,
		Webhook:         handlers.NewWebhookHandler(rt, cfg.TwilioWebhookSecret, logger),
		Simulate:        handlers.NewSimulateHandler(rt, logger),
		Availability:    handlers.NewAvailabilityHandler(engine, logger),
		Appointments:    handlers.NewAppointmentHandler(apptService, logger),
		Catalog:         handlers.NewCatalogHandler(catalogRepo, logger),
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret: cfg.AdminJWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
