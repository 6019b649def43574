package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"repairdesk-service/internal/domain/repository"
	"repairdesk-service/internal/infrastructure/config"
	"repairdesk-service/internal/infrastructure/oauth"
	"repairdesk-service/internal/infrastructure/persistence"
	"repairdesk-service/internal/infrastructure/router"
	"repairdesk-service/internal/interface/api"
	"repairdesk-service/internal/interface/notify"
	repo "repairdesk-service/internal/interface/repository"
	"repairdesk-service/internal/usecase"
	"repairdesk-service/pkg/logger"
	"repairdesk-service/pkg/metrics"
	"repairdesk-service/templates"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting RepairDesk Service", "version", cfg.AppVersion)

	m := metrics.NewMetrics("repairdesk", prometheus.DefaultRegisterer)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up PostgreSQL connection
	log.Info("Connecting to PostgreSQL")
	gormDB, err := persistence.NewPostgres(cfg.PostgresDSN, cfg.DBAutoMigrate)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	// Payment numbers come from the relational store unless redis is configured
	var (
		sequence    repository.PaymentSequence = usecase.NewDatabasePaymentSequence()
		redisClient *redis.Client
	)
	if cfg.PaymentSequence == config.SequenceRedis {
		redisClient, err = persistence.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		sequence = repo.NewRedisPaymentSequence(redisClient)
	}

	// Set up repositories
	uow := repo.NewGormUnitOfWork(gormDB)
	store := repo.NewGormStore(gormDB)
	notificationRepo := repo.NewMongoNotificationRepository(db)
	auditRepo := repo.NewMongoAuditRepository(db)

	// Set up notification channels
	var notifiers []repository.Notifier
	if cfg.EmailEnabled() {
		gmailOAuth := oauth.NewGmailOAuth(cfg.GmailClientID, cfg.GmailClientSecret, "", cfg.GmailRefreshToken, log)
		emailNotifier, err := notify.NewGmailEmailNotifier(ctx, gmailOAuth.GetTokenSource(ctx), cfg.GmailSender, log)
		if err != nil {
			log.Fatal("Failed to create Gmail notifier", "error", err)
		}
		notifiers = append(notifiers, emailNotifier)
	} else {
		log.Warn("Gmail credentials missing, email notifications disabled")
	}
	if cfg.SMSEnabled() {
		notifiers = append(notifiers, notify.NewTwilioSMSNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.SMSRatePerSecond, log))
	} else {
		log.Warn("Twilio credentials missing, SMS notifications disabled")
	}
	notificationProcessor := usecase.NewNotificationProcessor(notificationRepo, m, log, cfg.NotificationMaxAttempts, notifiers...)

	// Set up event router
	eventRouter := router.NewEventRouter(log)
	eventRouter.Register(usecase.NewAuditHandler(auditRepo))
	eventRouter.Register(templates.NewTicketStatusNotificationHandler(store.Tickets(), store.Customers(), notificationProcessor, log))

	// Set up usecases
	ticketLifecycle := usecase.NewTicketLifecycle(uow, sequence, eventRouter, m, log, usecase.LifecycleOptions{
		CompletionPolicy:         cfg.CompletionPaymentPolicy,
		DefaultPaymentMethod:     cfg.DefaultPaymentMethod,
		DefaultCurrency:          cfg.DefaultCurrency,
		PaymentNumberMaxAttempts: cfg.PaymentNumberMaxAttempts,
	})
	ticketDeletion := usecase.NewTicketDeletion(uow, eventRouter, m, log, nil)

	// Retry undelivered notifications on a schedule
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.NotificationRetrySpec, func() {
		if err := notificationProcessor.ProcessPending(ctx); err != nil {
			log.Error("Error processing pending notifications", "error", err)
		}
	}); err != nil {
		log.Fatal("Invalid notification retry schedule", "spec", cfg.NotificationRetrySpec, "error", err)
	}
	scheduler.Start()

	// Set up HTTP server
	authenticator := api.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	handler := api.NewTicketHandler(ticketLifecycle, ticketDeletion, auditRepo, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(handler, authenticator, prometheus.DefaultGatherer, log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	<-scheduler.Stop().Done()

	if err := eventRouter.Shutdown(shutdownCtx); err != nil {
		log.Error("Event router shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Redis close error", "error", err)
		}
	}

	log.Info("RepairDesk Service stopped")
}
