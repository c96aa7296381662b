package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"account-lookup-api/internal/cache"
	"account-lookup-api/internal/config"
	"account-lookup-api/internal/handlers"
	"account-lookup-api/internal/messaging"
	"account-lookup-api/internal/middleware"
	"account-lookup-api/internal/oracle"
	"account-lookup-api/internal/routes"
	"account-lookup-api/internal/services"
	"account-lookup-api/pkg/database"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info("Starting Account Lookup API service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB backs both the oracle registry and the builtin oracle store
	logger.Info("Connecting to MongoDB...")
	db, err := database.NewConnection(cfg.ToDatabaseConfig())
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := db.Close(closeCtx); err != nil {
			logger.Errorf("Failed to close MongoDB connection: %v", err)
		}
	}()

	indexCtx, indexCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := db.CreateIndexes(indexCtx); err != nil {
		indexCancel()
		logger.Fatalf("Failed to create MongoDB indexes: %v", err)
	}
	indexCancel()
	logger.Info("Successfully connected to MongoDB")

	// One provider per registered oracle, selected by its configured type
	finder := oracle.NewMongoFinder(db, logger, cfg.Oracles.OperationTimeout)

	registered, err := finder.ListOracles(ctx)
	if err != nil {
		logger.Fatalf("Failed to read oracle registry: %v", err)
	}
	logger.Infof("Found %d registered oracles", len(registered))

	providers, err := oracle.BuildProviders(registered, db, logger, cfg.ToProviderConfig())
	if err != nil {
		logger.Fatalf("Failed to build oracle providers: %v", err)
	}

	participantCache := cache.NewTTLCache(cfg.Cache.TTL)

	logger.Info("Setting up RabbitMQ messaging...")
	publisher, err := messaging.NewPublisher(cfg.ToMessagingConfig())
	if err != nil {
		logger.Fatalf("Failed to create message publisher: %v", err)
	}
	defer publisher.Close()

	lookupService := services.NewLookupService(logger, finder, providers, participantCache, publisher)
	if err := lookupService.Init(ctx); err != nil {
		logger.Fatalf("Failed to initialize lookup service: %v", err)
	}
	defer func() {
		destroyCtx, destroyCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer destroyCancel()
		if err := lookupService.Destroy(destroyCtx); err != nil {
			logger.Errorf("Failed to tear down lookup service: %v", err)
		}
	}()

	eventHandler := messaging.NewEventHandler(logger, lookupService, publisher)
	eventHandler.Init()
	defer eventHandler.Destroy()
	logger.Infof("Registered %d event types", len(eventHandler.RegisteredEvents()))

	consumer, err := messaging.NewConsumer(cfg.ToConsumerConfig(), eventHandler, logger)
	if err != nil {
		logger.Fatalf("Failed to create message consumer: %v", err)
	}
	defer consumer.Stop()

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("Message consumer stopped: %v", err)
		}
	}()

	// HTTP surface: peer lookups, oracle admin, health and metrics
	authMiddleware := middleware.NewAuthMiddleware(cfg.ToAuthConfig())
	loggingMiddleware := middleware.NewLoggingMiddleware(logger, cfg.ToLoggingConfig())

	lookupHandler := handlers.NewLookupHandler(lookupService)
	oracleHandler := handlers.NewOracleHandler(lookupService)
	healthHandler := handlers.NewHealthHandler(db, lookupService, publisher, consumer)

	logger.Info("Setting up HTTP routes...")
	router := routes.NewRouter(
		lookupHandler,
		oracleHandler,
		healthHandler,
		authMiddleware,
		loggingMiddleware,
		cfg.ToRouterConfig(),
	)
	router.SetupRoutes(cfg.ToRouterConfig())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Infof("Starting HTTP server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Stop taking work before tearing down collaborators
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

func setupLogger(config *config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch config.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger.SetOutput(os.Stdout)
	return logger
}
