package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/KOFI-GYIMAH/github-popularity/docs"
	"github.com/KOFI-GYIMAH/github-popularity/internal/cache"
	"github.com/KOFI-GYIMAH/github-popularity/internal/config"
	"github.com/KOFI-GYIMAH/github-popularity/internal/db"
	"github.com/KOFI-GYIMAH/github-popularity/internal/gateway"
	"github.com/KOFI-GYIMAH/github-popularity/internal/github"
	"github.com/KOFI-GYIMAH/github-popularity/internal/handler"
	md "github.com/KOFI-GYIMAH/github-popularity/internal/middleware"
	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/internal/queue"
	"github.com/KOFI-GYIMAH/github-popularity/internal/scoring"
	"github.com/KOFI-GYIMAH/github-popularity/internal/service"
	"github.com/KOFI-GYIMAH/github-popularity/internal/worker"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title GitHub Popularity Service
// @version 1.0.0
// @description Ranks recently created GitHub repositories by stars, forks and freshness.
// @host localhost:8081
// @BasePath /v1
func main() {
	// * Load configuration
	cfg, err := config.LoadConfiguration()
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// * Initialize GitHub client behind the circuit breaker
	githubClient, err := github.NewClient(cfg.ClientOptions())
	if err != nil {
		logger.Error("Failed to create GitHub client: %v", err)
		os.Exit(1)
	}
	if cfg.GitHub.Token == "" {
		logger.Warn("GITHUB_TOKEN not set, using the unauthenticated search quota")
	}
	searchGateway := gateway.New(githubClient, cfg.GatewaySettings())

	// * Optional search history
	var history models.SearchHistory
	if cfg.DBURL != "" {
		database, err := db.NewPostgresDB(cfg.DBURL)
		if err != nil {
			logger.Error("Failed to initialize database: %v", err)
			os.Exit(1)
		}
		defer database.Close()

		if err := database.Migrate(db.DefaultMigrationsURL); err != nil {
			logger.Error("Failed to run migrations: %v", err)
			os.Exit(1)
		}
		logger.Info("Successfully ran migrations")
		history = database
	}

	// * Create services
	resultCache := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	popularityService := service.NewPopularityService(
		searchGateway,
		scoring.NewScorer(cfg.Scoring),
		resultCache,
		history,
		cfg.ServiceOptions(),
	)

	// * Start cache warmer
	warmer := worker.NewCacheWarmer(popularityService, cfg.WarmupInterval, cfg.WarmupQueries)
	go warmer.Run(ctx)

	// * Optional warm-up queue
	var publisher handler.WarmupPublisher
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("Failed to initialize RabbitMQ: %v", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()

		if err := rabbitMQ.ConsumeWarmupRequests(ctx, warmer.HandleWarmupRequest); err != nil {
			logger.Error("Failed to consume warm-up requests: %v", err)
			os.Exit(1)
		}
		publisher = rabbitMQ
	}

	// * Create API server
	router := mux.NewRouter()
	router.Use(md.RequestID, md.LoggingMiddleware, md.Recovery)
	api := router.PathPrefix("/v1").Subrouter()

	handler.NewPopularityHandler(popularityService, publisher).RegisterRoutes(api)
	handler.NewHealthHandler(searchGateway, resultCache).RegisterRoutes(api)
	router.PathPrefix("/v1/swagger/").Handler(httpSwagger.WrapHandler)

	server := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting API server on %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server error: %v", err)
			os.Exit(1)
		}
	}()

	// * Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
