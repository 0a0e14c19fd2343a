package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"casahunt/propertyworker/config"
	"casahunt/propertyworker/internal/scraper"
	"casahunt/propertyworker/logger"
	"casahunt/propertyworker/services/cache"
	"casahunt/propertyworker/services/fetch"
	"casahunt/propertyworker/services/publisher"
	"casahunt/propertyworker/services/search"
	"casahunt/propertyworker/services/store"
	"casahunt/propertyworker/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("refresh_interval", cfg.RefreshInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Create source adapters
	adapters := scraper.BuildAdapters(cfg)
	log.Info().
		Int("adapter_count", len(adapters)).
		Msg("Created source adapters")

	orchestrator, err := search.NewOrchestrator(adapters, services.Fetcher, cfg.FetchTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create orchestrator")
	}

	var listingStore search.ListingStore
	var history worker.History
	if services.Store != nil {
		listingStore = services.Store
		history = services.Store
	}
	service := search.NewService(orchestrator, listingStore, services.Publisher)

	// Create and start the refresh worker
	w := worker.NewWorker(service, services.Publisher, history, cfg.RefreshCities, cfg.RefreshInterval)

	workerDone := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(workerDone)
	}()

	// Wait for shutdown signal or worker exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case <-workerDone:
		log.Info().Msg("Worker exited")
	}

	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Fetcher   fetch.Fetcher
	Store     *store.Store
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize cache service
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	services.Cache = cacheService
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize the fetch client
	services.Fetcher = fetch.NewScrapeDoClient(cfg, cacheService)

	// The store is optional: without DATABASE_URL the worker runs
	// scrape-only.
	if cfg.DatabaseURL != "" {
		st, err := store.New(ctx, cfg.DatabaseURL, cfg.FreshnessWindow)
		if err != nil {
			return nil, err
		}
		services.Store = st
		logger.Info("Connected to Postgres")
	} else {
		logger.Warn("DATABASE_URL not set, running without persistence")
	}

	// Initialize publisher
	services.Publisher = publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLength,
	)
	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return services, nil
}
