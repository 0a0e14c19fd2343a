package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "casahunt/propertyworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Scrape.do fetch collaborator
	ScrapeDoToken string
	ScrapeDoURL   string
	FetchTimeout  time.Duration

	// Memcache configuration (per-source fetch block keys)
	MemcacheAddr    string
	SourceBlockTime time.Duration

	// Postgres configuration; empty disables the store gateway
	DatabaseURL     string
	FreshnessWindow time.Duration

	// Redis configuration (fresh-listing streams)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Background refresh
	RefreshInterval time.Duration
	RefreshCities   []string

	// Parsing limits
	MaxListingsPerSource int

	// Base URLs for the listing sources
	MercadoLibreURL string
	VivanunciosURL  string
	PulppoURL       string
	Inmuebles24URL  string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "60"))
	blockTime, _ := strconv.Atoi(getEnv("SOURCE_BLOCK_SECONDS", "300"))
	refreshInterval, _ := strconv.Atoi(getEnv("REFRESH_INTERVAL_SECONDS", "3600"))
	freshnessDays, _ := strconv.Atoi(getEnv("FRESHNESS_WINDOW_DAYS", "30"))
	maxListings, _ := strconv.Atoi(getEnv("MAX_LISTINGS_PER_SOURCE", "20"))

	return Config{
		ScrapeDoToken:        os.Getenv("SCRAPEDO_TOKEN"),
		ScrapeDoURL:          getEnv("SCRAPEDO_URL", "https://api.scrape.do/"),
		FetchTimeout:         time.Duration(fetchTimeout) * time.Second,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		SourceBlockTime:      time.Duration(blockTime) * time.Second,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		FreshnessWindow:      time.Duration(freshnessDays) * 24 * time.Hour,
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "listings"),
		RedisStreamMaxLength: streamMaxLen,
		RefreshInterval:      time.Duration(refreshInterval) * time.Second,
		RefreshCities:        splitList(getEnv("REFRESH_CITIES", "mexico city,guadalajara,monterrey")),
		MaxListingsPerSource: maxListings,
		MercadoLibreURL:      getEnv("MERCADOLIBRE_URL", "https://inmuebles.mercadolibre.com.mx"),
		VivanunciosURL:       getEnv("VIVANUNCIOS_URL", "https://www.vivanuncios.com.mx"),
		PulppoURL:            getEnv("PULPPO_URL", "https://pulppo.com"),
		Inmuebles24URL:       getEnv("INMUEBLES24_URL", "https://www.inmuebles24.com"),
		Environment:          getEnv("PROPERTYWORKER_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.ScrapeDoToken == "" {
		return apperrors.NewConfiguration("SCRAPEDO_TOKEN is required", nil)
	}
	if c.FetchTimeout <= 0 {
		return apperrors.NewConfiguration("fetch timeout must be positive", nil)
	}
	if c.FreshnessWindow <= 0 {
		return apperrors.NewConfiguration("freshness window must be positive", nil)
	}
	if c.MaxListingsPerSource <= 0 {
		return apperrors.NewConfiguration("max listings per source must be positive", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
