package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig carries every tunable the binary reads from the environment.
type AppConfig struct {
	Port string

	// Outbound HTTP.
	HTTPTimeout     time.Duration
	ForecastBaseURL string
	MarineBaseURL   string

	// AI scoring endpoint.
	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	// Reverse geocoding collaborator.
	GeocoderAPIKey string

	// Cache store. Empty path keeps everything in memory.
	CachePath string
	CacheTTL  time.Duration

	// Location watcher.
	LocationDebounce time.Duration
	FreshWindow      time.Duration

	// Background refresh of the active location.
	RefreshInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.AIAPIKey = os.Getenv("AI_API_KEY")
	cfg.AIBaseURL = os.Getenv("AI_BASE_URL")
	cfg.AIModel = os.Getenv("AI_MODEL")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.ForecastBaseURL = os.Getenv("FORECAST_BASE_URL")
	cfg.MarineBaseURL = os.Getenv("MARINE_BASE_URL")

	cfg.CachePath = getenvDefault("CACHE_PATH", "fishcast.db")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.LocationDebounce, err = getenvDuration("LOCATION_DEBOUNCE", "200ms"); err != nil {
		return nil, err
	}
	if cfg.FreshWindow, err = getenvDuration("FRESH_WINDOW", "5m"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
