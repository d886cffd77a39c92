package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mkarpov-dev/fishcast/internal/ai"
	httpapi "github.com/mkarpov-dev/fishcast/internal/api/http"
	"github.com/mkarpov-dev/fishcast/internal/cache"
	"github.com/mkarpov-dev/fishcast/internal/config"
	"github.com/mkarpov-dev/fishcast/internal/forecast"
	"github.com/mkarpov-dev/fishcast/internal/gear"
	"github.com/mkarpov-dev/fishcast/internal/geo"
	"github.com/mkarpov-dev/fishcast/internal/locwatch"
	"github.com/mkarpov-dev/fishcast/internal/scheduler"
	"github.com/mkarpov-dev/fishcast/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Persistent on-device cache store; fall back to memory when the file
	// store cannot be opened.
	var kv store.KV
	if cfg.CachePath != "" {
		sqliteKV, err := store.OpenSQLite(cfg.CachePath)
		if err != nil {
			log.Printf("cache store unavailable at %s, using in-memory store: %v", cfg.CachePath, err)
			kv = store.NewMemoryKV()
		} else {
			defer sqliteKV.Close()
			kv = sqliteKV
		}
	} else {
		kv = store.NewMemoryKV()
	}
	cacheStore := cache.New(kv)

	// Upstream clients and the merge service.
	weatherClient := forecast.NewWeatherClient(httpClient, cfg.ForecastBaseURL)
	marineClient := forecast.NewMarineClient(httpClient, cfg.MarineBaseURL)
	svc := forecast.NewService(weatherClient, marineClient)

	fetch := func(ctx context.Context, loc locwatch.LocationPoint) (*forecast.Bundle, error) {
		return svc.Fetch(ctx, loc.Latitude, loc.Longitude)
	}

	// Location watcher, gear pipeline, and collaborators.
	watcher := locwatch.New(fetch, cacheStore, locwatch.Options{
		Debounce:    cfg.LocationDebounce,
		FreshWindow: cfg.FreshWindow,
		TTL:         cfg.CacheTTL,
	})
	aiClient := ai.NewClient(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
	pipeline := gear.NewPipeline(cacheStore, fetch, aiClient)
	resolver := geo.NewResolver(cfg.GeocoderAPIKey)

	// Background refresh and cache sweeping.
	sched := scheduler.New(watcher, cacheStore, cfg.RefreshInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "fishcast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "fishcast",
		})
	})

	httpapi.RegisterRoutes(app, watcher, pipeline, resolver)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
