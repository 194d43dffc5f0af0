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
	"github.com/kelvins/geocoder"

	httpapi "github.com/i474232898/air-quality-monitor/internal/api/http"
	"github.com/i474232898/air-quality-monitor/internal/airq"
	"github.com/i474232898/air-quality-monitor/internal/airq/providers"
	"github.com/i474232898/air-quality-monitor/internal/cache"
	"github.com/i474232898/air-quality-monitor/internal/config"
	"github.com/i474232898/air-quality-monitor/internal/scheduler"
	"github.com/i474232898/air-quality-monitor/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Open-Meteo needs coordinates; resolve them up front for cities that
	// were configured without, if a geocoder key is available.
	if cfg.GeocoderAPIKey != "" {
		geocoder.ApiKey = cfg.GeocoderAPIKey
		resolveCoordinates(cfg.Cities)
	}

	// Providers with resilience (backoff + circuit breaker), tried in order.
	provs := []airq.Provider{
		providers.NewWAQIProvider(httpClient, cfg.WAQIAPIToken),
		providers.NewOpenMeteoProvider(httpClient),
	}

	// TTL cache publishing the live and forecast views.
	ttlCache := cache.New(nil)

	// Core service orchestrating providers, store and cache.
	service := airq.NewService(memStore, provs, ttlCache, airq.ServiceConfig{
		LiveTTL:      cfg.LiveTTL,
		ForecastTTL:  cfg.ForecastTTL,
		DedupWindow:  cfg.DedupWindow,
		TimelineDays: cfg.TimelineDays,
	})

	// Scheduler that periodically refreshes every configured city.
	sched := scheduler.New(cfg.Cities, cfg.FetchInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "air-quality-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
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

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "air-quality-monitor",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// resolveCoordinates fills in missing city coordinates via the geocoder.
// Failures are logged and left unresolved; the WAQI provider does not need
// coordinates.
func resolveCoordinates(cities []airq.City) {
	for i := range cities {
		if cities[i].Lat != nil && cities[i].Lon != nil {
			continue
		}

		location, err := geocoder.Geocoding(geocoder.Address{
			City:    cities[i].Name,
			Country: cities[i].Country,
		})
		if err != nil {
			log.Printf("geocoding failed for %s: %v", cities[i].Key(), err)
			continue
		}

		lat, lon := location.Latitude, location.Longitude
		cities[i].Lat = &lat
		cities[i].Lon = &lon
	}
}
