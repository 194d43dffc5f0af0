package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/air-quality-monitor/internal/airq"
)

type AppConfig struct {
	WAQIAPIToken   string
	GeocoderAPIKey string

	// FetchInterval controls how often the scheduler refreshes each city.
	FetchInterval time.Duration

	// Cache freshness budgets per namespace.
	LiveTTL     time.Duration
	ForecastTTL time.Duration

	// DedupWindow is the minimum elapsed time before an unchanged index is
	// persisted again.
	DedupWindow time.Duration

	// TimelineDays is the length of the rolling daily history window.
	TimelineDays int

	// Cities to track.
	Cities []airq.City

	// In-memory store retention.
	StoreMaxHistory int           // max number of snapshots per city (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	HTTPTimeout time.Duration
	Port        string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.WAQIAPIToken = os.Getenv("WAQI_API_TOKEN")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	var err error
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "10m"); err != nil {
		return nil, err
	}
	if cfg.LiveTTL, err = getenvDuration("LIVE_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.ForecastTTL, err = getenvDuration("FORECAST_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.DedupWindow, err = getenvDuration("DEDUP_WINDOW", "5m"); err != nil {
		return nil, err
	}

	cfg.TimelineDays = getenvInt("TIMELINE_DAYS", airq.DefaultTimelineDays)

	// Store retention: default 288 snapshots is roughly 2 days at 10-minute
	// intervals per city.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 288)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "240h"); err != nil {
		return nil, err
	}

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.Port = getenvDefault("PORT", "8080")

	cities, err := loadCities()
	if err != nil {
		return nil, err
	}
	cfg.Cities = cities

	return cfg, nil
}

func loadCities() ([]airq.City, error) {
	city := os.Getenv("AQI_CITIES")
	country := os.Getenv("AQI_COUNTRIES")
	cities := strings.Split(city, ",")
	countries := strings.Split(country, ",")
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}
	var out []airq.City
	for i := range cities {
		out = append(out, airq.City{
			Name:    strings.TrimSpace(cities[i]),
			Country: strings.TrimSpace(countries[i]),
		})
	}

	return out, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
