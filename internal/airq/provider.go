package airq

import (
	"context"
	"time"
)

// Provider abstracts an upstream air-quality data source (e.g. WAQI, Open-Meteo).
// Fetch returns the raw payload for a city; it may fail, omit the forecast,
// or omit individual pollutants.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, city City) (RawPayload, error)
}

// Store is the contract the in-memory store (and any future persistent store)
// must satisfy: append-only history plus latest reads, keyed by city.
type Store interface {
	Append(city City, snapshot MetricSnapshot) error
	GetLatest(city City) (MetricSnapshot, error)
	GetLatestBefore(city City, t time.Time) (MetricSnapshot, error)
	GetRange(city City, from, to time.Time) ([]MetricSnapshot, error)
}
