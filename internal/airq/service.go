package airq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i474232898/air-quality-monitor/internal/cache"
)

// ErrNoData signals that no view could be produced for a city: the cache was
// empty and the synchronous refresh left it empty. Not an internal failure.
var ErrNoData = errors.New("air quality data unavailable for city")

// ServiceConfig bundles the tunables of the refresh pipeline.
type ServiceConfig struct {
	LiveTTL      time.Duration
	ForecastTTL  time.Duration
	DedupWindow  time.Duration
	ForecastDays int
	TimelineDays int

	// Now is the clock used for cache staleness and forecast windows.
	// Nil means time.Now.
	Now func() time.Time
}

// Service orchestrates the refresh pipeline: upstream fetch, classification,
// deduplicated persistence, forecast alignment and cache publication. It also
// serves the cached read API consumed by the HTTP layer.
type Service struct {
	store     Store
	providers []Provider
	cache     *cache.Cache
	guard     Guard
	timeline  *TimelineBuilder
	now       func() time.Time

	liveTTL      time.Duration
	forecastTTL  time.Duration
	forecastDays int

	sf singleflight.Group
}

// NewService creates a new Service.
func NewService(store Store, providers []Provider, c *cache.Cache, cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.LiveTTL <= 0 {
		cfg.LiveTTL = 10 * time.Minute
	}
	if cfg.ForecastTTL <= 0 {
		cfg.ForecastTTL = time.Hour
	}
	if cfg.ForecastDays <= 0 {
		cfg.ForecastDays = DefaultForecastDays
	}

	s := &Service{
		store:        store,
		providers:    providers,
		cache:        c,
		guard:        NewGuard(cfg.DedupWindow),
		now:          now,
		liveTTL:      cfg.LiveTTL,
		forecastTTL:  cfg.ForecastTTL,
		forecastDays: cfg.ForecastDays,
	}
	s.timeline = NewTimelineBuilder(store, s.fetchSnapshot, now, cfg.TimelineDays)
	return s
}

// RefreshOne runs the full refresh pipeline for one city: fetch, snapshot
// build, persistence decision, conditional store write, forecast alignment
// and cache publication for the live and forecast namespaces. Persistence and
// cache publication are two explicit ordered steps: a store write failure is
// reported but does not prevent the fresh view from being published.
func (s *Service) RefreshOne(ctx context.Context, city City) error {
	payload, err := s.fetchPayload(ctx, city)
	if err != nil {
		return err
	}

	snapshot, err := s.buildSnapshot(city, payload)
	if err != nil {
		return err
	}

	var writeErr error
	last, lastErr := s.store.GetLatest(city)
	if s.guard.ShouldWrite(snapshot, last, lastErr == nil) {
		if err := s.store.Append(city, snapshot); err != nil {
			writeErr = fmt.Errorf("%w: %v", ErrWriteFailure, err)
			log.Printf("service: store append failed for %s: %v", city.Key(), err)
		}
	}

	if len(payload.Forecast) > 0 {
		forecast := AlignForecast(payload.Forecast, s.now().UTC(), s.forecastDays)
		if len(forecast) > 0 {
			s.cache.Set(cache.NamespaceForecast, city.Key(), forecast)
		}
	}

	cls := ClassifyIndex(snapshot.Index)
	s.cache.Set(cache.NamespaceLive, city.Key(), AirQualityView{
		Snapshot: snapshot,
		Category: cls.Category,
		Color:    cls.Color,
		Advisory: cls.Advisory,
	})

	return writeErr
}

// GetLiveView returns the cached live view for a city, refreshing it
// synchronously on a cache miss. Concurrent misses for the same city collapse
// into a single upstream refresh.
func (s *Service) GetLiveView(ctx context.Context, city City) (AirQualityView, error) {
	key := city.Key()

	if view, ok := cache.Lookup[AirQualityView](s.cache, cache.NamespaceLive, key, s.liveTTL); ok {
		return view, nil
	}

	err := s.refreshShared(ctx, city)

	if view, ok := cache.Lookup[AirQualityView](s.cache, cache.NamespaceLive, key, s.liveTTL); ok {
		return view, nil
	}
	if err != nil {
		return AirQualityView{}, err
	}
	return AirQualityView{}, ErrNoData
}

// GetForecastView returns the cached aligned forecast for a city, refreshing
// it synchronously on a cache miss.
func (s *Service) GetForecastView(ctx context.Context, city City) ([]ForecastDayEntry, error) {
	key := city.Key()

	if forecast, ok := cache.Lookup[[]ForecastDayEntry](s.cache, cache.NamespaceForecast, key, s.forecastTTL); ok {
		return forecast, nil
	}

	err := s.refreshShared(ctx, city)

	if forecast, ok := cache.Lookup[[]ForecastDayEntry](s.cache, cache.NamespaceForecast, key, s.forecastTTL); ok {
		return forecast, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, ErrNoData
}

// GetTimeline returns the rolling daily history for a city. It never fails;
// sparse history degrades to carried-forward values.
func (s *Service) GetTimeline(ctx context.Context, city City) []TimelineEntry {
	return s.timeline.BuildTimeline(ctx, city)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(city City, from, to time.Time) ([]MetricSnapshot, error) {
	return s.store.GetRange(city, from, to)
}

// refreshShared runs RefreshOne behind a singleflight group so that N
// concurrent cache-miss readers cause one upstream fetch.
func (s *Service) refreshShared(ctx context.Context, city City) error {
	_, err, _ := s.sf.Do(city.Key(), func() (any, error) {
		return nil, s.RefreshOne(ctx, city)
	})
	return err
}

// fetchPayload tries the configured providers in order and returns the first
// successful payload.
func (s *Service) fetchPayload(ctx context.Context, city City) (RawPayload, error) {
	if len(s.providers) == 0 {
		return RawPayload{}, fmt.Errorf("%w: no providers configured", ErrNotConfigured)
	}

	var lastErr error
	for _, p := range s.providers {
		payload, err := p.Fetch(ctx, city)
		if err != nil {
			log.Printf("provider %s fetch failed for %s: %v", p.Name(), city.Key(), err)
			lastErr = err
			continue
		}
		return payload, nil
	}

	if errors.Is(lastErr, ErrNotConfigured) {
		return RawPayload{}, lastErr
	}
	return RawPayload{}, fmt.Errorf("%w: %v", ErrFetchUnavailable, lastErr)
}

// fetchSnapshot fetches and builds a snapshot without touching the store or
// the cache. Used as the timeline seed tier that bypasses the cache.
func (s *Service) fetchSnapshot(ctx context.Context, city City) (MetricSnapshot, error) {
	payload, err := s.fetchPayload(ctx, city)
	if err != nil {
		return MetricSnapshot{}, err
	}
	return s.buildSnapshot(city, payload)
}

// buildSnapshot validates a raw payload and normalizes it into a snapshot.
// When the upstream omits the overall index it is derived from the first
// priority pollutant with a concentration.
func (s *Service) buildSnapshot(city City, payload RawPayload) (MetricSnapshot, error) {
	index := 0
	switch {
	case payload.Index != nil:
		index = *payload.Index
	default:
		derived := false
		for _, pollutant := range indexPriority {
			if conc, ok := payload.Concentrations[pollutant]; ok && conc != nil {
				index = ConvertConcentrationToIndex(*conc)
				derived = true
				break
			}
		}
		if !derived {
			return MetricSnapshot{}, fmt.Errorf("%w: no index and no usable concentration", ErrMalformedPayload)
		}
	}

	if index < 0 {
		index = 0
	}

	ts := payload.Timestamp.UTC()
	if ts.IsZero() {
		ts = s.now().UTC()
	}

	return MetricSnapshot{
		City:              city,
		Timestamp:         ts,
		Index:             index,
		DominantPollutant: payload.DominantPollutant,
		Concentrations:    payload.Concentrations,
	}, nil
}
