package airq

import (
	"context"
	"log"
	"math"
	"time"
)

const (
	// DefaultTimelineDays is the length of the rolling daily history window.
	DefaultTimelineDays = 7

	// defaultSeedIndex seeds the carry-forward when neither history nor a
	// fresh fetch yields a starting value. 75 sits mid-Moderate: neither
	// alarming nor falsely reassuring.
	defaultSeedIndex = 75
)

// FetchFunc fetches a fresh snapshot for a city, bypassing any cache.
type FetchFunc func(ctx context.Context, city City) (MetricSnapshot, error)

// TimelineBuilder produces a fixed-length rolling daily history for a city by
// aggregating persisted snapshots per day and carrying the last known index
// forward across days without data.
type TimelineBuilder struct {
	store      Store
	fetch      FetchFunc
	now        func() time.Time
	windowDays int
}

// NewTimelineBuilder creates a TimelineBuilder. fetch may be nil, in which
// case the fresh-fetch seed tier is skipped. windowDays <= 0 falls back to
// DefaultTimelineDays.
func NewTimelineBuilder(store Store, fetch FetchFunc, now func() time.Time, windowDays int) *TimelineBuilder {
	if now == nil {
		now = time.Now
	}
	if windowDays <= 0 {
		windowDays = DefaultTimelineDays
	}
	return &TimelineBuilder{
		store:      store,
		fetch:      fetch,
		now:        now,
		windowDays: windowDays,
	}
}

// BuildTimeline returns exactly windowDays entries covering the calendar days
// up to and including today, in ascending date order with no gaps. Days
// without persisted samples carry the previous day's index forward; store
// failures degrade to "no data" and never abort the build.
func (b *TimelineBuilder) BuildTimeline(ctx context.Context, city City) []TimelineEntry {
	today := b.now().UTC()
	windowStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(b.windowDays - 1))

	lastKnown := b.seedIndex(ctx, city, windowStart)

	entries := make([]TimelineEntry, 0, b.windowDays)
	for i := 0; i < b.windowDays; i++ {
		day := windowStart.AddDate(0, 0, i)

		if index, ok := b.dayMean(city, day); ok {
			lastKnown = index
		}

		cls := ClassifyIndex(lastKnown)
		entries = append(entries, TimelineEntry{
			Date:         day,
			Weekday:      day.Weekday().String(),
			WeekdayShort: day.Format("Mon"),
			Index:        lastKnown,
			Category:     cls.Category,
			Color:        cls.Color,
		})
	}

	return entries
}

// seedIndex resolves the carry-forward starting value through a three-tier
// cascade: last persisted snapshot before the window, then a fresh fetch,
// then the fixed default.
func (b *TimelineBuilder) seedIndex(ctx context.Context, city City, windowStart time.Time) int {
	if snap, err := b.store.GetLatestBefore(city, windowStart); err == nil {
		return snap.Index
	}

	if b.fetch != nil {
		snap, err := b.fetch(ctx, city)
		if err == nil {
			return snap.Index
		}
		log.Printf("timeline: seed fetch failed for %s: %v", city.Key(), err)
	}

	return defaultSeedIndex
}

// dayMean returns the mean index of all persisted samples on the given
// calendar day, rounded half away from zero. ok is false when the day has no
// samples or the store read fails.
func (b *TimelineBuilder) dayMean(city City, day time.Time) (int, bool) {
	dayEnd := day.AddDate(0, 0, 1).Add(-time.Nanosecond)

	samples, err := b.store.GetRange(city, day, dayEnd)
	if err != nil || len(samples) == 0 {
		return 0, false
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s.Index)
	}
	return int(math.Round(sum / float64(len(samples)))), true
}
