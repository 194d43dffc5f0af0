package airq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errNoHistory = errors.New("no history")

// fakeStore is an in-memory airq.Store used across the package tests.
type fakeStore struct {
	mu        sync.Mutex
	snapshots map[string][]MetricSnapshot
	appendErr error
	readErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[string][]MetricSnapshot)}
}

func (f *fakeStore) Append(city City, snapshot MetricSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.snapshots[city.Key()] = append(f.snapshots[city.Key()], snapshot)
	return nil
}

func (f *fakeStore) GetLatest(city City) (MetricSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return MetricSnapshot{}, f.readErr
	}
	history := f.snapshots[city.Key()]
	if len(history) == 0 {
		return MetricSnapshot{}, errNoHistory
	}
	return history[len(history)-1], nil
}

func (f *fakeStore) GetLatestBefore(city City, t time.Time) (MetricSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return MetricSnapshot{}, f.readErr
	}
	history := f.snapshots[city.Key()]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Timestamp.Before(t) {
			return history[i], nil
		}
	}
	return MetricSnapshot{}, errNoHistory
}

func (f *fakeStore) GetRange(city City, from, to time.Time) ([]MetricSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	var result []MetricSnapshot
	for _, snap := range f.snapshots[city.Key()] {
		if !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			result = append(result, snap)
		}
	}
	if len(result) == 0 {
		return nil, errNoHistory
	}
	return result, nil
}

func (f *fakeStore) count(city City) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots[city.Key()])
}

var testCity = City{Name: "Krakow", Country: "PL"}

func fixedNow(t *testing.T, s string) func() time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad time %q: %v", s, err)
	}
	return func() time.Time { return ts }
}

func assertTimelineShape(t *testing.T, entries []TimelineEntry, windowDays int, today time.Time) {
	t.Helper()
	if len(entries) != windowDays {
		t.Fatalf("expected %d entries, got %d", windowDays, len(entries))
	}
	for i, entry := range entries {
		want := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, -(windowDays - 1 - i))
		if !entry.Date.Equal(want) {
			t.Fatalf("entry %d: expected date %v, got %v", i, want, entry.Date)
		}
		if entry.Weekday != entry.Date.Weekday().String() {
			t.Fatalf("entry %d: wrong weekday %q", i, entry.Weekday)
		}
		if entry.WeekdayShort != entry.Date.Format("Mon") {
			t.Fatalf("entry %d: wrong short weekday %q", i, entry.WeekdayShort)
		}
		if entry.Category == "" || entry.Color == "" {
			t.Fatalf("entry %d missing classification", i)
		}
	}
}

func TestBuildTimelineEmptyStoreUsesDefaultSeed(t *testing.T) {
	now := fixedNow(t, "2026-03-10T15:00:00Z")
	builder := NewTimelineBuilder(newFakeStore(), nil, now, 7)

	entries := builder.BuildTimeline(context.Background(), testCity)
	assertTimelineShape(t, entries, 7, now())

	for i, entry := range entries {
		if entry.Index != defaultSeedIndex {
			t.Fatalf("entry %d: expected default seed %d, got %d", i, defaultSeedIndex, entry.Index)
		}
	}
}

func TestBuildTimelineSeedsFromHistoryBeforeWindow(t *testing.T) {
	now := fixedNow(t, "2026-03-10T15:00:00Z")
	fs := newFakeStore()
	fs.snapshots[testCity.Key()] = []MetricSnapshot{
		{City: testCity, Timestamp: time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC), Index: 120},
	}

	// A fetch func that must not be reached: tier (a) succeeds.
	fetch := func(ctx context.Context, city City) (MetricSnapshot, error) {
		t.Fatalf("fetch tier used despite available history")
		return MetricSnapshot{}, nil
	}

	builder := NewTimelineBuilder(fs, fetch, now, 7)
	entries := builder.BuildTimeline(context.Background(), testCity)

	for i, entry := range entries {
		if entry.Index != 120 {
			t.Fatalf("entry %d: expected carried seed 120, got %d", i, entry.Index)
		}
	}
}

func TestBuildTimelineSeedsFromFreshFetch(t *testing.T) {
	now := fixedNow(t, "2026-03-10T15:00:00Z")

	fetch := func(ctx context.Context, city City) (MetricSnapshot, error) {
		return MetricSnapshot{City: city, Index: 42}, nil
	}

	builder := NewTimelineBuilder(newFakeStore(), fetch, now, 7)
	entries := builder.BuildTimeline(context.Background(), testCity)

	for i, entry := range entries {
		if entry.Index != 42 {
			t.Fatalf("entry %d: expected fetched seed 42, got %d", i, entry.Index)
		}
	}
}

func TestBuildTimelineDayMeanAndCarryForward(t *testing.T) {
	now := fixedNow(t, "2026-03-10T15:00:00Z")
	fs := newFakeStore()

	// Two samples on March 8th; their mean rounds half away from zero.
	fs.snapshots[testCity.Key()] = []MetricSnapshot{
		{City: testCity, Timestamp: time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC), Index: 100},
		{City: testCity, Timestamp: time.Date(2026, 3, 8, 18, 0, 0, 0, time.UTC), Index: 101},
	}

	builder := NewTimelineBuilder(fs, nil, now, 7)
	entries := builder.BuildTimeline(context.Background(), testCity)
	assertTimelineShape(t, entries, 7, now())

	// Window is March 4th through 10th; the 8th is index 4.
	for i, entry := range entries {
		want := defaultSeedIndex
		if i >= 4 {
			want = 101 // mean of 100 and 101, rounded half away from zero
		}
		if entry.Index != want {
			t.Fatalf("entry %d (%v): expected %d, got %d", i, entry.Date, want, entry.Index)
		}
	}
}

func TestBuildTimelineDegradesOnStoreFailure(t *testing.T) {
	now := fixedNow(t, "2026-03-10T15:00:00Z")
	fs := newFakeStore()
	fs.readErr = errors.New("store down")

	builder := NewTimelineBuilder(fs, nil, now, 7)
	entries := builder.BuildTimeline(context.Background(), testCity)
	assertTimelineShape(t, entries, 7, now())

	for i, entry := range entries {
		if entry.Index != defaultSeedIndex {
			t.Fatalf("entry %d: expected default seed on store failure, got %d", i, entry.Index)
		}
	}
}
