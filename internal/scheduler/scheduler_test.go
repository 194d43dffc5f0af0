package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/air-quality-monitor/internal/airq"
)

// fakeRefresher records refreshed cities and fails for the configured ones.
type fakeRefresher struct {
	mu      sync.Mutex
	calls   map[string]int
	failing map[string]bool
}

func newFakeRefresher(failing ...string) *fakeRefresher {
	f := &fakeRefresher{
		calls:   make(map[string]int),
		failing: make(map[string]bool),
	}
	for _, key := range failing {
		f.failing[key] = true
	}
	return f
}

func (f *fakeRefresher) RefreshOne(ctx context.Context, city airq.City) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[city.Key()]++
	if f.failing[city.Key()] {
		return errors.New("upstream is down")
	}
	return nil
}

func (f *fakeRefresher) count(city airq.City) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[city.Key()]
}

func TestRunCycleIsolatesFailingCity(t *testing.T) {
	a := airq.City{Name: "Amsterdam", Country: "NL"}
	b := airq.City{Name: "Berlin", Country: "DE"}
	c := airq.City{Name: "Copenhagen", Country: "DK"}

	refresher := newFakeRefresher(b.Key())
	s := New([]airq.City{a, b, c}, time.Minute, refresher)
	defer s.Stop()

	// Must not panic and must wait for every city despite B failing.
	s.RunCycle()

	for _, city := range []airq.City{a, b, c} {
		if refresher.count(city) != 1 {
			t.Fatalf("expected %s to be refreshed once, got %d", city.Key(), refresher.count(city))
		}
	}
}

func TestRunCycleAfterStopIsNoOp(t *testing.T) {
	a := airq.City{Name: "Amsterdam", Country: "NL"}

	refresher := newFakeRefresher()
	s := New([]airq.City{a}, time.Minute, refresher)

	s.RunCycle()
	s.Stop()
	s.RunCycle()

	if got := refresher.count(a); got != 1 {
		t.Fatalf("expected no refresh after Stop, got %d total", got)
	}
}

func TestStartWithoutCities(t *testing.T) {
	s := New(nil, time.Minute, newFakeRefresher())
	defer s.Stop()

	if err := s.Start(); err != nil {
		t.Fatalf("expected start with no cities to be a no-op, got %v", err)
	}
}
