package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/air-quality-monitor/internal/airq"
)

var (
	// ErrNotFound is returned when no data is available for a given city.
	ErrNotFound = errors.New("no air quality data for city")
)

// snapshotHistory holds a time-ordered list of snapshots for a city.
type snapshotHistory struct {
	snapshots []airq.MetricSnapshot
}

// MemoryStore is a concurrency-safe in-memory implementation of airq.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: city key, value: history
	data map[string]*snapshotHistory

	// retention configuration
	maxHistory int           // max number of snapshots per city
	maxAge     time.Duration // optional max age for snapshots
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*snapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Append adds a new snapshot for a city and enforces retention.
func (s *MemoryStore) Append(city airq.City, snapshot airq.MetricSnapshot) error {
	key := city.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &snapshotHistory{}
		s.data[key] = history
	}

	history.snapshots = append(history.snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.snapshots) > s.maxHistory {
		over := len(history.snapshots) - s.maxHistory
		history.snapshots = history.snapshots[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.snapshots); i++ {
			if !history.snapshots[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(history.snapshots) {
			history.snapshots = history.snapshots[i:]
		}
	}

	return nil
}

// GetLatest returns the most recent snapshot for a city.
func (s *MemoryStore) GetLatest(city airq.City) (airq.MetricSnapshot, error) {
	key := city.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.snapshots) == 0 {
		return airq.MetricSnapshot{}, ErrNotFound
	}
	return history.snapshots[len(history.snapshots)-1], nil
}

// GetLatestBefore returns the most recent snapshot strictly before t.
func (s *MemoryStore) GetLatestBefore(city airq.City, t time.Time) (airq.MetricSnapshot, error) {
	key := city.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.snapshots) == 0 {
		return airq.MetricSnapshot{}, ErrNotFound
	}

	for i := len(history.snapshots) - 1; i >= 0; i-- {
		if history.snapshots[i].Timestamp.Before(t) {
			return history.snapshots[i], nil
		}
	}
	return airq.MetricSnapshot{}, ErrNotFound
}

// GetRange returns all snapshots for a city between from and to (inclusive).
func (s *MemoryStore) GetRange(city airq.City, from, to time.Time) ([]airq.MetricSnapshot, error) {
	key := city.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []airq.MetricSnapshot
	for _, snap := range history.snapshots {
		if !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
