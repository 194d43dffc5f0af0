package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/air-quality-monitor/internal/airq"
)

// Refresher refreshes the data for a single city.
type Refresher interface {
	RefreshOne(ctx context.Context, city airq.City) error
}

// Scheduler periodically refreshes air quality data for the configured
// cities. Each cycle fans out one concurrent refresh per city and waits for
// all of them; a failing city never affects its siblings or the next cycle.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	cities    []airq.City
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	fetchTimeout time.Duration
}

// New creates a new Scheduler.
func New(cities []airq.City, interval time.Duration, service Refresher) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler:    gocron.NewScheduler(time.UTC),
		service:      service,
		cities:       cities,
		interval:     interval,
		ctx:          ctx,
		cancel:       cancel,
		fetchTimeout: 30 * time.Second,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first cycle runs immediately; subsequent cycles are anchored to cycle
// start, not cycle completion.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		log.Println("scheduler: no cities configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.RunCycle)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunCycle refreshes every configured city concurrently and returns once all
// refreshes have finished. Per-city errors are logged with the city key and
// never escape the cycle. A stopped scheduler starts no new refreshes.
func (s *Scheduler) RunCycle() {
	if s.ctx.Err() != nil {
		return
	}

	log.Println("scheduler: running air quality refresh cycle")

	var wg sync.WaitGroup
	for _, city := range s.cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()

			// An in-flight refresh is allowed to complete even if
			// Stop is called; its context is not the scheduler's.
			ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
			defer cancel()

			if err := s.service.RefreshOne(ctx, city); err != nil {
				log.Printf("scheduler: refresh failed for %s: %v", city.Key(), err)
			}
		}()
	}
	wg.Wait()

	log.Println("scheduler: completed air quality refresh cycle")
}

// Stop prevents new cycles from starting and stops the underlying scheduler.
// In-flight refreshes complete naturally.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
