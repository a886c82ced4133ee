package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/raincoat/internal/outfit"
	"github.com/i474232898/raincoat/internal/weather"
)

// Fetcher fetches and stores a fresh report for a location.
type Fetcher interface {
	FetchAndStore(ctx context.Context, loc weather.Location) (weather.Report, error)
}

// Scheduler periodically refreshes reports for watched locations so the
// HTTP API can answer from the store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	builder   *outfit.Builder
	locations []weather.Location
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. builder may be nil, in which case refreshed
// reports are not classified.
func New(locations []weather.Location, interval time.Duration, fetcher Fetcher, builder *outfit.Builder) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		fetcher:   fetcher,
		builder:   builder,
		locations: locations,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		log.Println("scheduler: no locations configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() { s.RunOnce() })
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every watched location concurrently and waits for all
// of them. It returns the number of successful refreshes.
func (s *Scheduler) RunOnce() int {
	log.Println("scheduler: running weather fetch job")

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, loc := range s.locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			r, err := s.fetcher.FetchAndStore(ctx, loc)
			if err != nil {
				log.Printf("scheduler: fetch failed for %s: %v", loc.Key(), err)
				return
			}

			mu.Lock()
			ok++
			mu.Unlock()

			if s.builder != nil {
				f := r.Current.Fahrenheit()
				log.Printf("scheduler: %s (%s) %.2f°F -> %+v", loc.Key(), r.City.Name, f, s.builder.Build(f))
			}
		}()
	}
	wg.Wait()
	log.Println("scheduler: completed weather fetch job")
	return ok
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
