package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/mkarpov-dev/fishcast/internal/cache"
	"github.com/mkarpov-dev/fishcast/internal/locwatch"
)

// Scheduler periodically refreshes the active location's forecast bundle and
// sweeps expired cache entries.
type Scheduler struct {
	scheduler *gocron.Scheduler
	watcher   *locwatch.Watcher
	cache     *cache.Cache
	interval  time.Duration
}

func New(watcher *locwatch.Watcher, c *cache.Cache, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		watcher:   watcher,
		cache:     c,
		interval:  interval,
	}
}

// Start schedules the refresh and sweep jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		loc, _, _ := s.watcher.Current()
		if loc == nil {
			return
		}
		log.Printf("scheduler: refreshing forecast for %s", loc.ID())
		s.watcher.Refresh()
	})
	if err != nil {
		return err
	}

	// Sweep hourly so dead entries do not accumulate between reads.
	_, err = s.scheduler.Every(1).Hours().Do(func() {
		s.cache.Sweep()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
