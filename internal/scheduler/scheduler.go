package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/earthscape/climate-analytics/internal/weather"
)

// Fetcher records a fresh prediction for a tracked location.
type Fetcher interface {
	FetchAndStore(ctx context.Context, loc weather.Location) error
}

// Scheduler periodically refreshes predictions for tracked locations and,
// optionally, retrains the model on a cron schedule.
type Scheduler struct {
	scheduler   *gocron.Scheduler
	fetcher     Fetcher
	locations   []weather.Location
	interval    time.Duration
	retrainCron string
	retrain     func() error
	jobTimeout  time.Duration
}

// New creates a new Scheduler. retrain may be nil, and an empty retrainCron
// disables the retrain job.
func New(locations []weather.Location, interval time.Duration, fetcher Fetcher, retrainCron string, retrain func() error) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		scheduler:   gocron.NewScheduler(time.UTC),
		fetcher:     fetcher,
		locations:   locations,
		interval:    interval,
		retrainCron: retrainCron,
		retrain:     retrain,
		jobTimeout:  30 * time.Second,
	}
}

// Start registers the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	jobs := 0

	if len(s.locations) == 0 || s.fetcher == nil {
		log.Println("scheduler: no locations configured; skipping prediction refresh")
	} else {
		if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.refresh); err != nil {
			return err
		}
		jobs++
	}

	if s.retrainCron != "" && s.retrain != nil {
		if _, err := s.scheduler.Cron(s.retrainCron).SingletonMode().Do(s.runRetrain); err != nil {
			return err
		}
		log.Printf("scheduler: model retrain scheduled with %q", s.retrainCron)
		jobs++
	}

	if jobs == 0 {
		return nil
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) refresh() {
	log.Println("scheduler: refreshing predictions")

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		wg.Add(1)
		go func(loc weather.Location) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
			defer cancel()

			if err := s.fetcher.FetchAndStore(ctx, loc); err != nil {
				log.Printf("scheduler: refresh failed for %s: %v", loc.Key(), err)
			}
		}(loc)
	}
	wg.Wait()
	log.Println("scheduler: refresh completed")
}

func (s *Scheduler) runRetrain() {
	log.Println("scheduler: retraining model")
	if err := s.retrain(); err != nil {
		log.Printf("scheduler: retrain failed: %v", err)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
