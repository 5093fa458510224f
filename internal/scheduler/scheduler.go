// Package scheduler runs the bulk pull job on a recurring interval.
package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler periodically runs a pull job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	job       func()
}

// New creates a Scheduler that runs job every interval.
func New(interval time.Duration, job func()) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		job:       job,
	}
}

// Start schedules the job and starts the underlying scheduler. A job run
// that overlaps the next tick holds it back rather than running twice.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60 * 24
	}

	s.scheduler.SingletonModeAll()
	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: running climate pull job")
		s.job()
		log.Println("scheduler: completed climate pull job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
