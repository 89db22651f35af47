// Package schedule runs periodic background jobs for `serve`, currently the
// ICS export of the event store.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"deskcal/internal/ics"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
)

// EventLister returns the events to publish, in store order.
type EventLister interface {
	Events() []model.Event
}

// Scheduler wraps a cron runner with logging around every job.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Add registers fn under a standard 5-field cron spec.
func (s *Scheduler) Add(name, spec string, fn func() error) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("schedule %s: invalid cron %q: %w", name, spec, err)
	}
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := fn(); err != nil {
			appLog.Error("scheduled job failed", err, "job", name)
			return
		}
		appLog.Info("scheduled job done", "job", name, "took", time.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	appLog.Info("job scheduled", "job", name, "cron", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// ExportJob returns a job writing the events of src to path as ICS. mu is
// held while reading the events so the job never observes a half-applied
// mutation.
func ExportJob(src EventLister, mu sync.Locker, path string) func() error {
	return func() error {
		mu.Lock()
		events := src.Events()
		mu.Unlock()

		if err := ics.WriteFile(path, events, time.Now()); err != nil {
			return err
		}
		appLog.Debug("ics exported", "path", path, "count", len(events))
		return nil
	}
}
