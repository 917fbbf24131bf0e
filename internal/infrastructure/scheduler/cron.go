package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"nudge/internal/ports"
)

// CronScheduler runs a job on a standard five-field cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger

	mu   sync.Mutex
	cron *rcron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for spec evaluated in location.
func NewCronScheduler(spec string, location *time.Location, logger *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CronScheduler{spec: spec, location: location, logger: logger.With("component", "cron")}
}

// Validate parses the expression without starting anything.
func Validate(spec string) error {
	if _, err := rcron.ParseStandard(spec); err != nil {
		return fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return nil
}

// Next reports when spec next fires after from.
func Next(spec string, from time.Time) (time.Time, error) {
	sched, err := rcron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return sched.Next(from), nil
}

// Start registers job and starts the cron loop. It stops when ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := rcron.New(
		rcron.WithLocation(c.location),
		rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger)),
	)
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}
	cr.Start()
	c.cron = cr

	if entries := cr.Entries(); len(entries) > 0 {
		c.logger.Info("cron started", "spec", c.spec, "next", entries[0].Next)
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the cron loop and waits for a running job, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}

	select {
	case <-cr.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
