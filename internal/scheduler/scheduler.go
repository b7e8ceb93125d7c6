package scheduler

import (
	"context"
	"log"
	"time"
)

// Job is one scheduled unit of work. It receives a context that is cancelled
// when the scheduler stops or the per-run timeout expires.
type Job func(ctx context.Context)

// Scheduler runs a Job at a fixed rate. The first run starts immediately.
// Runs never overlap within one Scheduler: ticks that fire while a run is
// still in progress are dropped.
type Scheduler struct {
	Period  time.Duration
	Timeout time.Duration
	Job     Job
	Logger  *log.Logger

	runs uint64
}

func New(period, timeout time.Duration, job Job) *Scheduler {
	return &Scheduler{
		Period:  period,
		Timeout: timeout,
		Job:     job,
		Logger:  log.Default(),
	}
}

// Run blocks until ctx is cancelled and returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Period)
	defer ticker.Stop()

	s.Logger.Printf("[scheduler] running every %s", s.Period)
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Printf("[scheduler] stopping after %d runs", s.runs)
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.runs++

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			s.Logger.Printf("[scheduler] ERROR: run %d panicked: %v", s.runs, p)
		}
	}()

	started := time.Now()
	s.Job(runCtx)
	if elapsed := time.Since(started); elapsed > s.Period {
		s.Logger.Printf("[scheduler] WARNING: run %d took %s, longer than the %s period", s.runs, elapsed, s.Period)
	}
}
