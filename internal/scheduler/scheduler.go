package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of background work run on a cron schedule or on demand.
type Job interface {
	// Name identifies the job in logs and metrics.
	Name() string
	// Schedule is a cron spec such as "@daily". Empty means on-demand only.
	Schedule() string
	Execute(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]Job
}

// New creates a scheduler whose job runs are bounded by timeout.
func New(timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
		jobs:    make(map[string]Job),
	}
}

// Register adds a job and schedules it when it has a schedule.
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %q already registered", job.Name())
	}

	if spec := job.Schedule(); spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.run(job) }); err != nil {
			return fmt.Errorf("schedule job %q: %w", job.Name(), err)
		}
		slog.Info("job scheduled", "job", job.Name(), "schedule", spec)
	} else {
		slog.Info("job registered on demand", "job", job.Name())
	}

	s.jobs[job.Name()] = job
	return nil
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := job.Execute(ctx); err != nil {
		slog.Error("job failed", "job", job.Name(), "error", err)
		return
	}
	slog.Info("job completed", "job", job.Name(), "duration", time.Since(start))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out with jobs still running")
	}
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	return job.Execute(ctx)
}
