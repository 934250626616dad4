package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fourdrun/internal/application/pipeline"
	"github.com/sawpanic/fourdrun/internal/config"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.RunResult, error)
}

// JobResult represents the result of one scheduled run
type JobResult struct {
	RunID     string        `json:"run_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// Status represents scheduler status
type Status struct {
	Running  bool          `json:"running"`
	Interval time.Duration `json:"interval"`
	Runs     int           `json:"runs"`
	Failures int           `json:"failures"`
	NextRun  time.Time     `json:"next_run"`
	LastRun  *JobResult    `json:"last_run,omitempty"`
	Uptime   time.Duration `json:"uptime"`
}

// Scheduler runs the pipeline at a fixed interval.
type Scheduler struct {
	runner Runner
	cfg    config.ScheduleConfig

	mu        sync.Mutex
	running   bool
	startTime time.Time
	nextRun   time.Time
	runs      int
	failures  int
	last      *JobResult
}

// New creates a scheduler. The interval must be positive.
func New(runner Runner, cfg config.ScheduleConfig) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler: nil runner")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive, got %s", cfg.Interval)
	}
	return &Scheduler{runner: runner, cfg: cfg}, nil
}

// Start runs the pipeline on every tick until ctx is cancelled, and once
// up front when RunOnStart is set. It returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.startTime = time.Now()
	s.nextRun = s.startTime.Add(s.cfg.Interval)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Info().
		Dur("interval", s.cfg.Interval).
		Bool("run_on_start", s.cfg.RunOnStart).
		Msg("Scheduler starting")

	if s.cfg.RunOnStart {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopped")
			return ctx.Err()
		case now := <-ticker.C:
			s.mu.Lock()
			s.nextRun = now.Add(s.cfg.Interval)
			s.mu.Unlock()
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes the pipeline immediately and records the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) *JobResult {
	result := &JobResult{StartTime: time.Now(), Success: true}

	res, err := s.runner.Run(ctx)
	if res != nil {
		result.RunID = res.ID
		if !res.Success {
			result.Success = false
			if len(res.Errors) > 0 {
				result.Error = res.Errors[0].Step + ": " + res.Errors[0].Message
			}
		}
	}
	if err != nil {
		result.Success = false
		result.Error = err.Error()
	}
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	s.mu.Lock()
	s.runs++
	if !result.Success {
		s.failures++
	}
	s.last = result
	s.mu.Unlock()

	ev := log.Info()
	if !result.Success {
		ev = log.Warn().Str("error", result.Error)
	}
	ev.Str("run_id", result.RunID).
		Dur("duration", result.Duration).
		Bool("success", result.Success).
		Msg("Scheduled run finished")
	return result
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:  s.running,
		Interval: s.cfg.Interval,
		Runs:     s.runs,
		Failures: s.failures,
	}
	if s.running {
		st.Uptime = time.Since(s.startTime)
		st.NextRun = s.nextRun
	}
	if s.last != nil {
		last := *s.last
		st.LastRun = &last
	}
	return st
}
