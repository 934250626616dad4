package log

import (
	"time"

	"github.com/rs/zerolog/log"
)

// StepLogger logs the progress of a named sequence of steps and a timing
// summary once they finish.
type StepLogger struct {
	name      string
	steps     []string
	current   int
	started   time.Time
	stepStart time.Time
	durations []time.Duration
}

// NewStepLogger creates a step logger for steps, run in order.
func NewStepLogger(name string, steps []string) *StepLogger {
	return &StepLogger{
		name:      name,
		steps:     steps,
		current:   -1,
		started:   time.Now(),
		durations: make([]time.Duration, len(steps)),
	}
}

// StartStep begins stepName. Unknown names are logged and ignored.
func (sl *StepLogger) StartStep(stepName string) {
	idx := -1
	for i, s := range sl.steps {
		if s == stepName {
			idx = i
			break
		}
	}
	if idx < 0 {
		log.Warn().Str("step", stepName).Msg("Unknown pipeline step")
		return
	}

	sl.current = idx
	sl.stepStart = time.Now()
	log.Info().
		Str("pipeline", sl.name).
		Str("step", stepName).
		Int("step_number", idx+1).
		Int("total_steps", len(sl.steps)).
		Msg("Starting pipeline step")
}

// CompleteStep records the duration of the current step.
func (sl *StepLogger) CompleteStep() time.Duration {
	if sl.current < 0 {
		return 0
	}
	d := time.Since(sl.stepStart)
	sl.durations[sl.current] = d
	return d
}

// Durations returns the recorded duration of each step, in step order.
func (sl *StepLogger) Durations() map[string]time.Duration {
	out := make(map[string]time.Duration, len(sl.steps))
	for i, s := range sl.steps {
		out[s] = sl.durations[i]
	}
	return out
}

// Finish logs the per-step timing summary.
func (sl *StepLogger) Finish() time.Duration {
	total := time.Since(sl.started)
	log.Info().Str("pipeline", sl.name).Dur("total_duration", total).Msg("Pipeline completed")
	for i, step := range sl.steps {
		pct := 0.0
		if total > 0 {
			pct = float64(sl.durations[i]) / float64(total) * 100
		}
		log.Debug().
			Str("step", step).
			Dur("duration", sl.durations[i]).
			Float64("percentage", pct).
			Msgf("  %d. %s", i+1, step)
	}
	return total
}

// Fail logs that the current step failed.
func (sl *StepLogger) Fail(reason string) {
	name := "unknown"
	if sl.current >= 0 {
		name = sl.steps[sl.current]
	}
	log.Error().
		Str("pipeline", sl.name).
		Str("failed_step", name).
		Int("completed_steps", sl.current).
		Int("total_steps", len(sl.steps)).
		Str("reason", reason).
		Msg("Pipeline failed")
}
