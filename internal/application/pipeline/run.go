package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	logprogress "github.com/sawpanic/fourdrun/internal/log"
	"github.com/sawpanic/fourdrun/internal/stats"
)

// Step names used in RunResult.StepDurations.
const (
	RunStepFetch   = "fetch"
	RunStepSettle  = "settle"
	RunStepPredict = "predict"
	RunStepBox     = "box"
)

// Run fetches the latest results, settles outstanding predictions and boxes
// against them, then predicts and builds a new box from the updated history.
// A failed fetch is recorded and the run continues on the stored history;
// any other failure stops the run. Concurrent calls are serialised.
func (e *Executor) Run(ctx context.Context) (*RunResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	startTime := time.Now()
	result := &RunResult{
		ID:            uuid.New().String(),
		StepDurations: make(map[string]time.Duration),
		Errors:        []StepError{},
	}
	logger := log.With().Str("run_id", result.ID).Logger()

	var agg *stats.Aggregate
	steps := []struct {
		name     string
		optional bool
		fn       func(ctx context.Context) error
	}{
		{RunStepFetch, true, func(ctx context.Context) error {
			if e.feed == nil {
				return nil
			}
			res, err := e.Fetch(ctx)
			result.Fetch = res
			return err
		}},
		{RunStepSettle, false, func(ctx context.Context) error {
			res, err := e.Settle(ctx)
			result.Settlement = res
			return err
		}},
		{RunStepPredict, false, func(ctx context.Context) error {
			var err error
			if agg, err = e.aggregate(ctx); err != nil {
				return err
			}
			res, err := e.predict(ctx, agg)
			result.Predict = res
			return err
		}},
		{RunStepBox, false, func(ctx context.Context) error {
			res, err := e.buildBox(ctx, agg)
			result.Box = res
			return err
		}},
	}

	var stepLogger *logprogress.StepLogger
	if e.progress {
		names := make([]string, len(steps))
		for i, s := range steps {
			names[i] = s.name
		}
		stepLogger = logprogress.NewStepLogger("fourdrun", names)
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if stepLogger != nil {
			stepLogger.StartStep(step.name)
		}

		stepStart := time.Now()
		err := step.fn(ctx)
		result.StepDurations[step.name] = time.Since(stepStart)
		if stepLogger != nil {
			stepLogger.CompleteStep()
		}

		if err == nil {
			continue
		}
		result.Errors = append(result.Errors, StepError{Step: step.name, Message: err.Error()})
		if step.optional {
			logger.Warn().Str("step", step.name).Err(err).Msg("Pipeline step failed, continuing")
			continue
		}

		if stepLogger != nil {
			stepLogger.Fail(err.Error())
		}
		logger.Error().
			Str("step", step.name).
			Err(err).
			Dur("step_duration", result.StepDurations[step.name]).
			Msg("Pipeline step failed")
		result.TotalDuration = time.Since(startTime)
		return result, fmt.Errorf("pipeline failed at step %s: %w", step.name, err)
	}

	result.Success = len(result.Errors) == 0
	result.TotalDuration = time.Since(startTime)
	if stepLogger != nil {
		stepLogger.Finish()
	}

	logger.Info().
		Dur("total_duration", result.TotalDuration).
		Bool("success", result.Success).
		Msg("Pipeline run completed")
	return result, nil
}
