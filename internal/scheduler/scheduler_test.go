package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/fourdrun/internal/application/pipeline"
	"github.com/sawpanic/fourdrun/internal/config"
)

type countingRunner struct {
	mu    sync.Mutex
	calls int
	err   error
	fail  bool
}

func (r *countingRunner) Run(ctx context.Context) (*pipeline.RunResult, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	res := &pipeline.RunResult{ID: "run-1", Success: !r.fail}
	if r.fail {
		res.Errors = []pipeline.StepError{{Step: "fetch", Message: "feed down"}}
	}
	return res, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, config.ScheduleConfig{Interval: time.Second})
	assert.Error(t, err)
	_, err = New(&countingRunner{}, config.ScheduleConfig{})
	assert.Error(t, err)
}

func TestStart_RunsOnStartAndOnTicks(t *testing.T) {
	runner := &countingRunner{}
	s, err := New(runner, config.ScheduleConfig{Interval: 10 * time.Millisecond, RunOnStart: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return runner.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Status().Running)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	st := s.Status()
	assert.False(t, st.Running)
	assert.GreaterOrEqual(t, st.Runs, 3)
	assert.Zero(t, st.Failures)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, "run-1", st.LastRun.RunID)
}

func TestStart_RejectsSecondStart(t *testing.T) {
	s, err := New(&countingRunner{}, config.ScheduleConfig{Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Start(ctx) }()
	require.Eventually(t, func() bool { return s.Status().Running }, time.Second, time.Millisecond)

	assert.Error(t, s.Start(ctx))
}

func TestRunOnce_RecordsFailures(t *testing.T) {
	s, err := New(&countingRunner{fail: true}, config.ScheduleConfig{Interval: time.Hour})
	require.NoError(t, err)
	res := s.RunOnce(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "fetch: feed down", res.Error)

	s, err = New(&countingRunner{err: errors.New("db gone")}, config.ScheduleConfig{Interval: time.Hour})
	require.NoError(t, err)
	res = s.RunOnce(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "db gone", res.Error)

	st := s.Status()
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 1, st.Failures)
}
