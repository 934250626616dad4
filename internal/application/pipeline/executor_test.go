package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/config"
	"github.com/sawpanic/fourdrun/internal/draw"
	"github.com/sawpanic/fourdrun/internal/metrics"
	"github.com/sawpanic/fourdrun/internal/persistence"
	"github.com/sawpanic/fourdrun/internal/persistence/memory"
	"github.com/sawpanic/fourdrun/internal/provider"
)

const historyCSV = `DrawDate,1st,2nd,3rd,Starter,Consolation
2025-03-01,1234,5678,9012,1111 2222,3333
2025-03-02,4321,8765,2109,,
bad-date,1234,,,,
`

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type fakeFeed struct {
	values []string
	err    error
	calls  int
}

func (f *fakeFeed) Latest(ctx context.Context) (*provider.Latest, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	winners, err := draw.WinnersFromFeed(f.values)
	if err != nil {
		return nil, err
	}
	return &provider.Latest{Values: f.values, Winners: winners, FetchedAt: time.Now()}, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newExecutor(t *testing.T, cfg *config.Config, opts ...Option) (*Executor, *persistence.Repository) {
	t.Helper()
	repo := memory.New().Repository()
	opts = append([]Option{WithRand(fixedRand(0.5))}, opts...)
	e, err := NewExecutor(cfg, repo, opts...)
	require.NoError(t, err)
	return e, repo
}

func importHistory(t *testing.T, e *Executor) *ImportResult {
	t.Helper()
	res, err := e.Import(context.Background(), strings.NewReader(historyCSV))
	require.NoError(t, err)
	return res
}

func TestNewExecutor_Validation(t *testing.T) {
	_, err := NewExecutor(config.Default(), &persistence.Repository{})
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Box.Strategy = "spiral"
	_, err = NewExecutor(cfg, memory.New().Repository())
	assert.Error(t, err)
}

func TestImport_IsIdempotent(t *testing.T) {
	m := metrics.NewRegistry()
	e, repo := newExecutor(t, config.Default(), WithMetrics(m))

	res := importHistory(t, e)
	assert.Equal(t, 3, res.Report.Rows)
	assert.Equal(t, 1, res.Report.DroppedRows)
	assert.Equal(t, 9, res.Added)

	again := importHistory(t, e)
	assert.Equal(t, 0, again.Added)

	records, err := repo.Draws.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 9)
	assert.Equal(t, 9.0, testutil.ToFloat64(m.RecordsIngested))

	_, err = e.Import(context.Background(), strings.NewReader("Date,1st\n2025-01-01,1234\n"))
	assert.Error(t, err)
}

func TestExport_RoundTripsThroughImport(t *testing.T) {
	e, _ := newExecutor(t, config.Default())
	importHistory(t, e)

	var buf bytes.Buffer
	rows, err := e.Export(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.True(t, strings.HasPrefix(buf.String(), "DrawDate,1st,2nd,3rd,Starter,Consolation\n"))
	assert.Contains(t, buf.String(), "Sat (2025-03-01),1234,5678,9012,1111 2222,3333")

	fresh, _ := newExecutor(t, config.Default())
	res, err := fresh.Import(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Added)
	assert.Zero(t, res.Report.DroppedRows)
}

func TestFetch_StoresTodayOnce(t *testing.T) {
	feed := &fakeFeed{values: []string{"1234", "42", "9999", "1111", "2222"}}
	clk := &clock{t: time.Date(2025, 3, 4, 19, 30, 0, 0, time.UTC)}
	e, repo := newExecutor(t, config.Default(), WithFeed(feed), WithClock(clk.now))
	ctx := context.Background()

	res, err := e.Fetch(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 5, res.Added)
	assert.True(t, res.Date.Equal(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)))

	date, winners, err := repo.Draws.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, date.Equal(res.Date))
	assert.Equal(t, draw.Winner{Number: "0042", Tier: draw.TierSecond}, winners[1])

	res, err = e.Fetch(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, res.Added)
}

func TestFetch_Errors(t *testing.T) {
	e, _ := newExecutor(t, config.Default())
	_, err := e.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoFeed)

	boom := errors.New("boom")
	e, _ = newExecutor(t, config.Default(), WithFeed(&fakeFeed{err: boom}))
	_, err = e.Fetch(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPredict_StoresLedgerEntry(t *testing.T) {
	e, repo := newExecutor(t, config.Default())
	ctx := context.Background()

	empty, err := e.Predict(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Ranked)
	assert.Nil(t, empty.Prediction)

	importHistory(t, e)
	res, err := e.Predict(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Prediction)
	assert.Len(t, res.Ranked, 5)
	assert.True(t, res.Prediction.HistoryTo.Equal(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)))

	stored, err := repo.Predictions.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Prediction.ID, stored.ID)
	assert.Equal(t, res.Prediction.Numbers, stored.Numbers)
	assert.False(t, stored.Settled())
}

func TestPredict_SeedIsReproducible(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Seed = 42

	run := func() []string {
		e, err := NewExecutor(cfg, memory.New().Repository())
		require.NoError(t, err)
		importHistory(t, e)
		res, err := e.Predict(context.Background())
		require.NoError(t, err)
		return res.Prediction.Numbers
	}
	assert.Equal(t, run(), run())
}

func TestBuildBox_ConstrainedReadsPreviousBoxes(t *testing.T) {
	cfg := config.Default()
	cfg.Box.Strategy = box.StrategyConstrained
	e, repo := newExecutor(t, cfg)
	ctx := context.Background()
	importHistory(t, e)

	first, err := e.BuildBox(ctx)
	require.NoError(t, err)
	second, err := e.BuildBox(ctx)
	require.NoError(t, err)

	// one previous box fully determines every cell's ranking
	assert.Equal(t, first.Result.Box, second.Result.Box)
	assert.Empty(t, second.Result.Box.Missing())

	all, err := repo.Boxes.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, box.StrategyConstrained, all[0].Strategy)
}

func TestSettle_ScoresAgainstLatestDraw(t *testing.T) {
	feed := &fakeFeed{values: []string{"1234", "8765", "0000"}}
	clk := &clock{t: time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)}
	m := metrics.NewRegistry()
	e, repo := newExecutor(t, config.Default(), WithFeed(feed), WithClock(clk.now), WithMetrics(m))
	ctx := context.Background()

	none, err := e.Settle(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	importHistory(t, e)
	pred, err := e.Predict(ctx)
	require.NoError(t, err)
	built, err := e.BuildBox(ctx)
	require.NoError(t, err)

	// nothing newer than the history the prediction was built from
	early, err := e.Settle(ctx)
	require.NoError(t, err)
	assert.Nil(t, early.Prediction)
	assert.Empty(t, early.Boxes)

	_, err = e.Fetch(ctx)
	require.NoError(t, err)

	res, err := e.Settle(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Prediction)
	assert.Equal(t, pred.Prediction.ID, res.Prediction.ID)
	assert.Equal(t, len(pred.Prediction.Numbers), res.Prediction.Stats.Total)
	require.Len(t, res.Boxes, 1)
	assert.Equal(t, built.Record.ID, res.Boxes[0].ID)

	stored, err := repo.Predictions.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, stored.Settled())
	assert.Equal(t, res.Prediction.Stats.String(), stored.Stats)

	boxes, err := repo.Boxes.Unsettled(ctx)
	require.NoError(t, err)
	assert.Empty(t, boxes)
	latestBox, err := repo.Boxes.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(latestBox.Stats, "▶ iBet Winning rate: "))

	assert.Contains(t, m.Snapshot(), "grid_direct")

	again, err := e.Settle(ctx)
	require.NoError(t, err)
	assert.Nil(t, again.Prediction)
	assert.Empty(t, again.Boxes)
}

func TestRun_FullCycle(t *testing.T) {
	feed := &fakeFeed{values: []string{"1234", "8765", "0000", "4321"}}
	clk := &clock{t: time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)}
	e, _ := newExecutor(t, config.Default(), WithFeed(feed), WithClock(clk.now), WithProgress())
	ctx := context.Background()
	importHistory(t, e)

	first, err := e.Run(ctx)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 4, first.Fetch.Added)
	require.NotNil(t, first.Settlement)
	assert.Nil(t, first.Settlement.Prediction)
	require.NotNil(t, first.Predict.Prediction)
	require.NotNil(t, first.Box)
	assert.Len(t, first.StepDurations, 4)

	clk.t = clk.t.AddDate(0, 0, 1)
	second, err := e.Run(ctx)
	require.NoError(t, err)
	assert.True(t, second.Success)
	require.NotNil(t, second.Settlement.Prediction)
	assert.Equal(t, first.Predict.Prediction.ID, second.Settlement.Prediction.ID)
	require.Len(t, second.Settlement.Boxes, 1)
	assert.Equal(t, first.Box.Record.ID, second.Settlement.Boxes[0].ID)
	assert.Equal(t, 2, feed.calls)
}

func TestRun_FeedFailureIsNotFatal(t *testing.T) {
	e, _ := newExecutor(t, config.Default(), WithFeed(&fakeFeed{err: errors.New("down")}))
	importHistory(t, e)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, RunStepFetch, res.Errors[0].Step)
	require.NotNil(t, res.Predict)
	assert.NotNil(t, res.Predict.Prediction)
}

func TestRun_EmptyHistoryWithoutFeed(t *testing.T) {
	e, _ := newExecutor(t, config.Default())

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.Fetch)
	assert.Nil(t, res.Settlement)
	assert.Empty(t, res.Predict.Ranked)
	require.NotNil(t, res.Box)
	assert.Empty(t, res.Box.Result.Box.Missing())
}

func TestRun_CancelledContext(t *testing.T) {
	e, _ := newExecutor(t, config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
