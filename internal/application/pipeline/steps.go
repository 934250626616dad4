package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/draw"
	"github.com/sawpanic/fourdrun/internal/match"
	"github.com/sawpanic/fourdrun/internal/metrics"
	"github.com/sawpanic/fourdrun/internal/persistence"
	"github.com/sawpanic/fourdrun/internal/stats"
)

// Fetch pulls the latest results and appends them to the history under
// today's date, unless that date is already stored.
func (e *Executor) Fetch(ctx context.Context) (*FetchResult, error) {
	if e.feed == nil {
		return nil, ErrNoFeed
	}
	timer := e.metrics.StartStepTimer(metrics.StepFetch)

	latest, err := e.feed.Latest(ctx)
	if err != nil {
		timer.Stop(metrics.ResultError)
		e.metrics.RecordPipelineError(metrics.StepFetch, "feed")
		return nil, fmt.Errorf("fetch latest results: %w", err)
	}

	now := e.now()
	res := &FetchResult{
		Date:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Numbers: len(latest.Winners),
		Cached:  latest.Cached,
	}

	exists, err := e.repo.Draws.HasDate(ctx, res.Date)
	if err != nil {
		timer.Stop(metrics.ResultError)
		return nil, fmt.Errorf("check draw date: %w", err)
	}
	if exists {
		res.Skipped = true
		timer.Stop(metrics.ResultSkipped)
		log.Info().Str("date", draw.FormatDrawDate(res.Date)).Msg("Results for today already stored")
		return res, nil
	}

	records, report := draw.Normalize([]draw.RawRow{draw.RowFromWinners(res.Date, latest.Winners)})
	added, err := e.ingest(ctx, records)
	if err != nil {
		timer.Stop(metrics.ResultError)
		return nil, err
	}
	res.Added = added
	timer.Stop(metrics.ResultSuccess)

	log.Info().
		Str("date", draw.FormatDrawDate(res.Date)).
		Int("numbers", res.Numbers).
		Int("added", added).
		Int("dropped", report.DroppedNumbers).
		Bool("cached", res.Cached).
		Msg("Latest results stored")
	return res, nil
}

// Import reads results-sheet CSV rows from r into the history.
func (e *Executor) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	timer := e.metrics.StartStepTimer(metrics.StepIngest)

	rows, err := draw.ReadCSV(r)
	if err != nil {
		timer.Stop(metrics.ResultError)
		e.metrics.RecordPipelineError(metrics.StepIngest, "csv")
		return nil, fmt.Errorf("read history csv: %w", err)
	}
	records, report := draw.Normalize(rows)
	added, err := e.ingest(ctx, records)
	if err != nil {
		timer.Stop(metrics.ResultError)
		return nil, err
	}
	timer.Stop(metrics.ResultSuccess)

	log.Info().
		Int("rows", report.Rows).
		Int("records", report.Records).
		Int("added", added).
		Int("dropped_rows", report.DroppedRows).
		Int("dropped_numbers", report.DroppedNumbers).
		Msg("History imported")
	return &ImportResult{Report: report, Added: added}, nil
}

// Export writes the stored history to w as results-sheet CSV, one row per
// draw date, and returns the number of rows written.
func (e *Executor) Export(ctx context.Context, w io.Writer) (int, error) {
	records, err := e.repo.Draws.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("load history: %w", err)
	}
	rows := draw.RowsFromRecords(records)
	if err := draw.WriteCSV(w, rows); err != nil {
		return 0, fmt.Errorf("write history csv: %w", err)
	}
	return len(rows), nil
}

func (e *Executor) ingest(ctx context.Context, records []draw.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	added, err := e.repo.Draws.Insert(ctx, records)
	if err != nil {
		e.metrics.RecordPipelineError(metrics.StepPersist, "draws")
		return 0, fmt.Errorf("store draw records: %w", err)
	}
	e.metrics.RecordIngest(added)
	return added, nil
}

// aggregate loads the full history and folds it into statistics.
func (e *Executor) aggregate(ctx context.Context) (*stats.Aggregate, error) {
	timer := e.metrics.StartStepTimer(metrics.StepAggregate)
	records, err := e.repo.Draws.List(ctx)
	if err != nil {
		timer.Stop(metrics.ResultError)
		e.metrics.RecordPipelineError(metrics.StepAggregate, "history")
		return nil, fmt.Errorf("load history: %w", err)
	}
	agg := e.aggregator.Aggregate(records)
	e.metrics.SetHistorySize(len(records))
	timer.Stop(metrics.ResultSuccess)

	if agg.Empty() {
		log.Warn().Msg("Draw history is empty")
	}
	return agg, nil
}

// Predict ranks candidates from the full history and records them in the
// prediction ledger.
func (e *Executor) Predict(ctx context.Context) (*PredictResult, error) {
	agg, err := e.aggregate(ctx)
	if err != nil {
		return nil, err
	}
	return e.predict(ctx, agg)
}

func (e *Executor) predict(ctx context.Context, agg *stats.Aggregate) (*PredictResult, error) {
	timer := e.metrics.StartStepTimer(metrics.StepScore)
	ranked := e.scorer.Rank(agg)
	res := &PredictResult{Ranked: ranked}
	if len(ranked) == 0 {
		timer.Stop(metrics.ResultSkipped)
		return res, nil
	}

	p := persistence.Prediction{
		ID:        uuid.New().String(),
		CreatedAt: e.now().UTC(),
		HistoryTo: agg.LastDate(),
		Numbers:   make([]string, len(ranked)),
		Scores:    make([]float64, len(ranked)),
	}
	for i, c := range ranked {
		p.Numbers[i] = c.Number
		p.Scores[i] = c.Score
	}
	if err := e.repo.Predictions.Insert(ctx, p); err != nil {
		timer.Stop(metrics.ResultError)
		e.metrics.RecordPipelineError(metrics.StepPersist, "predictions")
		return nil, fmt.Errorf("store prediction: %w", err)
	}
	timer.Stop(metrics.ResultSuccess)
	res.Prediction = &p

	log.Info().
		Str("prediction_id", p.ID).
		Strs("numbers", p.Numbers).
		Int("history", agg.Records()).
		Msg("Prediction stored")
	return res, nil
}

// BuildBox builds a box with the configured strategy and stores it. The
// constrained strategy ranks digits by every previously stored box.
func (e *Executor) BuildBox(ctx context.Context) (*BoxResult, error) {
	agg, err := e.aggregate(ctx)
	if err != nil {
		return nil, err
	}
	return e.buildBox(ctx, agg)
}

func (e *Executor) buildBox(ctx context.Context, agg *stats.Aggregate) (*BoxResult, error) {
	timer := e.metrics.StartStepTimer(metrics.StepBox)

	var table box.PositionTable
	if e.builder.Strategy() == box.StrategyConstrained {
		previous, err := e.repo.Boxes.All(ctx)
		if err != nil {
			timer.Stop(metrics.ResultError)
			return nil, fmt.Errorf("load previous boxes: %w", err)
		}
		grids := make([]box.Box, len(previous))
		for i, b := range previous {
			grids[i] = b.Box
		}
		table = box.TableFromBoxes(grids)
	}

	built := e.builder.Build(box.InputFromAggregate(agg, table))
	rec := persistence.BoxRecord{
		ID:         uuid.New().String(),
		CreatedAt:  e.now().UTC(),
		HistoryTo:  agg.LastDate(),
		Strategy:   built.Strategy,
		Box:        built.Box,
		Degenerate: built.Degenerate(),
	}
	if built.Degenerate() {
		e.metrics.RecordDegenerateBox()
		log.Warn().
			Int("forced_cells", len(built.Forced)).
			Int("violations", len(built.Violations)).
			Msg("Box constraints could not all be satisfied")
	}

	if err := e.repo.Boxes.Insert(ctx, rec); err != nil {
		timer.Stop(metrics.ResultError)
		e.metrics.RecordPipelineError(metrics.StepPersist, "boxes")
		return nil, fmt.Errorf("store box: %w", err)
	}
	timer.Stop(metrics.ResultSuccess)

	log.Info().Str("box_id", rec.ID).Str("strategy", string(rec.Strategy)).Msg("Box stored")
	return &BoxResult{Result: built, Record: rec}, nil
}

// Settle scores the newest unsettled prediction and every unsettled box
// against the latest stored draw. Entries built from that draw or a later
// one are left for the next draw.
func (e *Executor) Settle(ctx context.Context) (*Settlement, error) {
	timer := e.metrics.StartStepTimer(metrics.StepSettle)

	date, winners, err := e.repo.Draws.Latest(ctx)
	if errors.Is(err, persistence.ErrNotFound) || (err == nil && len(winners) == 0) {
		timer.Stop(metrics.ResultSkipped)
		return nil, nil
	}
	if err != nil {
		timer.Stop(metrics.ResultError)
		return nil, fmt.Errorf("load latest draw: %w", err)
	}
	res := &Settlement{DrawDate: date, Winners: winners, Boxes: []BoxSettlement{}}

	p, err := e.repo.Predictions.LatestUnsettled(ctx)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
	case err != nil:
		timer.Stop(metrics.ResultError)
		return nil, fmt.Errorf("load unsettled prediction: %w", err)
	case date.After(p.HistoryTo):
		cs := match.MatchCandidates(p.Numbers, winners)
		if err := e.repo.Predictions.Settle(ctx, p.ID, date, cs.String()); err != nil {
			timer.Stop(metrics.ResultError)
			return nil, fmt.Errorf("settle prediction %s: %w", p.ID, err)
		}
		e.metrics.RecordCandidateStats(cs)
		res.Prediction = &PredictionSettlement{ID: p.ID, Stats: cs}
	}

	boxes, err := e.repo.Boxes.Unsettled(ctx)
	if err != nil {
		timer.Stop(metrics.ResultError)
		return nil, fmt.Errorf("load unsettled boxes: %w", err)
	}
	numbers := draw.Numbers(winners)
	for _, b := range boxes {
		if !date.After(b.HistoryTo) {
			continue
		}
		gs := match.MatchGrid(b.Box, numbers)
		if err := e.repo.Boxes.Settle(ctx, b.ID, date, gs.String()); err != nil {
			timer.Stop(metrics.ResultError)
			return nil, fmt.Errorf("settle box %s: %w", b.ID, err)
		}
		e.metrics.RecordGridStats(gs)
		res.Boxes = append(res.Boxes, BoxSettlement{ID: b.ID, Stats: gs})
	}
	timer.Stop(metrics.ResultSuccess)

	log.Info().
		Str("draw_date", draw.FormatDrawDate(date)).
		Bool("prediction", res.Prediction != nil).
		Int("boxes", len(res.Boxes)).
		Msg("Settled against latest draw")
	return res, nil
}
