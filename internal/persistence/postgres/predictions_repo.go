package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/fourdrun/internal/persistence"
)

// predictionsRepo implements PredictionRepo for PostgreSQL
type predictionsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPredictionsRepo creates a new PostgreSQL prediction ledger
func NewPredictionsRepo(db *sqlx.DB, timeout time.Duration) persistence.PredictionRepo {
	return &predictionsRepo{
		db:      db,
		timeout: orDefault(timeout),
	}
}

const predictionColumns = `id, created_at, history_to, numbers, scores, stats, settled_for`

type predictionRow struct {
	ID         string          `db:"id"`
	CreatedAt  time.Time       `db:"created_at"`
	HistoryTo  time.Time       `db:"history_to"`
	Numbers    pq.StringArray  `db:"numbers"`
	Scores     pq.Float64Array `db:"scores"`
	Stats      string          `db:"stats"`
	SettledFor sql.NullTime    `db:"settled_for"`
}

func (row predictionRow) toPrediction() *persistence.Prediction {
	p := &persistence.Prediction{
		ID:        row.ID,
		CreatedAt: row.CreatedAt,
		HistoryTo: row.HistoryTo,
		Numbers:   []string(row.Numbers),
		Scores:    []float64(row.Scores),
		Stats:     row.Stats,
	}
	if row.SettledFor.Valid {
		d := row.SettledFor.Time
		p.SettledFor = &d
	}
	return p
}

// Insert stores a new unsettled or settled prediction
func (r *predictionsRepo) Insert(ctx context.Context, p persistence.Prediction) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var settled sql.NullTime
	if p.SettledFor != nil {
		settled = sql.NullTime{Time: *p.SettledFor, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO predictions (`+predictionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.CreatedAt, p.HistoryTo, pq.StringArray(p.Numbers), pq.Float64Array(p.Scores), p.Stats, settled)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate prediction %s: %w", p.ID, err)
		}
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// Latest returns the most recent prediction
func (r *predictionsRepo) Latest(ctx context.Context) (*persistence.Prediction, error) {
	return r.one(ctx, `SELECT `+predictionColumns+` FROM predictions ORDER BY created_at DESC LIMIT 1`)
}

// LatestUnsettled returns the most recent prediction without stats
func (r *predictionsRepo) LatestUnsettled(ctx context.Context) (*persistence.Prediction, error) {
	return r.one(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE settled_for IS NULL ORDER BY created_at DESC LIMIT 1`)
}

func (r *predictionsRepo) one(ctx context.Context, query string) (*persistence.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row predictionRow
	if err := r.db.QueryRowxContext(ctx, query).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return row.toPrediction(), nil
}

// Settle writes the stats block for a prediction
func (r *predictionsRepo) Settle(ctx context.Context, id string, drawDate time.Time, stats string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE predictions SET stats = $2, settled_for = $3 WHERE id = $1`,
		id, stats, dateOnly(drawDate))
	if err != nil {
		return fmt.Errorf("failed to settle prediction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("prediction %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}

// List returns up to limit predictions, newest first
func (r *predictionsRepo) List(ctx context.Context, limit int) ([]persistence.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	var rows []predictionRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+predictionColumns+` FROM predictions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	out := make([]persistence.Prediction, len(rows))
	for i, row := range rows {
		out[i] = *row.toPrediction()
	}
	return out, nil
}
