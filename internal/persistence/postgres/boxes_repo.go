package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/persistence"
)

// boxesRepo implements BoxRepo for PostgreSQL
type boxesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewBoxesRepo creates a new PostgreSQL box repository
func NewBoxesRepo(db *sqlx.DB, timeout time.Duration) persistence.BoxRepo {
	return &boxesRepo{
		db:      db,
		timeout: orDefault(timeout),
	}
}

const boxColumns = `id, created_at, history_to, strategy, grid, degenerate, stats, settled_for`

type boxRow struct {
	ID         string       `db:"id"`
	CreatedAt  time.Time    `db:"created_at"`
	HistoryTo  time.Time    `db:"history_to"`
	Strategy   string       `db:"strategy"`
	Grid       string       `db:"grid"`
	Degenerate bool         `db:"degenerate"`
	Stats      string       `db:"stats"`
	SettledFor sql.NullTime `db:"settled_for"`
}

func (row boxRow) toRecord() (*persistence.BoxRecord, error) {
	b, err := box.Parse(row.Grid)
	if err != nil {
		return nil, fmt.Errorf("box %s: %w", row.ID, err)
	}
	rec := &persistence.BoxRecord{
		ID:         row.ID,
		CreatedAt:  row.CreatedAt,
		HistoryTo:  row.HistoryTo,
		Strategy:   box.Strategy(row.Strategy),
		Box:        b,
		Degenerate: row.Degenerate,
		Stats:      row.Stats,
	}
	if row.SettledFor.Valid {
		d := row.SettledFor.Time
		rec.SettledFor = &d
	}
	return rec, nil
}

// Insert stores a box in its text grid form
func (r *boxesRepo) Insert(ctx context.Context, b persistence.BoxRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var settled sql.NullTime
	if b.SettledFor != nil {
		settled = sql.NullTime{Time: *b.SettledFor, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO boxes (`+boxColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.CreatedAt, b.HistoryTo, string(b.Strategy), b.Box.String(), b.Degenerate, b.Stats, settled)
	if err != nil {
		return fmt.Errorf("failed to insert box: %w", err)
	}
	return nil
}

// Latest returns the most recent box
func (r *boxesRepo) Latest(ctx context.Context) (*persistence.BoxRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row boxRow
	err := r.db.QueryRowxContext(ctx,
		`SELECT `+boxColumns+` FROM boxes ORDER BY created_at DESC LIMIT 1`).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest box: %w", err)
	}
	return row.toRecord()
}

// All returns the full box corpus, oldest first
func (r *boxesRepo) All(ctx context.Context) ([]persistence.BoxRecord, error) {
	return r.list(ctx, `SELECT `+boxColumns+` FROM boxes ORDER BY created_at ASC`)
}

// Unsettled returns boxes still waiting for a draw, oldest first
func (r *boxesRepo) Unsettled(ctx context.Context) ([]persistence.BoxRecord, error) {
	return r.list(ctx, `SELECT `+boxColumns+` FROM boxes WHERE settled_for IS NULL ORDER BY created_at ASC`)
}

func (r *boxesRepo) list(ctx context.Context, query string) ([]persistence.BoxRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []boxRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list boxes: %w", err)
	}

	out := make([]persistence.BoxRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Settle writes the grid stats for a box
func (r *boxesRepo) Settle(ctx context.Context, id string, drawDate time.Time, stats string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE boxes SET stats = $2, settled_for = $3 WHERE id = $1`,
		id, stats, dateOnly(drawDate))
	if err != nil {
		return fmt.Errorf("failed to settle box: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("box %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}
