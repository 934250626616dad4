package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/fourdrun/internal/draw"
	"github.com/sawpanic/fourdrun/internal/persistence"
)

// drawsRepo implements DrawRepo for PostgreSQL
type drawsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDrawsRepo creates a new PostgreSQL draw history repository
func NewDrawsRepo(db *sqlx.DB, timeout time.Duration) persistence.DrawRepo {
	return &drawsRepo{
		db:      db,
		timeout: orDefault(timeout),
	}
}

type drawRow struct {
	DrawDate time.Time `db:"draw_date"`
	Tier     string    `db:"tier"`
	Number   string    `db:"number"`
}

// Insert adds records in one transaction, skipping duplicates
func (r *drawsRepo) Insert(ctx context.Context, records []draw.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(records)/100+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO draw_results (draw_date, tier, number)
		VALUES ($1, $2, $3)
		ON CONFLICT (draw_date, tier, number) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, rec := range records {
		res, err := stmt.ExecContext(ctx, rec.Date(), string(rec.Tier()), rec.Number())
		if err != nil {
			return 0, fmt.Errorf("failed to insert draw %s: %w", rec, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit draws: %w", err)
	}
	return added, nil
}

// HasDate reports whether the draw date is already stored
func (r *drawsRepo) HasDate(ctx context.Context, date time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowxContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM draw_results WHERE draw_date = $1)`, dateOnly(date)).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check draw date: %w", err)
	}
	return exists, nil
}

// List returns the full history ordered by date, then insertion
func (r *drawsRepo) List(ctx context.Context) ([]draw.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []drawRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT draw_date, tier, number
		FROM draw_results
		ORDER BY draw_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}

	out := make([]draw.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := draw.NewRecord(row.DrawDate, draw.Tier(row.Tier), row.Number)
		if err != nil {
			return nil, fmt.Errorf("corrupt draw row: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Latest returns the newest draw date and its winners
func (r *drawsRepo) Latest(ctx context.Context) (time.Time, []draw.Winner, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var latest sql.NullTime
	if err := r.db.QueryRowxContext(ctx, `SELECT MAX(draw_date) FROM draw_results`).Scan(&latest); err != nil {
		return time.Time{}, nil, fmt.Errorf("failed to get latest draw date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil, persistence.ErrNotFound
	}

	var rows []drawRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT draw_date, tier, number
		FROM draw_results
		WHERE draw_date = $1
		ORDER BY id ASC`, latest.Time)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("failed to get latest winners: %w", err)
	}

	winners := make([]draw.Winner, len(rows))
	for i, row := range rows {
		winners[i] = draw.Winner{Number: row.Number, Tier: draw.Tier(row.Tier)}
	}
	return dateOnly(latest.Time), winners, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
