// Package memory implements the persistence interfaces in process, optionally
// mirrored to a JSON file so that separate CLI runs share state.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sawpanic/fourdrun/internal/draw"
	"github.com/sawpanic/fourdrun/internal/persistence"
)

// FileName is the store file created inside a data directory.
const FileName = "fourdrun.json"

type storedDraw struct {
	Date   time.Time `json:"date"`
	Tier   draw.Tier `json:"tier"`
	Number string    `json:"number"`
}

func (d storedDraw) key() string {
	return d.Date.UTC().Format("2006-01-02") + "|" + string(d.Tier) + "|" + d.Number
}

type snapshot struct {
	Draws       []storedDraw             `json:"draws"`
	Predictions []persistence.Prediction `json:"predictions"`
	Boxes       []persistence.BoxRecord  `json:"boxes"`
}

// Store holds draws, predictions and boxes.
type Store struct {
	mu       sync.RWMutex
	path     string
	data     snapshot
	drawKeys map[string]struct{}
}

// New returns an empty store that is never written to disk.
func New() *Store {
	return &Store{drawKeys: make(map[string]struct{})}
}

// Open loads the store file in dir, creating the directory if needed. Every
// mutation rewrites the file.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}
	s := New()
	s.path = filepath.Join(dir, FileName)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse store %s: %w", s.path, err)
	}
	for _, d := range s.data.Draws {
		s.drawKeys[d.key()] = struct{}{}
	}
	return s, nil
}

// Repository exposes the store through the persistence interfaces.
func (s *Store) Repository() *persistence.Repository {
	return &persistence.Repository{
		Draws:       drawRepo{s},
		Predictions: predictionRepo{s},
		Boxes:       boxRepo{s},
	}
}

// Health always reports healthy; file errors surface on writes.
func (s *Store) Health(ctx context.Context) persistence.HealthCheck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return persistence.HealthCheck{
		Healthy: true,
		ConnectionPool: map[string]int{
			"draws":       len(s.data.Draws),
			"predictions": len(s.data.Predictions),
			"boxes":       len(s.data.Boxes),
		},
		LastCheck: time.Now(),
	}
}

// Ping never fails.
func (s *Store) Ping(ctx context.Context) error { return nil }

// commit writes next to the store file and, only once that succeeds, makes
// it the in-memory state. Callers hold the write lock.
func (s *Store) commit(next snapshot) error {
	if err := s.persist(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *Store) persist(data snapshot) error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

type drawRepo struct{ s *Store }

func (r drawRepo) Insert(ctx context.Context, records []draw.Record) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	fresh := make(map[string]struct{})
	var added []storedDraw
	for _, rec := range records {
		d := storedDraw{Date: rec.Date(), Tier: rec.Tier(), Number: rec.Number()}
		if _, ok := r.s.drawKeys[d.key()]; ok {
			continue
		}
		if _, ok := fresh[d.key()]; ok {
			continue
		}
		fresh[d.key()] = struct{}{}
		added = append(added, d)
	}
	if len(added) == 0 {
		return 0, nil
	}

	next := r.s.data
	next.Draws = append(slices.Clone(r.s.data.Draws), added...)
	if err := r.s.commit(next); err != nil {
		return 0, err
	}
	for k := range fresh {
		r.s.drawKeys[k] = struct{}{}
	}
	return len(added), nil
}

func (r drawRepo) HasDate(ctx context.Context, date time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, d := range r.s.data.Draws {
		if sameDay(d.Date, date) {
			return true, nil
		}
	}
	return false, nil
}

func (r drawRepo) List(ctx context.Context) ([]draw.Record, error) {
	r.s.mu.RLock()
	stored := make([]storedDraw, len(r.s.data.Draws))
	copy(stored, r.s.data.Draws)
	r.s.mu.RUnlock()

	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Date.Before(stored[j].Date) })
	out := make([]draw.Record, 0, len(stored))
	for _, d := range stored {
		rec, err := draw.NewRecord(d.Date, d.Tier, d.Number)
		if err != nil {
			return nil, fmt.Errorf("corrupt draw record %s %s: %w", d.Date.Format("2006-01-02"), d.Number, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r drawRepo) Latest(ctx context.Context) (time.Time, []draw.Winner, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest time.Time
	for _, d := range r.s.data.Draws {
		if d.Date.After(latest) {
			latest = d.Date
		}
	}
	if latest.IsZero() {
		return time.Time{}, nil, persistence.ErrNotFound
	}
	var winners []draw.Winner
	for _, d := range r.s.data.Draws {
		if sameDay(d.Date, latest) {
			winners = append(winners, draw.Winner{Number: d.Number, Tier: d.Tier})
		}
	}
	return latest, winners, nil
}

type predictionRepo struct{ s *Store }

func (r predictionRepo) Insert(ctx context.Context, p persistence.Prediction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.Predictions {
		if existing.ID == p.ID {
			return fmt.Errorf("prediction %s already exists", p.ID)
		}
	}
	next := r.s.data
	next.Predictions = append(slices.Clone(r.s.data.Predictions), clonePrediction(p))
	return r.s.commit(next)
}

func (r predictionRepo) Latest(ctx context.Context) (*persistence.Prediction, error) {
	return r.latest(func(persistence.Prediction) bool { return true })
}

func (r predictionRepo) LatestUnsettled(ctx context.Context) (*persistence.Prediction, error) {
	return r.latest(func(p persistence.Prediction) bool { return !p.Settled() })
}

func (r predictionRepo) latest(keep func(persistence.Prediction) bool) (*persistence.Prediction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	idx := -1
	for i, p := range r.s.data.Predictions {
		if !keep(p) {
			continue
		}
		if idx < 0 || !p.CreatedAt.Before(r.s.data.Predictions[idx].CreatedAt) {
			idx = i
		}
	}
	if idx < 0 {
		return nil, persistence.ErrNotFound
	}
	p := clonePrediction(r.s.data.Predictions[idx])
	return &p, nil
}

func (r predictionRepo) Settle(ctx context.Context, id string, drawDate time.Time, stats string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.Predictions {
		if r.s.data.Predictions[i].ID == id {
			d := drawDate
			next := r.s.data
			next.Predictions = slices.Clone(r.s.data.Predictions)
			next.Predictions[i].Stats = stats
			next.Predictions[i].SettledFor = &d
			return r.s.commit(next)
		}
	}
	return fmt.Errorf("prediction %s: %w", id, persistence.ErrNotFound)
}

func (r predictionRepo) List(ctx context.Context, limit int) ([]persistence.Prediction, error) {
	r.s.mu.RLock()
	out := make([]persistence.Prediction, 0, len(r.s.data.Predictions))
	for _, p := range r.s.data.Predictions {
		out = append(out, clonePrediction(p))
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type boxRepo struct{ s *Store }

func (r boxRepo) Insert(ctx context.Context, b persistence.BoxRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.Boxes {
		if existing.ID == b.ID {
			return fmt.Errorf("box %s already exists", b.ID)
		}
	}
	next := r.s.data
	next.Boxes = append(slices.Clone(r.s.data.Boxes), b)
	return r.s.commit(next)
}

func (r boxRepo) Latest(ctx context.Context) (*persistence.BoxRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	idx := -1
	for i, b := range r.s.data.Boxes {
		if idx < 0 || !b.CreatedAt.Before(r.s.data.Boxes[idx].CreatedAt) {
			idx = i
		}
	}
	if idx < 0 {
		return nil, persistence.ErrNotFound
	}
	b := r.s.data.Boxes[idx]
	return &b, nil
}

func (r boxRepo) All(ctx context.Context) ([]persistence.BoxRecord, error) {
	return r.filter(func(persistence.BoxRecord) bool { return true }), nil
}

func (r boxRepo) Unsettled(ctx context.Context) ([]persistence.BoxRecord, error) {
	return r.filter(func(b persistence.BoxRecord) bool { return !b.Settled() }), nil
}

func (r boxRepo) filter(keep func(persistence.BoxRecord) bool) []persistence.BoxRecord {
	r.s.mu.RLock()
	var out []persistence.BoxRecord
	for _, b := range r.s.data.Boxes {
		if keep(b) {
			out = append(out, b)
		}
	}
	r.s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r boxRepo) Settle(ctx context.Context, id string, drawDate time.Time, stats string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.Boxes {
		if r.s.data.Boxes[i].ID == id {
			d := drawDate
			next := r.s.data
			next.Boxes = slices.Clone(r.s.data.Boxes)
			next.Boxes[i].Stats = stats
			next.Boxes[i].SettledFor = &d
			return r.s.commit(next)
		}
	}
	return fmt.Errorf("box %s: %w", id, persistence.ErrNotFound)
}

func clonePrediction(p persistence.Prediction) persistence.Prediction {
	p.Numbers = append([]string(nil), p.Numbers...)
	p.Scores = append([]float64(nil), p.Scores...)
	if p.SettledFor != nil {
		d := *p.SettledFor
		p.SettledFor = &d
	}
	return p
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
