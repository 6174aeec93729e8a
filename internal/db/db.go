// Package db persists visibility-statistics runs to sqlite. Each evaluation
// over a detection set becomes one row in runs plus one row per histogram
// bucket, so view-starvation trends can be inspected across captures long
// after the tensors are gone.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// pragmas for concurrent read access.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return &DB{sqlDB}, nil
}

// StatsRun is one recorded statistics evaluation.
type StatsRun struct {
	ID             string
	Source         string
	CameraCount    int
	ConcernedViews int
	TotalPairs     int
	RateMode       bool
	CreatedAt      time.Time
}

// RecordRun stores a run and its histogram buckets in one transaction,
// returning the generated run id.
func (db *DB) RecordRun(run StatsRun, histogram map[int]float64) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, source, camera_count, concerned_views, total_pairs, rate_mode)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.CameraCount, run.ConcernedViews, run.TotalPairs, boolToInt(run.RateMode))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	for views, pairs := range histogram {
		_, err = tx.Exec(`
			INSERT INTO run_histograms (run_id, valid_views, pairs)
			VALUES (?, ?, ?)`,
			run.ID, views, pairs)
		if err != nil {
			return "", fmt.Errorf("failed to insert histogram bucket %d: %w", views, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]StatsRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, source, camera_count, concerned_views, total_pairs, rate_mode, created_at
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []StatsRun
	for rows.Next() {
		var r StatsRun
		var rateMode int
		if err := rows.Scan(&r.ID, &r.Source, &r.CameraCount, &r.ConcernedViews,
			&r.TotalPairs, &rateMode, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.RateMode = rateMode != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a single run by id, or sql.ErrNoRows.
func (db *DB) GetRun(id string) (StatsRun, error) {
	var r StatsRun
	var rateMode int
	err := db.QueryRow(`
		SELECT id, source, camera_count, concerned_views, total_pairs, rate_mode, created_at
		FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Source, &r.CameraCount, &r.ConcernedViews, &r.TotalPairs, &rateMode, &r.CreatedAt)
	if err != nil {
		return StatsRun{}, err
	}
	r.RateMode = rateMode != 0
	return r, nil
}

// RunHistogram returns the histogram buckets recorded for a run.
func (db *DB) RunHistogram(id string) (map[int]float64, error) {
	rows, err := db.Query(`
		SELECT valid_views, pairs FROM run_histograms WHERE run_id = ? ORDER BY valid_views`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query histogram: %w", err)
	}
	defer rows.Close()

	histogram := make(map[int]float64)
	for rows.Next() {
		var views int
		var pairs float64
		if err := rows.Scan(&views, &pairs); err != nil {
			return nil, fmt.Errorf("failed to scan histogram row: %w", err)
		}
		histogram[views] = pairs
	}
	return histogram, rows.Err()
}

// LatestRun returns the most recently recorded run, or sql.ErrNoRows when the
// database is empty.
func (db *DB) LatestRun() (StatsRun, error) {
	runs, err := db.ListRuns(1)
	if err != nil {
		return StatsRun{}, err
	}
	if len(runs) == 0 {
		return StatsRun{}, sql.ErrNoRows
	}
	return runs[0], nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
