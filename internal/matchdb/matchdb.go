// Package matchdb persists match runs and their scores to sqlite so they
// can be inspected and charted after the fact. The schema is created on
// open; golang-migrate handles later revisions from the migrations
// directory.
package matchdb

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the archive at path and ensures the
// baseline schema exists.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS match_runs (
			run_id            TEXT PRIMARY KEY,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			format            TEXT,
			match_mode        TEXT,
			threshold         BIGINT,
			max_minutiae      BIGINT,
			probe_count       BIGINT,
			gallery_count     BIGINT
		);
		CREATE TABLE IF NOT EXISTS match_scores (
			run_id            TEXT,
			probe             TEXT,
			gallery           TEXT,
			score             BIGINT,
			FOREIGN KEY(run_id) REFERENCES match_runs(run_id)
		);
		CREATE INDEX IF NOT EXISTS idx_match_scores_run ON match_scores(run_id);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Run describes one archived batch execution. StartedAt is the sqlite
// timestamp text, e.g. "2026-08-05 10:30:00".
type Run struct {
	RunID        string
	StartedAt    string
	Format       string
	MatchMode    string
	Threshold    int
	MaxMinutiae  int
	ProbeCount   int
	GalleryCount int
}

// CreateRun inserts a new run record and returns its generated id.
func (db *DB) CreateRun(format, matchMode string, threshold, maxMinutiae, probeCount, galleryCount int) (string, error) {
	runID := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO match_runs (run_id, format, match_mode, threshold, max_minutiae, probe_count, gallery_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, format, matchMode, threshold, maxMinutiae, probeCount, galleryCount,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID, nil
}

// RecordScore appends one reported comparison to a run.
func (db *DB) RecordScore(runID, probe, gallery string, score int) error {
	_, err := db.Exec(
		`INSERT INTO match_scores (run_id, probe, gallery, score) VALUES (?, ?, ?, ?)`,
		runID, probe, gallery, score,
	)
	if err != nil {
		return fmt.Errorf("failed to record score: %w", err)
	}
	return nil
}

// Score is one archived comparison.
type Score struct {
	Probe   string
	Gallery string
	Score   int
}

// Scores returns the comparisons of one run in insertion order.
func (db *DB) Scores(runID string) ([]Score, error) {
	rows, err := db.Query(
		`SELECT probe, gallery, score FROM match_scores WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []Score
	for rows.Next() {
		var s Score
		if err := rows.Scan(&s.Probe, &s.Gallery, &s.Score); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// Runs lists the archived runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, started_at, format, match_mode, threshold, max_minutiae, probe_count, gallery_count
		 FROM match_runs ORDER BY started_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.Format, &r.MatchMode, &r.Threshold, &r.MaxMinutiae, &r.ProbeCount, &r.GalleryCount); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recently started run.
func (db *DB) LatestRun() (Run, error) {
	runs, err := db.Runs()
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, sql.ErrNoRows
	}
	return runs[0], nil
}
