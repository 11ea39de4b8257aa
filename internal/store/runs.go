package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BeginRun records the start of an indexing run under a fresh ID. GUIDs
// handed out by earlier runs may be handed out again.
func (s *Store) BeginRun() (*Run, error) {
	s.guids.reset()
	r := &Run{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	if _, err := s.db.Exec("INSERT INTO runs (id, started_at) VALUES (?, ?)", r.ID, r.StartedAt); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return r, nil
}

// FinishRun stores the final counters of r.
func (s *Store) FinishRun(r *Run) error {
	now := time.Now().UTC()
	r.FinishedAt = &now
	_, err := s.db.Exec(
		"UPDATE runs SET finished_at = ?, files = ?, objects = ?, edges = ?, failures = ? WHERE id = ?",
		now, r.Files, r.Objects, r.Edges, r.Failures, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	return nil
}

// LastRun returns the most recently started run, or nil.
func (s *Store) LastRun() (*Run, error) {
	r := &Run{}
	var finished sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, started_at, finished_at, files, objects, edges, failures FROM runs ORDER BY started_at DESC LIMIT 1",
	).Scan(&r.ID, &r.StartedAt, &finished, &r.Files, &r.Objects, &r.Edges, &r.Failures)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return r, nil
}
