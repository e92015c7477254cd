package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

var _ Store = &SQLiteStore{}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// writers from parallel workers are serialized by sqlite
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS episodes (
			run_id     TEXT    NOT NULL,
			experiment TEXT    NOT NULL,
			run        INTEGER NOT NULL,
			episode    INTEGER NOT NULL,
			steps      INTEGER NOT NULL,
			reward     REAL    NOT NULL,
			outcome    TEXT    NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (run_id, experiment, run, episode)
		)
	`)
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func (s *SQLiteStore) SaveEpisode(ctx context.Context, rec EpisodeRecord) error {
	if err := validate(&rec); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO episodes (run_id, experiment, run, episode, steps, reward, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, experiment, run, episode) DO UPDATE SET
			steps = excluded.steps,
			reward = excluded.reward,
			outcome = excluded.outcome,
			created_at = excluded.created_at
	`, rec.RunID, rec.Experiment, rec.Run, rec.Episode, rec.Steps, rec.Reward, rec.Outcome, rec.CreatedAt.UnixNano())
	return err
}

func (s *SQLiteStore) Episodes(ctx context.Context, runID, experiment string) ([]EpisodeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, experiment, run, episode, steps, reward, outcome, created_at
		FROM episodes
		WHERE run_id = ? AND (? = '' OR experiment = ?)
		ORDER BY experiment, run, episode
	`, runID, experiment, experiment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]EpisodeRecord, 0)
	for rows.Next() {
		var rec EpisodeRecord
		var createdAt int64
		if err := rows.Scan(&rec.RunID, &rec.Experiment, &rec.Run, &rec.Episode, &rec.Steps, &rec.Reward, &rec.Outcome, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
