// Package storage keeps the per-episode results of training runs.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotInitialized = errors.New("store not initialized")
	ErrMissingRunID   = errors.New("run id is required")
)

type EpisodeRecord struct {
	RunID      string
	Experiment string
	Run        int
	Episode    int
	Steps      int
	Reward     float64
	Outcome    string
	CreatedAt  time.Time
}

type Store interface {
	Init(ctx context.Context) error
	SaveEpisode(ctx context.Context, rec EpisodeRecord) error
	// Episodes lists the records of a run, optionally filtered by experiment, ordered by run and episode
	Episodes(ctx context.Context, runID, experiment string) ([]EpisodeRecord, error)
	Close() error
}

func validate(rec *EpisodeRecord) error {
	if rec.RunID == "" {
		return ErrMissingRunID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}
