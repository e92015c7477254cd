package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]EpisodeRecord
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]EpisodeRecord)}
}

func (m *MemoryStore) Init(_ context.Context) error {
	return nil
}

func recordKey(rec EpisodeRecord) string {
	return fmt.Sprintf("%s/%s/%d/%d", rec.RunID, rec.Experiment, rec.Run, rec.Episode)
}

func (m *MemoryStore) SaveEpisode(_ context.Context, rec EpisodeRecord) error {
	if err := validate(&rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey(rec)] = rec
	return nil
}

func (m *MemoryStore) Episodes(_ context.Context, runID, experiment string) ([]EpisodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]EpisodeRecord, 0)
	for _, rec := range m.records {
		if rec.RunID != runID {
			continue
		}
		if experiment != "" && rec.Experiment != experiment {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Experiment != out[j].Experiment {
			return out[i].Experiment < out[j].Experiment
		}
		if out[i].Run != out[j].Run {
			return out[i].Run < out[j].Run
		}
		return out[i].Episode < out[j].Episode
	})
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
