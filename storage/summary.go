package storage

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the stored episodes of one experiment
type Summary struct {
	Experiment string
	Episodes   int
	MeanReward float64
	MeanSteps  float64
	Outcomes   map[string]int
}

// Summarize reads back every episode of runID and aggregates them per experiment,
// ordered by experiment name
func Summarize(ctx context.Context, s Store, runID string) ([]Summary, error) {
	if runID == "" {
		return nil, ErrMissingRunID
	}
	records, err := s.Episodes(ctx, runID, "")
	if err != nil {
		return nil, err
	}

	rewards := make(map[string][]float64)
	steps := make(map[string][]float64)
	outcomes := make(map[string]map[string]int)
	for _, rec := range records {
		rewards[rec.Experiment] = append(rewards[rec.Experiment], rec.Reward)
		steps[rec.Experiment] = append(steps[rec.Experiment], float64(rec.Steps))
		if outcomes[rec.Experiment] == nil {
			outcomes[rec.Experiment] = make(map[string]int)
		}
		outcomes[rec.Experiment][rec.Outcome]++
	}

	out := make([]Summary, 0, len(rewards))
	for exp, r := range rewards {
		out = append(out, Summary{
			Experiment: exp,
			Episodes:   len(r),
			MeanReward: stat.Mean(r, nil),
			MeanSteps:  stat.Mean(steps[exp], nil),
			Outcomes:   outcomes[exp],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Experiment < out[j].Experiment })
	return out, nil
}
