package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zeu5/combat-rl/core"
	"github.com/zeu5/combat-rl/storage"
)

const recordTimeout = 5 * time.Second

// RecordAnalyzer persists one storage.EpisodeRecord per episode
type RecordAnalyzer struct {
	store  storage.Store
	runID  string
	exp    string
	logger zerolog.Logger
	saved  int
}

var _ core.Analyzer = &RecordAnalyzer{}

func NewRecordAnalyzer(store storage.Store, runID, exp string, logger zerolog.Logger) *RecordAnalyzer {
	return &RecordAnalyzer{
		store:  store,
		runID:  runID,
		exp:    exp,
		logger: logger,
	}
}

// Analyze runs after the episode context is done, so it uses its own deadline
func (a *RecordAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	rec := storage.EpisodeRecord{
		RunID:      a.runID,
		Experiment: a.exp,
		Run:        eCtx.Run,
		Episode:    eCtx.Episode,
		Steps:      trace.Len(),
		Reward:     trace.TotalReward(),
		Outcome:    EpisodeOutcome(trace),
	}
	if err := a.store.SaveEpisode(ctx, rec); err != nil {
		a.logger.Error().Err(err).Str("experiment", a.exp).Int("episode", eCtx.Episode).Msg("failed to record episode")
		return
	}
	a.saved++
}

func (a *RecordAnalyzer) DataSet() core.DataSet {
	return a.saved
}

func (a *RecordAnalyzer) Reset() {
	a.saved = 0
}

type RecordAnalyzerConstructor struct {
	store  storage.Store
	runID  string
	logger zerolog.Logger
}

var _ core.AnalyzerConstructor = &RecordAnalyzerConstructor{}

func NewRecordAnalyzerConstructor(store storage.Store, runID string, logger zerolog.Logger) *RecordAnalyzerConstructor {
	return &RecordAnalyzerConstructor{
		store:  store,
		runID:  runID,
		logger: logger,
	}
}

func (c *RecordAnalyzerConstructor) NewAnalyzer(exp string, _ int) core.Analyzer {
	return NewRecordAnalyzer(c.store, c.runID, exp, c.logger)
}
