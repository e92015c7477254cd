package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zeu5/combat-rl/core"
	"github.com/zeu5/combat-rl/storage"
)

type fakeAction string

func (a fakeAction) Hash() string { return string(a) }

type fakeState struct {
	hash     string
	terminal bool
	outcome  string
}

func (s *fakeState) Hash() string           { return s.hash }
func (s *fakeState) Actions() []core.Action { return nil }
func (s *fakeState) Reward() float64        { return 0 }
func (s *fakeState) Terminal() bool         { return s.terminal }
func (s *fakeState) Outcome() string        { return s.outcome }

func episode(ep int, rewards []float64, last *fakeState) *core.EpisodeContext {
	eCtx := core.NewEpisodeContext(context.Background())
	eCtx.Episode = ep
	for i, r := range rewards {
		next := &fakeState{hash: string(rune('a' + i))}
		if i == len(rewards)-1 && last != nil {
			next = last
		}
		eCtx.Trace.AddStep(&core.Step{
			State:     &fakeState{hash: "s"},
			Action:    fakeAction("x"),
			NextState: next,
			Reward:    r,
		})
	}
	return eCtx
}

func TestEpisodeOutcome(t *testing.T) {
	eCtx := episode(0, []float64{1, 2}, &fakeState{hash: "z", terminal: true, outcome: "target_down"})
	assert.Equal(t, "target_down", EpisodeOutcome(eCtx.Trace))
	assert.True(t, OutcomeIs("target_down")(eCtx.Trace))

	assert.Equal(t, OutcomeHorizon, EpisodeOutcome(episode(0, []float64{1}, nil).Trace))
	assert.Equal(t, OutcomeEmpty, EpisodeOutcome(core.NewTrace()))

	errCtx := episode(0, []float64{1}, nil)
	errCtx.Error(errors.New("boom"))
	assert.Equal(t, OutcomeError, EpisodeOutcome(errCtx.Trace))
}

func TestRewardAnalyzer(t *testing.T) {
	a := NewRewardAnalyzer()
	e0 := episode(0, []float64{1, -2, 4}, &fakeState{hash: "z", terminal: true, outcome: "hazard"})
	a.Analyze(e0, e0.Trace)
	e1 := episode(1, []float64{5}, nil)
	a.Analyze(e1, e1.Trace)

	ds, ok := a.DataSet().(*RewardDataset)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, ds.Episodes)
	assert.Equal(t, []float64{3, 5}, ds.Rewards)
	assert.Equal(t, []int{3, 1}, ds.Lengths)
	assert.Equal(t, []string{"hazard", OutcomeHorizon}, ds.Outcomes)

	s := ds.Summary()
	assert.Equal(t, 2, s.Episodes)
	assert.InDelta(t, 4.0, s.MeanReward, 1e-9)
	assert.InDelta(t, 1.4142135623730951, s.StdReward, 1e-9)
	assert.InDelta(t, 2.0, s.MeanLength, 1e-9)
	assert.Equal(t, 1, s.Outcomes["hazard"])

	a.Reset()
	assert.Empty(t, a.DataSet().(*RewardDataset).Rewards)
}

func TestRewardComparatorWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	a := NewRewardAnalyzer()
	e0 := episode(0, []float64{2, 3}, nil)
	a.Analyze(e0, e0.Trace)

	long := "AVeryLongExperimentNameThatExceedsTheLimit"
	c := NewRewardComparatorConstructor(dir, zerolog.Nop()).NewComparator(0)
	c.Compare([]string{"SoftMaxQ", long}, []core.DataSet{a.DataSet(), a.DataSet()})

	_, err := os.Stat(filepath.Join(dir, "0", "rewards.json"))
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(dir, "0", "rewards.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{summarySheet, "SoftMaxQ", long[:31]}, f.GetSheetList())

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Experiment", rows[0][0])
	assert.Equal(t, long, rows[1][0])
	assert.Equal(t, "SoftMaxQ", rows[2][0])

	rows, err = f.GetRows("SoftMaxQ")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0", "5", "2", OutcomeHorizon}, rows[1])
}

func TestCoverageAnalyzer(t *testing.T) {
	c := NewCoverageAnalyzer()
	e0 := episode(0, []float64{0, 0}, nil)
	c.Analyze(e0, e0.Trace)
	e1 := episode(1, []float64{0, 0, 0}, nil)
	c.Analyze(e1, e1.Trace)

	ds := c.DataSet().(*coverageDataset)
	assert.Equal(t, []int{2, 5}, ds.Timesteps)
	assert.Equal(t, []int{2, 3}, ds.UniqueStates)
}

func TestEventAnalyzerSavesMatches(t *testing.T) {
	dir := t.TempDir()
	a := NewEventAnalyzerConstructor(dir, EventSpec{Name: "hazard", Check: OutcomeIs("hazard")}).NewAnalyzer("Random", 0)

	hit := episode(3, []float64{-100}, &fakeState{hash: "z", terminal: true, outcome: "hazard"})
	a.Analyze(hit, hit.Trace)
	miss := episode(4, []float64{1}, nil)
	a.Analyze(miss, miss.Trace)

	assert.Equal(t, map[string]int{"hazard": 1}, a.DataSet())
	_, err := os.Stat(filepath.Join(dir, "events", "0_Random_hazard_3.txt"))
	assert.NoError(t, err)
}

func TestRecordAnalyzerPersistsEpisodes(t *testing.T) {
	store := storage.NewMemoryStore()
	a := NewRecordAnalyzerConstructor(store, "run-1", zerolog.Nop()).NewAnalyzer("GreedyReward", 0)

	e0 := episode(0, []float64{1, 1}, &fakeState{hash: "z", terminal: true, outcome: "agent_down"})
	// the runner cancels the episode context before analyzers run
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e0.Context = ctx
	a.Analyze(e0, e0.Trace)

	recs, err := store.Episodes(context.Background(), "run-1", "GreedyReward")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Steps)
	assert.Equal(t, 2.0, recs[0].Reward)
	assert.Equal(t, "agent_down", recs[0].Outcome)
	assert.Equal(t, 1, a.DataSet())
}

func TestRecordAnalyzerLogsMissingRunID(t *testing.T) {
	store := storage.NewMemoryStore()
	a := NewRecordAnalyzer(store, "", "Random", zerolog.Nop())
	e0 := episode(0, []float64{1}, nil)
	a.Analyze(e0, e0.Trace)
	assert.Equal(t, 0, a.DataSet())
}

func TestSheetNameUniqueAndRuneSafe(t *testing.T) {
	used := map[string]bool{"summary": true}
	prefix := strings.Repeat("x", 31)

	a := sheetName(prefix+"One", used)
	b := sheetName(prefix+"Two", used)
	assert.Equal(t, prefix, a)
	assert.Equal(t, prefix[:29]+"~2", b)

	wide := sheetName(strings.Repeat("é", 40), used)
	assert.True(t, utf8.ValidString(wide))
	assert.Equal(t, 31, utf8.RuneCountInString(wide))

	assert.Equal(t, "SUMMARY~2", sheetName("SUMMARY", used))
	assert.Equal(t, "a_b", sheetName("a/b", used))
}

func TestRewardComparatorDistinctSheets(t *testing.T) {
	dir := t.TempDir()
	a := NewRewardAnalyzer()
	e0 := episode(0, []float64{1}, nil)
	a.Analyze(e0, e0.Trace)

	prefix := strings.Repeat("日", 31)
	c := NewRewardComparator(dir, zerolog.Nop())
	c.Compare([]string{prefix + "A", prefix + "B"}, []core.DataSet{a.DataSet(), a.DataSet()})

	f, err := excelize.OpenFile(filepath.Join(dir, "rewards.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	sheets := f.GetSheetList()
	assert.Len(t, sheets, 3)
	for _, s := range sheets {
		assert.True(t, utf8.ValidString(s))
	}
}

func TestJSONComparatorWritesDatasets(t *testing.T) {
	dir := t.TempDir()
	c := NewJSONComparatorConstructor(dir, "coverage.json", zerolog.Nop()).NewComparator(1)
	c.Compare([]string{"Random", "SoftMaxQ"}, []core.DataSet{map[string]int{"hazard": 2}, nil})

	bs, err := os.ReadFile(filepath.Join(dir, "1", "coverage.json"))
	require.NoError(t, err)
	out := make(map[string]map[string]int)
	require.NoError(t, json.Unmarshal(bs, &out))
	assert.Equal(t, map[string]map[string]int{"Random": {"hazard": 2}}, out)
}

func TestJSONComparatorLogsSaveError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	buf := new(bytes.Buffer)
	c := NewJSONComparator(filepath.Join(blocker, "sub"), "events.json", zerolog.New(buf))
	c.Compare([]string{"Random"}, []core.DataSet{1})

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "failed to save datasets")
}
