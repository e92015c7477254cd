package analysis

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/zeu5/combat-rl/core"
	"github.com/zeu5/combat-rl/util"
)

type RewardDataset struct {
	Episodes []int
	Rewards  []float64
	Lengths  []int
	Outcomes []string
}

func (r *RewardDataset) Copy() *RewardDataset {
	return &RewardDataset{
		Episodes: util.CopyIntSlice(r.Episodes),
		Rewards:  util.CopyFloatSlice(r.Rewards),
		Lengths:  util.CopyIntSlice(r.Lengths),
		Outcomes: append([]string{}, r.Outcomes...),
	}
}

type RewardSummary struct {
	Episodes   int
	MeanReward float64
	StdReward  float64
	MeanLength float64
	Outcomes   map[string]int
}

func (r *RewardDataset) Summary() RewardSummary {
	s := RewardSummary{
		Episodes: len(r.Rewards),
		Outcomes: make(map[string]int),
	}
	for _, o := range r.Outcomes {
		s.Outcomes[o]++
	}
	if len(r.Rewards) == 0 {
		return s
	}
	s.MeanReward = stat.Mean(r.Rewards, nil)
	if len(r.Rewards) > 1 {
		s.StdReward = stat.StdDev(r.Rewards, nil)
	}
	lengths := make([]float64, len(r.Lengths))
	for i, l := range r.Lengths {
		lengths[i] = float64(l)
	}
	s.MeanLength = stat.Mean(lengths, nil)
	return s
}

// RewardAnalyzer records the cumulative reward, length and outcome of every episode
type RewardAnalyzer struct {
	dataset *RewardDataset
}

var _ core.Analyzer = &RewardAnalyzer{}

func NewRewardAnalyzer() *RewardAnalyzer {
	a := &RewardAnalyzer{}
	a.Reset()
	return a
}

func (a *RewardAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	a.dataset.Episodes = append(a.dataset.Episodes, eCtx.Episode)
	a.dataset.Rewards = append(a.dataset.Rewards, trace.TotalReward())
	a.dataset.Lengths = append(a.dataset.Lengths, trace.Len())
	a.dataset.Outcomes = append(a.dataset.Outcomes, EpisodeOutcome(trace))
}

func (a *RewardAnalyzer) DataSet() core.DataSet {
	return a.dataset.Copy()
}

func (a *RewardAnalyzer) Reset() {
	a.dataset = &RewardDataset{
		Episodes: make([]int, 0),
		Rewards:  make([]float64, 0),
		Lengths:  make([]int, 0),
		Outcomes: make([]string, 0),
	}
}

type RewardAnalyzerConstructor struct{}

var _ core.AnalyzerConstructor = &RewardAnalyzerConstructor{}

func (c *RewardAnalyzerConstructor) NewAnalyzer(_ string, _ int) core.Analyzer {
	return NewRewardAnalyzer()
}

const summarySheet = "Summary"

// RewardComparator writes rewards.json and a rewards.xlsx workbook with one
// sheet per experiment plus a summary sheet
type RewardComparator struct {
	savePath string
	logger   zerolog.Logger
}

var _ core.Comparator = &RewardComparator{}

func NewRewardComparator(savePath string, logger zerolog.Logger) *RewardComparator {
	return &RewardComparator{
		savePath: savePath,
		logger:   logger,
	}
}

const maxSheetName = 31

// sheetName truncates name to the excel limit of 31 characters and, when the
// result was already taken, replaces its tail with a ~N suffix. Excel compares
// sheet names case insensitively.
func sheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.Trim(name, "'"))
	if name == "" {
		name = "Experiment"
	}
	base := []rune(name)
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	candidate := string(base)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := []rune("~" + strconv.Itoa(n))
		keep := base
		if len(keep)+len(suffix) > maxSheetName {
			keep = keep[:maxSheetName-len(suffix)]
		}
		candidate = string(keep) + string(suffix)
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func (c *RewardComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	out := make(map[string]*RewardDataset)
	for i, name := range experimentNames {
		ds, ok := datasets[i].(*RewardDataset)
		if !ok || ds == nil {
			continue
		}
		out[name] = ds
	}
	if err := util.SaveJson(path.Join(c.savePath, "rewards.json"), out); err != nil {
		c.logger.Error().Err(err).Msg("failed to save rewards.json")
	}
	if err := c.writeWorkbook(out); err != nil {
		c.logger.Error().Err(err).Msg("failed to save rewards.xlsx")
	}
}

func (c *RewardComparator) writeWorkbook(datasets map[string]*RewardDataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	used := map[string]bool{strings.ToLower(summarySheet): true}

	header := []interface{}{"Experiment", "Episodes", "Mean reward", "Std reward", "Mean length", "Outcomes"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}
	for i, name := range names {
		ds := datasets[name]
		s := ds.Summary()
		row := []interface{}{name, s.Episodes, s.MeanReward, s.StdReward, s.MeanLength, fmt.Sprint(s.Outcomes)}
		if err := f.SetSheetRow(summarySheet, "A"+strconv.Itoa(i+2), &row); err != nil {
			return err
		}

		sheet := sheetName(name, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		epHeader := []interface{}{"Episode", "Reward", "Steps", "Outcome"}
		if err := f.SetSheetRow(sheet, "A1", &epHeader); err != nil {
			return err
		}
		for j := range ds.Rewards {
			epRow := []interface{}{ds.Episodes[j], ds.Rewards[j], ds.Lengths[j], ds.Outcomes[j]}
			if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(j+2), &epRow); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(c.savePath, 0755); err != nil {
		return err
	}
	return f.SaveAs(path.Join(c.savePath, "rewards.xlsx"))
}

type RewardComparatorConstructor struct {
	savePath string
	logger   zerolog.Logger
}

var _ core.ComparatorConstructor = &RewardComparatorConstructor{}

func NewRewardComparatorConstructor(savePath string, logger zerolog.Logger) *RewardComparatorConstructor {
	return &RewardComparatorConstructor{
		savePath: savePath,
		logger:   logger,
	}
}

func (c *RewardComparatorConstructor) NewComparator(run int) core.Comparator {
	return NewRewardComparator(path.Join(c.savePath, strconv.Itoa(run)), c.logger)
}
