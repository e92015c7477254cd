package arena

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zeu5/combat-rl/agent"
	"github.com/zeu5/combat-rl/analysis"
	"github.com/zeu5/combat-rl/benchmarks/common"
	"github.com/zeu5/combat-rl/core"
	"github.com/zeu5/combat-rl/policies"
	"github.com/zeu5/combat-rl/storage"
)

// ConfigFromFlags builds the arena and decision core configuration
func ConfigFromFlags(flags *common.Flags) Config {
	cfg := DefaultConfig()
	cfg.DeltaTime = flags.DeltaTime
	cfg.Bounds = flags.Bounds
	cfg.Seed = flags.Seed
	cfg.Core.LearningRate = flags.LearningRate
	cfg.Core.DiscountFactor = flags.DiscountFactor
	cfg.Core.BootstrapReportedReward = flags.BootstrapReward
	return cfg
}

type experimentSpec struct {
	name   string
	policy core.PolicyConstructor
}

func experiments(flags *common.Flags) []experimentSpec {
	return []experimentSpec{
		{name: "Random", policy: &policies.RandomPolicyConstructor{Seed: flags.Seed}},
		{name: "SoftMaxQ", policy: policies.NewSoftMaxQPolicyConstructor(flags.Temperature, flags.Seed)},
		{name: "GreedyReward", policy: policies.NewGreedyRewardPolicyConstructor(flags.Alpha, flags.Discount, flags.Epsilon, flags.Seed)},
	}
}

func hazardEvent() analysis.EventSpec {
	return analysis.EventSpec{
		Name:  "hazard",
		Check: analysis.OutcomeIs(agent.Hazard.String()),
	}
}

// PrepareComparison runs every policy against its own arena, in parallel.
// A nil store skips the episode records.
func PrepareComparison(flags *common.Flags, logger zerolog.Logger, store storage.Store, runID string) *core.ParallelComparison {
	cmp := core.NewParallelComparison(logger)
	envConstructor := NewEnvConstructor(ConfigFromFlags(flags), logger)

	for _, e := range experiments(flags) {
		cmp.AddExperiment(&core.ParallelExperiment{
			Name:        e.name,
			Environment: envConstructor,
			Policy:      e.policy,
		})
	}

	cmp.AddAnalysis("Rewards", &analysis.RewardAnalyzerConstructor{}, analysis.NewRewardComparatorConstructor(flags.SavePath, logger))
	cmp.AddAnalysis("Coverage", &analysis.CoverageAnalyzerConstructor{}, analysis.NewJSONComparatorConstructor(flags.SavePath, "coverage.json", logger))
	cmp.AddAnalysis("Errors", analysis.NewErrorAnalyzerConstructor(flags.SavePath), analysis.NewNoOpComparatorConstructor())
	if flags.RecordEventTraces {
		cmp.AddAnalysis("Events", analysis.NewEventAnalyzerConstructor(flags.SavePath, hazardEvent()), analysis.NewJSONComparatorConstructor(flags.SavePath, "events.json", logger))
	}
	if flags.Debug {
		cmp.AddAnalysis("Debug", analysis.NewPrintDebugAnalyzerConstructor(flags.SavePath, 0), analysis.NewNoOpComparatorConstructor())
	}
	if store != nil {
		cmp.AddAnalysis("Record", analysis.NewRecordAnalyzerConstructor(store, runID, logger), analysis.NewNoOpComparatorConstructor())
	}
	return cmp
}

// PrepareSingle runs one named policy against a single arena, one episode at a time
func PrepareSingle(flags *common.Flags, logger zerolog.Logger, store storage.Store, runID, policy string) (*core.Comparison, error) {
	var spec *experimentSpec
	for _, e := range experiments(flags) {
		if e.name == policy {
			e := e
			spec = &e
			break
		}
	}
	if spec == nil {
		return nil, fmt.Errorf("unknown policy %q", policy)
	}

	cmp := core.NewComparison(logger)
	cmp.AddExperiment(&core.Experiment{
		Name:        spec.name,
		Environment: NewEnvConstructor(ConfigFromFlags(flags), logger).NewEnvironment(0),
		Policy:      spec.policy.NewPolicy(0),
	})

	cmp.AddAnalysis("Rewards", analysis.NewRewardAnalyzer(), analysis.NewRewardComparator(flags.SavePath, logger))
	cmp.AddAnalysis("Coverage", analysis.NewCoverageAnalyzer(), analysis.NewJSONComparator(flags.SavePath, "coverage.json", logger))
	cmp.AddAnalysis("Errors", analysis.NewErrorAnalyzer(flags.SavePath), &analysis.NoOpComparator{})
	if flags.RecordEventTraces {
		cmp.AddAnalysis("Events", analysis.NewEventAnalyzer(flags.SavePath, hazardEvent()), analysis.NewJSONComparator(flags.SavePath, "events.json", logger))
	}
	if flags.Debug {
		cmp.AddAnalysis("Debug", analysis.NewPrintDebugAnalyzer(flags.SavePath, 0), &analysis.NoOpComparator{})
	}
	if store != nil {
		cmp.AddAnalysis("Record", analysis.NewRecordAnalyzer(store, runID, spec.name, logger), &analysis.NoOpComparator{})
	}
	return cmp, nil
}
