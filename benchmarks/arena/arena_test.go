package arena

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	erand "golang.org/x/exp/rand"

	"github.com/zeu5/combat-rl/agent"
	"github.com/zeu5/combat-rl/benchmarks/common"
	"github.com/zeu5/combat-rl/core"
	"github.com/zeu5/combat-rl/storage"
)

func newTestEnv(t *testing.T, mutate func(*Config)) *Env {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewEnv(cfg, agent.New(cfg.Core, erand.NewSource(1), zerolog.Nop()))
}

func TestAllActions(t *testing.T) {
	actions := AllActions()
	require.Len(t, actions, 120)
	hashes := make(map[string]bool)
	for _, a := range actions {
		hashes[a.Hash()] = true
	}
	assert.Len(t, hashes, 120)
}

func TestActionHeadings(t *testing.T) {
	snap := agent.WorldSnapshot{AgentPosition: agent.Vec3{Z: 15}}

	cmd := (&Action{Mode: agent.ModeMove, Heading: Toward}).Command(snap)
	assert.InDelta(t, 0, cmd.MoveX, 1e-12)
	assert.InDelta(t, -1, cmd.MoveZ, 1e-12)

	cmd = (&Action{Mode: agent.ModeMove, Heading: Away}).Command(snap)
	assert.InDelta(t, 1, cmd.MoveZ, 1e-12)

	cmd = (&Action{Mode: agent.ModeMove, Heading: StrafeLeft}).Command(snap)
	assert.InDelta(t, 1, cmd.MoveX, 1e-12)
	assert.InDelta(t, 0, cmd.MoveZ, 1e-12)

	cmd = (&Action{Mode: agent.ModeAttack, Tuning: agent.TuneSpeedRange, Tier: 3}).Command(snap)
	assert.Equal(t, agent.ModeAttack, cmd.Mode)
	assert.Equal(t, 3, cmd.SpeedTier)
}

func TestResetState(t *testing.T) {
	env := newTestEnv(t, nil)
	s, err := env.Reset()
	require.NoError(t, err)

	state := s.(*State)
	assert.False(t, state.Terminal())
	assert.Equal(t, "running", state.Outcome())
	assert.Len(t, state.Observation, agent.ObservationSize)
	assert.InDelta(t, 15, state.Observation[0], 1e-12)
	assert.Len(t, state.Actions(), 120)
	assert.Contains(t, state.String(), "dist=15.00")
}

func TestMoveTowardTarget(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.Reset()
	require.NoError(t, err)

	s, err := env.Step(&Action{Mode: agent.ModeMove, Tuning: agent.TuneChasingRange, Tier: 2, Heading: Toward}, nil)
	require.NoError(t, err)
	state := s.(*State)
	assert.InDelta(t, 14.9, state.Snapshot.Distance(), 1e-9)
	assert.True(t, env.World().Moving())
	assert.InDelta(t, 0.1, state.Time, 1e-12)
	// far from the target the shaping term is the distance penalty
	assert.InDelta(t, -1.49, state.Reward(), 1e-9)
}

func TestHostChasesInsideChasingRange(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.World.AgentSpawn = agent.Vec3{Z: 5}
	})
	_, err := env.Reset()
	require.NoError(t, err)

	s, err := env.Step(&Action{Mode: agent.ModeMove, Tuning: agent.TuneSpeedRange, Tier: 2, Heading: Away}, nil)
	require.NoError(t, err)
	// no displacement inside the chasing range, the host closes in at speed * frameRate * dt
	assert.InDelta(t, 5-0.009*frameRate*0.1, s.(*State).Snapshot.Distance(), 1e-9)
}

func TestTargetDownEndsEpisode(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.World.AgentSpawn = agent.Vec3{Z: 1}
		c.World.AgentDamage = 100
	})
	_, err := env.Reset()
	require.NoError(t, err)

	s, err := env.Step(&Action{Mode: agent.ModeAttack, Tuning: agent.TuneAttackRange, Tier: 1}, nil)
	require.NoError(t, err)
	state := s.(*State)
	require.True(t, state.Terminal())
	assert.Equal(t, "target_down", state.Outcome())
	// 14/1 shaping, early kill -10, successful attack +5
	assert.InDelta(t, 9, state.Reward(), 1e-9)
	assert.Equal(t, 1.0, state.Snapshot.AgentAccuracy)

	_, err = env.Step(&Action{Mode: agent.ModeAttack}, nil)
	assert.ErrorIs(t, err, agent.ErrEpisodeOver)
}

func TestHazardEndsEpisode(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.World.AgentSpawn = agent.Vec3{X: 10, Z: 10}
	})
	_, err := env.Reset()
	require.NoError(t, err)

	s, err := env.Step(&Action{Mode: agent.ModeAttack, Tuning: agent.TuneAttackRange, Tier: 1}, nil)
	require.NoError(t, err)
	state := s.(*State)
	assert.True(t, state.Terminal())
	assert.Equal(t, "hazard", state.Outcome())
	assert.Less(t, state.Reward(), -99.0)
}

func TestTimeoutEndsEpisode(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Core.Reward.EpisodeLimit = 0.3
	})
	_, err := env.Reset()
	require.NoError(t, err)

	stay := &Action{Mode: agent.ModeAttack, Tuning: agent.TuneAttackRange, Tier: 1}
	for i := 0; i < 2; i++ {
		s, err := env.Step(stay, nil)
		require.NoError(t, err)
		assert.False(t, s.Terminal())
	}
	s, err := env.Step(stay, nil)
	require.NoError(t, err)
	assert.True(t, s.Terminal())
	assert.Equal(t, "timeout", s.(*State).Outcome())
}

func TestQTableSurvivesReset(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.Reset()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := env.Step(&Action{Mode: agent.ModeMove, Heading: Toward}, nil)
		require.NoError(t, err)
	}
	learned := env.Core().QValues()

	s, err := env.Reset()
	require.NoError(t, err)
	assert.Equal(t, learned, s.(*State).QValues())
	assert.Equal(t, 0, env.Core().Episode().Ticks)
	assert.Equal(t, agent.Vec3{Z: 15}, env.World().Snapshot().AgentPosition)
}

func TestOutOfBounds(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Bounds = 15.05
	})
	_, err := env.Reset()
	require.NoError(t, err)

	_, err = env.Step(&Action{Mode: agent.ModeMove, Heading: Away}, nil)
	assert.ErrorIs(t, err, core.ErrOutOfBounds)
}

type otherAction struct{}

func (otherAction) Hash() string { return "other" }

func TestInvalidAction(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.Reset()
	require.NoError(t, err)
	_, err = env.Step(otherAction{}, nil)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestEnvConstructorSeeds(t *testing.T) {
	c := NewEnvConstructor(DefaultConfig(), zerolog.Nop())
	a := c.NewEnvironment(0).(*Env)
	b := c.NewEnvironment(0).(*Env)
	other := c.NewEnvironment(1).(*Env)

	assert.Equal(t, a.Core().QValues(), b.Core().QValues())
	assert.NotEqual(t, a.Core().QValues(), other.Core().QValues())
	assert.Equal(t, "agent-1", other.Core().Config().ID)
}

func testFlags(t *testing.T) *common.Flags {
	flags := common.DefaultFlags()
	flags.SavePath = t.TempDir()
	flags.Episodes = 3
	flags.Horizon = 30
	flags.Parallelism = 2
	return flags
}

func testRunConfig(flags *common.Flags) *core.RunConfig {
	return &core.RunConfig{
		Episodes:                     flags.Episodes,
		Horizon:                      flags.Horizon,
		EpisodeTimeout:               10 * time.Second,
		ThresholdConsecutiveErrors:   flags.MaxConsecutiveErrors,
		ThresholdConsecutiveTimeouts: flags.MaxConsecutiveTimeouts,
	}
}

func TestPrepareSingle(t *testing.T) {
	flags := testFlags(t)
	store := storage.NewMemoryStore()

	_, err := PrepareSingle(flags, zerolog.Nop(), store, "run", "Nope")
	assert.Error(t, err)

	cmp, err := PrepareSingle(flags, zerolog.Nop(), store, "run", "SoftMaxQ")
	require.NoError(t, err)
	cmp.Writer = io.Discard

	results := cmp.Run(context.Background(), 1, testRunConfig(flags))
	require.Len(t, results, 1)
	res := results[0]["SoftMaxQ"]
	require.NotNil(t, res)
	assert.NoError(t, res.Error)
	assert.Equal(t, 3, res.TotalEpisodes)

	recs, err := store.Episodes(context.Background(), "run", "SoftMaxQ")
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	_, err = os.Stat(filepath.Join(flags.SavePath, "rewards.xlsx"))
	assert.NoError(t, err)
}

func TestPrepareComparison(t *testing.T) {
	flags := testFlags(t)
	flags.RecordEventTraces = true
	store := storage.NewMemoryStore()

	cmp := PrepareComparison(flags, zerolog.Nop(), store, "run")
	require.Len(t, cmp.Experiments, 3)
	assert.Contains(t, cmp.Analyzers, "Events")
	assert.Contains(t, cmp.Analyzers, "Record")
	assert.NotContains(t, cmp.Analyzers, "Debug")

	results := cmp.Run(context.Background(), 1, testRunConfig(flags), flags.Parallelism)
	require.Len(t, results, 1)
	for _, name := range []string{"Random", "SoftMaxQ", "GreedyReward"} {
		require.Contains(t, results[0], name)
		assert.Equal(t, 3, results[0][name].TotalEpisodes)
	}

	recs, err := store.Episodes(context.Background(), "run", "")
	require.NoError(t, err)
	assert.Len(t, recs, 9)

	sums, err := storage.Summarize(context.Background(), store, "run")
	require.NoError(t, err)
	require.Len(t, sums, 3)
	for _, s := range sums {
		assert.Equal(t, 3, s.Episodes)
	}

	_, err = os.Stat(filepath.Join(flags.SavePath, "0", "rewards.xlsx"))
	assert.NoError(t, err)
}
