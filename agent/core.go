package agent

import (
	"errors"

	"github.com/rs/zerolog"
	erand "golang.org/x/exp/rand"
)

var ErrEpisodeOver = errors.New("episode already terminal")

type Config struct {
	ID string

	LearningRate   float64
	DiscountFactor float64

	Reward RewardConfig

	// BootstrapReportedReward adds max(Q[state]) to the reward reported to the outer trainer
	BootstrapReportedReward bool
}

func DefaultConfig() Config {
	return Config{
		ID:             "agent-0",
		LearningRate:   0.1,
		DiscountFactor: 0.99,
		Reward:         DefaultRewardConfig(),
	}
}

// Host is the external world the core queries and commands.
type Host interface {
	Snapshot() WorldSnapshot
	Params() CombatParams
	// Apply executes the command and returns the outcome of an attack resolved
	// during this tick, NoAttack otherwise.
	Apply(HostCommand) AttackOutcome
}

type StepResult struct {
	Reward      Reward
	Reported    float64
	Observation []float64
	Terminal    bool
	Reason      TerminalReason
}

// Core is the episodic decision core of one agent. It is not safe for concurrent use.
type Core struct {
	cfg      Config
	qTable   *QTable
	episode  *EpisodeState
	episodes int
	logger   zerolog.Logger
}

func New(cfg Config, src erand.Source, logger zerolog.Logger) *Core {
	return &Core{
		cfg:     cfg,
		qTable:  NewQTable(src),
		episode: &EpisodeState{},
		logger:  logger.With().Str("agent", cfg.ID).Logger(),
	}
}

// BeginEpisode discards the current episode state. The QTable is kept.
func (c *Core) BeginEpisode() {
	if c.episode.Ticks > 0 {
		c.logger.Info().
			Int("episode", c.episodes).
			Int("ticks", c.episode.Ticks).
			Float64("time", c.episode.Time).
			Str("reason", c.episode.Reason.String()).
			Float64("reward", c.episode.CumulativeReward).
			Msg("episode finished")
	}
	c.episodes++
	c.episode = &EpisodeState{}
}

func (c *Core) Observe(s WorldSnapshot) []float64 {
	return Observe(s)
}

// Act advances the episode clock by dt and interprets the command.
func (c *Core) Act(cmd ActionCommand, s WorldSnapshot, params CombatParams, dt float64) HostCommand {
	c.episode.advance(dt)
	return Interpret(cmd, s.Distance(), params, dt)
}

// RecordAttack is called by the host once an attack has been resolved.
func (c *Core) RecordAttack(outcome AttackOutcome) {
	if outcome == NoAttack {
		return
	}
	c.episode.AttackOutcome = outcome
}

// Learn scores the post-action snapshot and updates the QTable. The lookahead
// uses the same tick's state, not the next one.
func (c *Core) Learn(cmd ActionCommand, s WorldSnapshot) (StepResult, error) {
	if c.episode.Terminal {
		return StepResult{}, ErrEpisodeOver
	}
	state, action := int(cmd.Mode), int(cmd.Tuning)
	if err := checkIndex(state, action); err != nil {
		return StepResult{}, err
	}

	reward := c.cfg.Reward.Score(s, c.episode)
	total := reward.Total()
	prevState, prevAction := state, action
	if err := c.qTable.Update(prevState, prevAction, state, total, c.cfg.LearningRate, c.cfg.DiscountFactor); err != nil {
		return StepResult{}, err
	}

	reported := total
	if c.cfg.BootstrapReportedReward {
		best, err := c.qTable.Max(state)
		if err != nil {
			return StepResult{}, err
		}
		reported += best
	}
	c.episode.Ticks++
	c.episode.CumulativeReward += reported

	c.logger.Trace().
		Str("action", cmd.String()).
		Float64("shaping", reward.Shaping).
		Float64("events", reward.Events).
		Bool("terminal", c.episode.Terminal).
		Msg("tick")

	return StepResult{
		Reward:      reward,
		Reported:    reported,
		Observation: Observe(s),
		Terminal:    c.episode.Terminal,
		Reason:      c.episode.Reason,
	}, nil
}

// Step runs one full tick against the host.
func (c *Core) Step(h Host, cmd ActionCommand, dt float64) (StepResult, error) {
	if c.episode.Terminal {
		return StepResult{}, ErrEpisodeOver
	}
	hc := c.Act(cmd, h.Snapshot(), h.Params(), dt)
	c.RecordAttack(h.Apply(hc))
	return c.Learn(cmd, h.Snapshot())
}

func (c *Core) Episode() EpisodeState {
	return *c.episode
}

func (c *Core) Episodes() int {
	return c.episodes
}

func (c *Core) QValues() [NumStates][NumActions]float64 {
	return c.qTable.Values()
}

func (c *Core) Config() Config {
	return c.cfg
}
