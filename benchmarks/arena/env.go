package arena

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	erand "golang.org/x/exp/rand"

	"github.com/zeu5/combat-rl/agent"
	"github.com/zeu5/combat-rl/core"
)

var ErrInvalidAction = errors.New("not an arena action")

type Heading int

const (
	Toward Heading = iota
	Away
	StrafeLeft
	StrafeRight
	numHeadings
)

func (h Heading) String() string {
	switch h {
	case Toward:
		return "toward"
	case Away:
		return "away"
	case StrafeLeft:
		return "left"
	case StrafeRight:
		return "right"
	}
	return "unknown"
}

// Action is one discrete arena action. The continuous movement is derived from
// the heading relative to the target at the time the action is taken.
type Action struct {
	Mode    agent.Mode
	Tuning  agent.TuningChoice
	Tier    int
	Heading Heading
}

var _ core.Action = &Action{}

func (a *Action) Hash() string {
	return fmt.Sprintf("%s_%s_%d_%s", a.Mode, a.Tuning, a.Tier, a.Heading)
}

func (a *Action) Command(s agent.WorldSnapshot) agent.ActionCommand {
	dir := s.TargetPosition.Sub(s.AgentPosition)
	dir.Y = 0
	dir = dir.Normalized()
	switch a.Heading {
	case Away:
		dir = dir.Scale(-1)
	case StrafeLeft:
		dir = agent.Vec3{X: -dir.Z, Z: dir.X}
	case StrafeRight:
		dir = agent.Vec3{X: dir.Z, Z: -dir.X}
	}
	return agent.ActionCommand{
		MoveX:      dir.X,
		MoveZ:      dir.Z,
		Mode:       a.Mode,
		Tuning:     a.Tuning,
		AttackTier: a.Tier,
		ChaseTier:  a.Tier,
		SpeedTier:  a.Tier,
	}
}

// AllActions enumerates mode x tuning x tier x heading.
func AllActions() []core.Action {
	out := make([]core.Action, 0, agent.NumStates*agent.NumActions*agent.NumTiers*int(numHeadings))
	for m := 0; m < agent.NumStates; m++ {
		for t := 0; t < agent.NumActions; t++ {
			for tier := 0; tier < agent.NumTiers; tier++ {
				for h := Heading(0); h < numHeadings; h++ {
					out = append(out, &Action{
						Mode:    agent.Mode(m),
						Tuning:  agent.TuningChoice(t),
						Tier:    tier,
						Heading: h,
					})
				}
			}
		}
	}
	return out
}

type State struct {
	Snapshot    agent.WorldSnapshot
	Observation []float64
	Params      agent.CombatParams
	Time        float64
	Reason      agent.TerminalReason

	reward   float64
	terminal bool
	qValues  [agent.NumStates][agent.NumActions]float64
	actions  []core.Action
}

var _ core.State = &State{}

func bucket(v, width float64, top int) int {
	b := int(math.Floor(v / width))
	if b > top {
		return top
	}
	if b < 0 {
		return 0
	}
	return b
}

func (s *State) Hash() string {
	return fmt.Sprintf(
		"d%d_a%d_t%d_h%t",
		bucket(s.Snapshot.Distance(), 2, 10),
		bucket(s.Snapshot.AgentHealth, 25, 4),
		bucket(s.Snapshot.TargetHealth, 25, 4),
		s.Snapshot.NearHazard,
	)
}

func (s *State) Actions() []core.Action {
	return s.actions
}

func (s *State) Reward() float64 {
	return s.reward
}

func (s *State) Terminal() bool {
	return s.terminal
}

// Outcome names the terminal reason, "running" while the episode goes on
func (s *State) Outcome() string {
	return s.Reason.String()
}

func (s *State) String() string {
	return fmt.Sprintf(
		"t=%.2f dist=%.2f agentHP=%.0f targetHP=%.0f score=%.0f acc=%.2f hazard=%t range=%.2f chase=%.2f speed=%.3f reason=%s",
		s.Time,
		s.Snapshot.Distance(),
		s.Snapshot.AgentHealth,
		s.Snapshot.TargetHealth,
		s.Snapshot.TargetScore,
		s.Snapshot.AgentAccuracy,
		s.Snapshot.NearHazard,
		s.Params.AttackRange,
		s.Params.ChasingRange,
		s.Params.Speed,
		s.Reason,
	)
}

// QValues is the decision core's value table after the transition into s
func (s *State) QValues() [agent.NumStates][agent.NumActions]float64 {
	return s.qValues
}

type Config struct {
	World     WorldConfig
	Core      agent.Config
	DeltaTime float64
	// Bounds is the arena radius around the origin
	Bounds float64
	Seed   uint64
}

func DefaultConfig() Config {
	return Config{
		World:     DefaultWorldConfig(),
		Core:      agent.DefaultConfig(),
		DeltaTime: 0.1,
		Bounds:    50,
	}
}

// Env runs one decision core against one world. The core is created once so its
// QTable survives episode resets.
type Env struct {
	cfg     Config
	world   *World
	core    *agent.Core
	actions []core.Action
}

var _ core.Environment = &Env{}

func NewEnv(cfg Config, c *agent.Core) *Env {
	return &Env{
		cfg:     cfg,
		world:   NewWorld(cfg.World, cfg.DeltaTime),
		core:    c,
		actions: AllActions(),
	}
}

func (e *Env) Core() *agent.Core {
	return e.core
}

func (e *Env) World() *World {
	return e.world
}

func (e *Env) state(res agent.StepResult) *State {
	snap := e.world.Snapshot()
	obs := res.Observation
	if obs == nil {
		obs = e.core.Observe(snap)
	}
	return &State{
		Snapshot:    snap,
		Observation: obs,
		Params:      e.world.Params(),
		Time:        e.core.Episode().Time,
		Reason:      res.Reason,
		reward:      res.Reported,
		terminal:    res.Terminal,
		qValues:     e.core.QValues(),
		actions:     e.actions,
	}
}

func (e *Env) Reset() (core.State, error) {
	e.world.Reset()
	e.core.BeginEpisode()
	return e.state(agent.StepResult{}), nil
}

func (e *Env) Step(a core.Action, _ *core.StepContext) (core.State, error) {
	act, ok := a.(*Action)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrInvalidAction, a)
	}
	res, err := e.core.Step(e.world, act.Command(e.world.Snapshot()), e.cfg.DeltaTime)
	if err != nil {
		return nil, err
	}
	if e.cfg.Bounds > 0 && e.world.Snapshot().AgentPosition.Length() > e.cfg.Bounds {
		return nil, core.ErrOutOfBounds
	}
	return e.state(res), nil
}

type EnvConstructor struct {
	cfg    Config
	logger zerolog.Logger
}

var _ core.EnvironmentConstructor = &EnvConstructor{}

func NewEnvConstructor(cfg Config, logger zerolog.Logger) *EnvConstructor {
	return &EnvConstructor{cfg: cfg, logger: logger}
}

func (c *EnvConstructor) NewEnvironment(instance int) core.Environment {
	coreCfg := c.cfg.Core
	coreCfg.ID = fmt.Sprintf("agent-%d", instance)
	src := erand.NewSource(c.cfg.Seed + uint64(instance))
	return NewEnv(c.cfg, agent.New(coreCfg, src, c.logger))
}
