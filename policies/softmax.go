package policies

import (
	"math"

	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/zeu5/combat-rl/agent"
	"github.com/zeu5/combat-rl/core"
)

// CoreState exposes the decision core's own value table
type CoreState interface {
	core.State
	QValues() [agent.NumStates][agent.NumActions]float64
}

// CoreAction is an action that carries a mode and a tuning choice
type CoreAction interface {
	core.Action
	Command(agent.WorldSnapshot) agent.ActionCommand
}

// SoftMaxQPolicy samples actions with probability proportional to
// exp(Q[mode][tuning] / temperature) using the core's QTable.
// States or actions without core information get a value of 0.
type SoftMaxQPolicy struct {
	Temperature float64

	seed uint64
	rand erand.Source
}

var _ core.Policy = &SoftMaxQPolicy{}

func NewSoftMaxQPolicy(temperature float64, seed uint64) *SoftMaxQPolicy {
	if temperature <= 0 {
		temperature = 1
	}
	return &SoftMaxQPolicy{
		Temperature: temperature,
		seed:        seed,
		rand:        erand.NewSource(seed),
	}
}

func (s *SoftMaxQPolicy) Reset() {
	s.rand = erand.NewSource(s.seed)
}

func (s *SoftMaxQPolicy) ResetEpisode(_ *core.EpisodeContext) {}

func (s *SoftMaxQPolicy) UpdateEpisode(_ *core.EpisodeContext) {}

func (s *SoftMaxQPolicy) UpdateStep(_ *core.StepContext, _ core.State, _ core.Action, _ core.State) {}

func actionValue(q [agent.NumStates][agent.NumActions]float64, a core.Action) float64 {
	ca, ok := a.(CoreAction)
	if !ok {
		return 0
	}
	cmd := ca.Command(agent.WorldSnapshot{})
	m, t := int(cmd.Mode), int(cmd.Tuning)
	if m < 0 || m >= agent.NumStates || t < 0 || t >= agent.NumActions {
		return 0
	}
	return q[m][t]
}

// Weights returns the softmax distribution over actions in state
func (s *SoftMaxQPolicy) Weights(state core.State, actions []core.Action) []float64 {
	var q [agent.NumStates][agent.NumActions]float64
	if cs, ok := state.(CoreState); ok {
		q = cs.QValues()
	}

	vals := make([]float64, len(actions))
	largestValue := math.Inf(-1)
	for i, a := range actions {
		vals[i] = actionValue(q, a) / s.Temperature
		if vals[i] > largestValue {
			largestValue = vals[i]
		}
	}

	// Normalizing
	sum := 0.0
	for i := range vals {
		vals[i] = math.Exp(vals[i] - largestValue)
		sum += vals[i]
	}
	for i := range vals {
		vals[i] /= sum
	}
	return vals
}

func (s *SoftMaxQPolicy) PickAction(step *core.StepContext, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	weights := s.Weights(state, actions)
	i, ok := sampleuv.NewWeighted(weights, s.rand).Take()
	if !ok {
		return nil
	}
	return actions[i]
}

type SoftMaxQPolicyConstructor struct {
	temperature float64
	seed        uint64
}

var _ core.PolicyConstructor = &SoftMaxQPolicyConstructor{}

func NewSoftMaxQPolicyConstructor(temperature float64, seed uint64) *SoftMaxQPolicyConstructor {
	return &SoftMaxQPolicyConstructor{
		temperature: temperature,
		seed:        seed,
	}
}

func (s *SoftMaxQPolicyConstructor) NewPolicy(instance int) core.Policy {
	return NewSoftMaxQPolicy(s.temperature, s.seed+uint64(instance))
}
