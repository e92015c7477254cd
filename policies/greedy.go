package policies

import (
	erand "golang.org/x/exp/rand"

	"github.com/zeu5/combat-rl/core"
)

// GreedyRewardPolicy learns a state-hash value table from the reward the
// environment emits and picks actions epsilon-greedily.
type GreedyRewardPolicy struct {
	qTable   *QTable
	alpha    float64
	discount float64
	epsilon  float64
	seed     uint64
	rand     *erand.Rand
}

var _ core.Policy = &GreedyRewardPolicy{}

func NewGreedyRewardPolicy(alpha, discount, epsilon float64, seed uint64) *GreedyRewardPolicy {
	return &GreedyRewardPolicy{
		qTable:   NewQTable(erand.NewSource(seed)),
		alpha:    alpha,
		discount: discount,
		epsilon:  epsilon,
		seed:     seed,
		rand:     erand.New(erand.NewSource(seed + 1)),
	}
}

func (g *GreedyRewardPolicy) Table() *QTable {
	return g.qTable
}

func (g *GreedyRewardPolicy) Record(path string) error {
	return g.qTable.Record(path)
}

func (g *GreedyRewardPolicy) Reset() {
	g.qTable = NewQTable(erand.NewSource(g.seed))
	g.rand = erand.New(erand.NewSource(g.seed + 1))
}

func (g *GreedyRewardPolicy) ResetEpisode(_ *core.EpisodeContext) {
}

func (g *GreedyRewardPolicy) PickAction(step *core.StepContext, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	if g.rand.Float64() < g.epsilon {
		i := g.rand.Intn(len(actions))
		return actions[i]
	}

	actionsMap := make(map[string]core.Action)
	availableActions := make([]string, len(actions))
	for i, a := range actions {
		aHash := a.Hash()
		actionsMap[aHash] = a
		availableActions[i] = aHash
	}
	maxAction, _ := g.qTable.MaxAmong(state.Hash(), availableActions, 0)
	if maxAction == "" {
		return nil
	}
	return actionsMap[maxAction]
}

func (g *GreedyRewardPolicy) UpdateStep(sCtx *core.StepContext, state core.State, action core.Action, nextState core.State) {
	stateHash := state.Hash()
	actionHash := action.Hash()

	nextVal := 0.0
	if !nextState.Terminal() {
		_, nextVal = g.qTable.Max(nextState.Hash(), 0)
	}
	curVal := g.qTable.Get(stateHash, actionHash, 0)

	newVal := (1-g.alpha)*curVal + g.alpha*(nextState.Reward()+g.discount*nextVal)
	g.qTable.Set(stateHash, actionHash, newVal)
}

func (g *GreedyRewardPolicy) UpdateEpisode(episode *core.EpisodeContext) {

}

type GreedyRewardPolicyConstructor struct {
	alpha    float64
	discount float64
	epsilon  float64
	seed     uint64
}

var _ core.PolicyConstructor = &GreedyRewardPolicyConstructor{}

func NewGreedyRewardPolicyConstructor(alpha, discount, epsilon float64, seed uint64) *GreedyRewardPolicyConstructor {
	return &GreedyRewardPolicyConstructor{
		alpha:    alpha,
		discount: discount,
		epsilon:  epsilon,
		seed:     seed,
	}
}

func (g *GreedyRewardPolicyConstructor) NewPolicy(instance int) core.Policy {
	return NewGreedyRewardPolicy(g.alpha, g.discount, g.epsilon, g.seed+uint64(instance)*2)
}
