package analysis

import (
	"bytes"
	"fmt"

	"github.com/zeu5/combat-rl/core"
)

// outcomeState is implemented by states that know why their episode ended
type outcomeState interface {
	Outcome() string
}

const (
	OutcomeHorizon = "horizon"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

// EpisodeOutcome names how the traced episode ended
func EpisodeOutcome(trace *core.Trace) string {
	if trace.Error() != nil {
		return OutcomeError
	}
	last := trace.Last()
	if last == nil {
		return OutcomeEmpty
	}
	if s, ok := last.NextState.(outcomeState); ok && last.NextState.Terminal() {
		return s.Outcome()
	}
	return OutcomeHorizon
}

// OutcomeIs matches episodes that ended with the given outcome
func OutcomeIs(outcome string) func(*core.Trace) bool {
	return func(t *core.Trace) bool {
		return EpisodeOutcome(t) == outcome
	}
}

func stateToString(state core.State) string {
	if state == nil {
		return "<nil>"
	}
	if s, ok := state.(fmt.Stringer); ok {
		return s.String()
	}
	return state.Hash()
}

func stepToString(step *core.Step) string {
	return fmt.Sprintf(
		"State: %s\nAction: %s\nReward: %.4f\nNext State: %s\n",
		stateToString(step.State),
		step.Action.Hash(),
		step.Reward,
		stateToString(step.NextState),
	)
}

func traceToString(trace *core.Trace) string {
	buf := new(bytes.Buffer)
	for i := 0; i < trace.Len(); i++ {
		fmt.Fprintf(buf, "Step %d\n%s\n", i, stepToString(trace.Step(i)))
	}
	fmt.Fprintf(buf, "Outcome: %s, Total reward: %.4f\n", EpisodeOutcome(trace), trace.TotalReward())
	return buf.String()
}
