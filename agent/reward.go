package agent

import "math"

type TerminalReason int

const (
	Running TerminalReason = iota
	Hazard
	TargetDown
	AgentDown
	Timeout
)

func (t TerminalReason) String() string {
	switch t {
	case Hazard:
		return "hazard"
	case TargetDown:
		return "target_down"
	case AgentDown:
		return "agent_down"
	case Timeout:
		return "timeout"
	default:
		return "running"
	}
}

// EpisodeState lives from BeginEpisode to the terminal tick.
type EpisodeState struct {
	Time             float64
	Ticks            int
	CumulativeReward float64
	AttackOutcome    AttackOutcome

	Terminal bool
	// Reason is the first terminal condition hit in the episode
	Reason TerminalReason

	// elapsed is the episode clock in microseconds; Time is derived from it so
	// repeated ticks do not accumulate rounding error
	elapsed int64
}

const clockResolution = 1e6

func (e *EpisodeState) advance(dt float64) {
	e.elapsed += int64(math.Round(dt * clockResolution))
	e.Time = float64(e.elapsed) / clockResolution
}

func (e *EpisodeState) terminate(reason TerminalReason) {
	if !e.Terminal {
		e.Reason = reason
	}
	e.Terminal = true
}

// ConsumeAttack returns the pending outcome and resets it to NoAttack.
func (e *EpisodeState) ConsumeAttack() AttackOutcome {
	out := e.AttackOutcome
	e.AttackOutcome = NoAttack
	return out
}

type RewardConfig struct {
	EngageRadius float64
	FarPenalty   float64
	MinDistance  float64

	HazardPenalty float64

	EarlyWindow     float64
	EarlyTargetDown float64
	TargetDownBonus float64

	AgentDownPenalty      float64
	EarlyAgentDownPenalty float64

	AttackSuccessReward float64
	AttackFailPenalty   float64

	EpisodeLimit   float64
	TimeoutPenalty float64
}

func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		EngageRadius: 14,
		FarPenalty:   -0.1,
		MinDistance:  1e-3,

		HazardPenalty: -100,

		EarlyWindow:     30,
		EarlyTargetDown: -10,
		TargetDownBonus: 10,

		AgentDownPenalty:      -10,
		EarlyAgentDownPenalty: -10,

		AttackSuccessReward: 5,
		AttackFailPenalty:   -10,

		EpisodeLimit:   210,
		TimeoutPenalty: -30,
	}
}

// Reward is the per-tick reward split into its distance shaping and event parts.
type Reward struct {
	Shaping float64
	Events  float64
}

func (r Reward) Total() float64 {
	return r.Shaping + r.Events
}

// Shaping rewards closeness inside the engage radius and penalizes distance outside it.
func (c RewardConfig) Shaping(distance float64) float64 {
	if distance <= c.EngageRadius {
		if distance < c.MinDistance {
			distance = c.MinDistance
		}
		return c.EngageRadius / distance
	}
	return distance * c.FarPenalty
}

// Score computes the reward for the tick and marks the episode terminal when a
// terminal condition holds. A hazard ends the tick immediately.
func (c RewardConfig) Score(s WorldSnapshot, ep *EpisodeState) Reward {
	r := Reward{Shaping: c.Shaping(s.Distance())}

	if s.NearHazard {
		r.Events += c.HazardPenalty
		ep.terminate(Hazard)
		return r
	}

	if s.TargetHealth <= 0 {
		if ep.Time <= c.EarlyWindow {
			r.Events += c.EarlyTargetDown
		} else {
			r.Events += c.TargetDownBonus
		}
		ep.terminate(TargetDown)
	}

	if s.AgentHealth <= 0 {
		// an early death is penalized twice
		if ep.Time <= c.EarlyWindow {
			r.Events += c.EarlyAgentDownPenalty
		}
		r.Events += c.AgentDownPenalty
		ep.terminate(AgentDown)
	}

	switch ep.ConsumeAttack() {
	case AttackSuccess:
		r.Events += c.AttackSuccessReward
	case AttackFail:
		r.Events += c.AttackFailPenalty
	}

	if ep.Time >= c.EpisodeLimit && s.TargetHealth > 0 {
		r.Events += c.TimeoutPenalty
		ep.terminate(Timeout)
	}
	return r
}
