package agent

import "fmt"

type Mode int

const (
	ModeMove Mode = iota
	ModeAttack
)

func (m Mode) String() string {
	switch m {
	case ModeMove:
		return "move"
	case ModeAttack:
		return "attack"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

type TuningChoice int

const (
	TuneAttackRange TuningChoice = iota
	TuneChasingRange
	TuneSpeedRange
)

func (t TuningChoice) String() string {
	switch t {
	case TuneAttackRange:
		return "attack_range"
	case TuneChasingRange:
		return "chasing_range"
	case TuneSpeedRange:
		return "speed_range"
	default:
		return fmt.Sprintf("tuning(%d)", int(t))
	}
}

const NumTiers = 5

var (
	AttackRangeTiers  = [NumTiers]float64{1.0, 1.5, 2.0, 2.5, 3.0}
	ChasingRangeTiers = [NumTiers]float64{6, 8, 10, 12, 14}
	SpeedRangeTiers   = [NumTiers]float64{0.006, 0.008, 0.009, 0.011, 0.013}
)

// ActionCommand is the structured action chosen by the outer policy for one tick.
// Only the tier selected by Tuning is applied; the other two are ignored.
type ActionCommand struct {
	MoveX float64
	MoveZ float64

	Mode   Mode
	Tuning TuningChoice

	AttackTier int
	ChaseTier  int
	SpeedTier  int
}

func (a ActionCommand) String() string {
	return fmt.Sprintf("%s/%s[%d,%d,%d](%.2f,%.2f)", a.Mode, a.Tuning, a.AttackTier, a.ChaseTier, a.SpeedTier, a.MoveX, a.MoveZ)
}

// CombatParams are the tunable combat parameters owned by the host actor.
type CombatParams struct {
	AttackRange  float64
	ChasingRange float64
	Speed        float64
}

// HostCommand is what the host applies after a tick.
type HostCommand struct {
	Displacement Vec3
	Moving       bool
	Attack       bool
	Params       CombatParams
}

func lookupTier(tiers [NumTiers]float64, tier int, cur float64) float64 {
	if tier < 0 || tier >= NumTiers {
		return cur
	}
	return tiers[tier]
}

// Tune applies the single tuning update selected by cmd.Tuning.
func Tune(cmd ActionCommand, params CombatParams) CombatParams {
	switch cmd.Tuning {
	case TuneAttackRange:
		params.AttackRange = lookupTier(AttackRangeTiers, cmd.AttackTier, params.AttackRange)
	case TuneChasingRange:
		params.ChasingRange = lookupTier(ChasingRangeTiers, cmd.ChaseTier, params.ChasingRange)
	case TuneSpeedRange:
		params.Speed = lookupTier(SpeedRangeTiers, cmd.SpeedTier, params.Speed)
	}
	return params
}

// Interpret maps an action onto a host command. Movement is suppressed once the
// agent is closer to the target than the chasing range.
func Interpret(cmd ActionCommand, distance float64, params CombatParams, dt float64) HostCommand {
	out := HostCommand{}
	switch cmd.Mode {
	case ModeMove:
		out.Moving = true
		if distance >= params.ChasingRange {
			out.Displacement = Vec3{X: cmd.MoveX, Z: cmd.MoveZ}.Scale(dt)
		}
	case ModeAttack:
		out.Attack = true
	}
	out.Params = Tune(cmd, params)
	return out
}
