package agent

import "math"

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance is the euclidean distance between two points, 0 for coincident points.
func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Length()
}

// Normalized returns the unit vector in the direction of v, or the zero vector.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

type AttackOutcome int

const (
	NoAttack AttackOutcome = iota
	AttackSuccess
	AttackFail
)

func (a AttackOutcome) String() string {
	switch a {
	case AttackSuccess:
		return "success"
	case AttackFail:
		return "fail"
	default:
		return "none"
	}
}

// WorldSnapshot is the read-only view of the host world taken once per tick.
type WorldSnapshot struct {
	AgentPosition  Vec3
	TargetPosition Vec3

	AgentHealth  float64
	TargetHealth float64

	// TargetScore is the target's points metric
	TargetScore float64
	// AgentAccuracy is the fraction of the agent's attacks that landed
	AgentAccuracy float64

	// NearHazard is set by the host when the agent is within the hazard proximity radius
	NearHazard bool
}

func (s WorldSnapshot) Distance() float64 {
	return s.AgentPosition.Distance(s.TargetPosition)
}
