package agent

// ObservationSize is the length of the vector returned by Observe.
const ObservationSize = 8

// Observe encodes the snapshot as
// [distance, target health, agent health, target score, agent accuracy, target x, target y, target z]
func Observe(s WorldSnapshot) []float64 {
	out := make([]float64, 0, ObservationSize)
	out = append(out,
		s.Distance(),
		s.TargetHealth,
		s.AgentHealth,
		s.TargetScore,
		s.AgentAccuracy,
		s.TargetPosition.X,
		s.TargetPosition.Y,
		s.TargetPosition.Z,
	)
	return out
}
