package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOrder(t *testing.T) {
	s := WorldSnapshot{
		AgentPosition:  Vec3{X: 3, Y: 0, Z: 4},
		TargetPosition: Vec3{},
		AgentHealth:    80,
		TargetHealth:   60,
		TargetScore:    7,
		AgentAccuracy:  0.25,
	}
	obs := Observe(s)
	require.Len(t, obs, ObservationSize)
	assert.Equal(t, []float64{5, 60, 80, 7, 0.25, 0, 0, 0}, obs)
}

func TestObserveTargetPosition(t *testing.T) {
	s := WorldSnapshot{
		AgentPosition:  Vec3{X: 1, Y: 2, Z: 3},
		TargetPosition: Vec3{X: 1, Y: 2, Z: 5},
	}
	obs := Observe(s)
	assert.Equal(t, 2.0, obs[0])
	assert.Equal(t, []float64{1, 2, 5}, obs[5:])
}

func TestObserveCoincidentPositions(t *testing.T) {
	p := Vec3{X: 2, Y: 2, Z: 2}
	obs := Observe(WorldSnapshot{AgentPosition: p, TargetPosition: p})
	assert.Zero(t, obs[0])
}

func TestObserveIsPure(t *testing.T) {
	s := WorldSnapshot{AgentPosition: Vec3{X: 1}, TargetHealth: 10}
	a := Observe(s)
	a[0] = 99
	assert.Equal(t, Observe(s)[0], 1.0)
}
