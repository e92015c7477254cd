package agent

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	erand "golang.org/x/exp/rand"
)

func TestNewQTableRange(t *testing.T) {
	q := NewQTable(erand.NewSource(42))
	for _, row := range q.Values() {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, -1.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestNewQTableSeeded(t *testing.T) {
	a := NewQTable(erand.NewSource(7))
	b := NewQTable(erand.NewSource(7))
	c := NewQTable(erand.NewSource(8))
	assert.Equal(t, a.Values(), b.Values())
	assert.NotEqual(t, a.Values(), c.Values())
}

func TestQTableUpdateRule(t *testing.T) {
	q := &QTable{}
	require.NoError(t, q.Set(0, 0, 0.5))
	require.NoError(t, q.Set(0, 1, -0.2))
	require.NoError(t, q.Set(0, 2, 0.1))

	require.NoError(t, q.Update(0, 1, 0, 2, 0.1, 0.99))
	v, err := q.Get(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0695, v, 1e-12)
}

func TestQTableIndexGuards(t *testing.T) {
	q := NewQTable(erand.NewSource(1))

	_, err := q.Get(2, 0)
	assert.True(t, errors.Is(err, ErrStateOutOfRange))
	_, err = q.Get(0, 3)
	assert.True(t, errors.Is(err, ErrActionOutOfRange))
	assert.ErrorIs(t, q.Set(-1, 0, 1), ErrStateOutOfRange)
	assert.ErrorIs(t, q.Update(0, 0, 5, 1, 0.1, 0.99), ErrStateOutOfRange)

	_, err = q.Max(NumStates)
	assert.ErrorIs(t, err, ErrStateOutOfRange)
}

func TestQTableStaysBounded(t *testing.T) {
	q := NewQTable(erand.NewSource(3))
	r := erand.New(erand.NewSource(4))
	const alpha, gamma = 0.1, 0.99

	for i := 0; i < 10000; i++ {
		reward := math.Max(-100, math.Min(100, r.NormFloat64()*200))
		s := r.Intn(NumStates)
		a := r.Intn(NumActions)
		require.NoError(t, q.Update(s, a, s, reward, alpha, gamma))
	}

	limit := 100/(1-gamma) + 1
	for _, row := range q.Values() {
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
			assert.LessOrEqual(t, math.Abs(v), limit)
		}
	}
}
