package agent

import (
	"errors"
	"fmt"

	erand "golang.org/x/exp/rand"
)

const (
	NumStates  = 2
	NumActions = 3
)

var (
	ErrStateOutOfRange  = errors.New("state out of range")
	ErrActionOutOfRange = errors.New("action out of range")
)

// QTable is the dense mode x tuning-choice value table.
type QTable struct {
	values [NumStates][NumActions]float64
}

// NewQTable fills the table with uniform values in [-1, 1] drawn from src.
func NewQTable(src erand.Source) *QTable {
	r := erand.New(src)
	q := &QTable{}
	for s := 0; s < NumStates; s++ {
		for a := 0; a < NumActions; a++ {
			q.values[s][a] = r.Float64()*2 - 1
		}
	}
	return q
}

func checkIndex(state, action int) error {
	if state < 0 || state >= NumStates {
		return fmt.Errorf("%w: %d", ErrStateOutOfRange, state)
	}
	if action < 0 || action >= NumActions {
		return fmt.Errorf("%w: %d", ErrActionOutOfRange, action)
	}
	return nil
}

func (q *QTable) Get(state, action int) (float64, error) {
	if err := checkIndex(state, action); err != nil {
		return 0, err
	}
	return q.values[state][action], nil
}

func (q *QTable) Set(state, action int, val float64) error {
	if err := checkIndex(state, action); err != nil {
		return err
	}
	q.values[state][action] = val
	return nil
}

func (q *QTable) Max(state int) (float64, error) {
	if err := checkIndex(state, 0); err != nil {
		return 0, err
	}
	row := q.values[state]
	best := row[0]
	for _, v := range row[1:] {
		if v > best {
			best = v
		}
	}
	return best, nil
}

// Update applies Q[prev][prevAction] += alpha * (reward + gamma * max(Q[state]) - Q[prev][prevAction]).
func (q *QTable) Update(prevState, prevAction, state int, reward, alpha, gamma float64) error {
	if err := checkIndex(prevState, prevAction); err != nil {
		return err
	}
	next, err := q.Max(state)
	if err != nil {
		return err
	}
	cur := q.values[prevState][prevAction]
	q.values[prevState][prevAction] = cur + alpha*(reward+gamma*next-cur)
	return nil
}

// Values returns a copy of the table.
func (q *QTable) Values() [NumStates][NumActions]float64 {
	return q.values
}
