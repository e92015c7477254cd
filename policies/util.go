package policies

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"

	erand "golang.org/x/exp/rand"
)

// QTable is a sparse state-hash x action-hash value table
type QTable struct {
	table map[string]map[string]float64

	rand *erand.Rand
}

func NewQTable(src erand.Source) *QTable {
	return &QTable{
		table: make(map[string]map[string]float64),
		rand:  erand.New(src),
	}
}

func (q *QTable) GetAll(state string) (map[string]float64, bool) {
	values, ok := q.table[state]
	return values, ok
}

func (q *QTable) Get(state, action string, def float64) float64 {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	if _, ok := q.table[state][action]; !ok {
		q.table[state][action] = def
	}
	return q.table[state][action]
}

func (q *QTable) Set(state, action string, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	q.table[state][action] = val
}

func (q *QTable) Exists(state string) bool {
	_, ok := q.table[state]
	return ok
}

func (q *QTable) Size() int {
	return len(q.table)
}

// Max returns the best known action of a state, def when the state has no entries
func (q *QTable) Max(state string, def float64) (string, float64) {
	entries, ok := q.table[state]
	if !ok || len(entries) == 0 {
		return "", def
	}
	maxAction := ""
	maxVal := math.Inf(-1)
	for a, val := range entries {
		if val > maxVal || (val == maxVal && a < maxAction) {
			maxAction = a
			maxVal = val
		}
	}
	return maxAction, maxVal
}

// MaxAmong picks the best of the given actions, breaking ties at random.
// Unknown actions are initialized to def.
func (q *QTable) MaxAmong(state string, actions []string, def float64) (string, float64) {
	if len(actions) == 0 {
		return "", def
	}
	maxActions := make([]string, 0)
	maxVal := math.Inf(-1)
	for _, a := range actions {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxActions = maxActions[:0]
			maxVal = val
		}
		if val == maxVal {
			maxActions = append(maxActions, a)
		}
	}
	return maxActions[q.rand.Intn(len(maxActions))], maxVal
}

type qTableLine struct {
	State   string             `json:"state"`
	Entries map[string]float64 `json:"entries"`
}

// Read loads a table written by Record
func (q *QTable) Read(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line qTableLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return fmt.Errorf("error reading file contents: %w", err)
		}
		q.table[line.State] = line.Entries
	}
	return scanner.Err()
}

// Record writes the table as one JSON object per state to path + ".jsonl"
func (q *QTable) Record(path string) error {
	bs := new(bytes.Buffer)
	for state, entries := range q.table {
		stateBS, err := json.Marshal(qTableLine{State: state, Entries: entries})
		if err != nil {
			return err
		}
		bs.Write(stateBS)
		bs.WriteByte('\n')
	}
	if bs.Len() == 0 {
		return nil
	}
	return os.WriteFile(path+".jsonl", bs.Bytes(), 0644)
}
