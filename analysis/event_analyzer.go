package analysis

import (
	"fmt"
	"os"
	"path"

	"github.com/zeu5/combat-rl/core"
	"github.com/zeu5/combat-rl/util"
)

type EventSpec struct {
	Name  string
	Check func(*core.Trace) bool
}

// EventAnalyzer saves the trace of every episode matching one of its events
// and counts the matches per event
type EventAnalyzer struct {
	events   []EventSpec
	savePath string
	exp      string
	counts   map[string]int
}

var _ core.Analyzer = &EventAnalyzer{}

func NewEventAnalyzer(savePath string, events ...EventSpec) *EventAnalyzer {
	if _, err := os.Stat(path.Join(savePath, "events")); os.IsNotExist(err) {
		os.MkdirAll(path.Join(savePath, "events"), 0755)
	}
	return &EventAnalyzer{
		events:   events,
		savePath: path.Join(savePath, "events"),
		counts:   make(map[string]int),
	}
}

func (ea *EventAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	for _, event := range ea.events {
		if !event.Check(trace) {
			continue
		}
		ea.counts[event.Name]++
		fileName := path.Join(ea.savePath, fmt.Sprintf("%d_%s_%d.txt", eCtx.Run, event.Name, eCtx.Episode))
		if ea.exp != "" {
			fileName = path.Join(ea.savePath, fmt.Sprintf("%d_%s_%s_%d.txt", eCtx.Run, ea.exp, event.Name, eCtx.Episode))
		}
		os.WriteFile(fileName, []byte(traceToString(trace)), 0644)
	}
}

func (ea *EventAnalyzer) DataSet() core.DataSet {
	return util.CopyStringIntMap(ea.counts)
}

func (ea *EventAnalyzer) Reset() {
	ea.counts = make(map[string]int)
}

type EventAnalyzerConstructor struct {
	SavePath string
	Events   []EventSpec
}

var _ core.AnalyzerConstructor = &EventAnalyzerConstructor{}

func NewEventAnalyzerConstructor(savePath string, events ...EventSpec) *EventAnalyzerConstructor {
	return &EventAnalyzerConstructor{
		SavePath: savePath,
		Events:   events,
	}
}

func (e *EventAnalyzerConstructor) NewAnalyzer(exp string, _ int) core.Analyzer {
	a := NewEventAnalyzer(e.SavePath, e.Events...)
	a.exp = exp
	return a
}
