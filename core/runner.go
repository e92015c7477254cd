package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gosuri/uilive"
	"github.com/rs/zerolog"
)

var (
	ErrTooManyTimeouts = errors.New("too many timeouts")
	ErrTooManyErrors   = errors.New("too many errors")
	ErrCancelled       = errors.New("context cancelled")
)

type experimentRunContext struct {
	run       int
	ctx       context.Context
	analyzers map[string]Analyzer

	writer io.Writer
	logger zerolog.Logger

	*RunConfig
}

type ExperimentResult struct {
	CompletedEpisodes    int
	TotalEpisodes        int
	ErrorEpisodes        int
	TimeoutEpisodes      int
	TotalTimeSteps       int
	BoundReachedEpisodes int
	TerminalEpisodes     int
	TotalReward          float64

	Error    error
	Datasets map[string]DataSet
}

func (r *ExperimentResult) IsError() bool {
	return r.Error != nil
}

// runEpisode plays one episode until the horizon or a terminal state
func (e *Experiment) runEpisode(eCtx *EpisodeContext) {
	state, err := e.Environment.Reset()
	if err != nil {
		eCtx.Error(err)
		return
	}
	e.Policy.ResetEpisode(eCtx)
	for step := 0; step < eCtx.Horizon; step++ {
		select {
		case <-eCtx.Context.Done():
			eCtx.Error(eCtx.Context.Err())
			return
		default:
		}

		sCtx := &StepContext{Step: step, EpisodeContext: eCtx}
		action := e.Policy.PickAction(
			sCtx,
			state,
			state.Actions(),
		)
		if action == nil {
			eCtx.Error(ErrNoAction)
			return
		}
		nextState, err := e.Environment.Step(action, sCtx)
		if err != nil {
			eCtx.Error(err)
			return
		}
		e.Policy.UpdateStep(sCtx, state, action, nextState)
		eCtx.Trace.AddStep(&Step{
			State:     state,
			Action:    action,
			NextState: nextState,
			Reward:    nextState.Reward(),
		})
		state = nextState
		if state.Terminal() {
			break
		}
	}
	e.Policy.UpdateEpisode(eCtx)
	eCtx.Finish()
}

func (e *Experiment) run(ctx *experimentRunContext) *ExperimentResult {
	result := &ExperimentResult{
		Datasets: make(map[string]DataSet),
	}
	e.Policy.Reset()

	consecutiveErrors := 0
	consecutiveTimeouts := 0
	totalTimeSteps := (ctx.Episodes + 1) * ctx.Horizon
EpisodeLoop:
	for episode := 0; result.TotalTimeSteps <= totalTimeSteps && result.TotalEpisodes < ctx.Episodes; episode++ {
		select {
		case <-ctx.ctx.Done():
			result.Error = ErrCancelled
			break EpisodeLoop
		default:
		}

		fmt.Fprintf(
			ctx.writer,
			"Experiment: %s, Run %d, Timesteps: %d/%d, Episode %d, Reward: %.2f, Error: %d, Timedout: %d, OutOfBounds: %d\n",
			e.Name, ctx.run, result.TotalTimeSteps, totalTimeSteps, episode, result.TotalReward, result.ErrorEpisodes, result.TimeoutEpisodes, result.BoundReachedEpisodes,
		)
		timeoutCtx, timeoutCancel := context.WithTimeout(ctx.ctx, ctx.EpisodeTimeout)
		eCtx := NewEpisodeContext(timeoutCtx)
		eCtx.Run = ctx.run
		eCtx.Episode = episode
		eCtx.Horizon = ctx.Horizon
		eCtx.StartTimeStep = result.TotalTimeSteps

		go e.runEpisode(eCtx)

		errorred := false
		timedout := false
		select {
		case <-eCtx.Done():
			if eCtx.IsError() {
				if errors.Is(eCtx.err, ErrOutOfBounds) {
					result.BoundReachedEpisodes++
				} else {
					errorred = true
				}
			}
		case <-timeoutCtx.Done():
			timedout = true
			// the episode goroutine stops at its next step
			<-eCtx.Done()
		}
		timeoutCancel()

		if errorred {
			ctx.logger.Debug().Err(eCtx.err).Str("experiment", e.Name).Int("episode", episode).Msg("episode failed")
			result.ErrorEpisodes++
			if consecutiveErrors++; consecutiveErrors >= ctx.ThresholdConsecutiveErrors {
				result.Error = ErrTooManyErrors
				break EpisodeLoop
			}
		} else {
			consecutiveErrors = 0
		}
		if timedout {
			result.TimeoutEpisodes++
			if consecutiveTimeouts++; consecutiveTimeouts >= ctx.ThresholdConsecutiveTimeouts {
				result.Error = ErrTooManyTimeouts
				break EpisodeLoop
			}
		} else {
			consecutiveTimeouts = 0
		}

		if !errorred && !timedout {
			result.TotalTimeSteps += eCtx.Trace.Len()
			result.TotalReward += eCtx.Trace.TotalReward()
			result.CompletedEpisodes++
			if last := eCtx.Trace.Last(); last != nil && last.NextState.Terminal() {
				result.TerminalEpisodes++
			}
		}
		result.TotalEpisodes++

		for _, a := range ctx.analyzers {
			a.Analyze(eCtx, eCtx.Trace)
		}
	}
	if result.Error != nil {
		ctx.logger.Error().Err(result.Error).Str("experiment", e.Name).Int("run", ctx.run).Msg("experiment stopped")
	} else {
		ctx.logger.Info().
			Str("experiment", e.Name).
			Int("run", ctx.run).
			Int("episodes", result.CompletedEpisodes).
			Int("terminal", result.TerminalEpisodes).
			Float64("reward", result.TotalReward).
			Msg("experiment finished")
	}

	for name, a := range ctx.analyzers {
		result.Datasets[name] = a.DataSet()
	}

	e.Policy.Reset()
	return result
}

func compare(names []string, analyzers []string, results map[string]*ExperimentResult) map[string][]DataSet {
	datasets := make(map[string][]DataSet)
	for _, name := range names {
		result := results[name]
		for _, aName := range analyzers {
			if result == nil || result.IsError() {
				datasets[aName] = append(datasets[aName], nil)
			} else {
				datasets[aName] = append(datasets[aName], result.Datasets[aName])
			}
		}
	}
	return datasets
}

// Run executes every experiment sequentially for the given number of runs and
// returns the results of each run keyed by experiment name
func (c *Comparison) Run(ctx context.Context, runs int, rConfig *RunConfig) []map[string]*ExperimentResult {
	out := make([]map[string]*ExperimentResult, 0, runs)
	for run := 0; run < runs; run++ {
		select {
		case <-ctx.Done():
			return out
		default:
		}

		results := make(map[string]*ExperimentResult)
		experimentNames := make([]string, 0)

		// Run experiments
		for _, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return out
			default:
			}
			eCtx := &experimentRunContext{
				run:       run,
				ctx:       ctx,
				analyzers: make(map[string]Analyzer),
				writer:    c.Writer,
				logger:    c.Logger,
				RunConfig: rConfig,
			}

			for name, a := range c.Analyzers {
				a.Reset()
				eCtx.analyzers[name] = a
			}

			results[e.Name] = e.run(eCtx)
			experimentNames = append(experimentNames, e.Name)
		}

		analyzerNames := make([]string, 0)
		for name := range c.Analyzers {
			analyzerNames = append(analyzerNames, name)
		}
		datasets := compare(experimentNames, analyzerNames, results)
		for name, cmp := range c.Comparators {
			cmp.Compare(experimentNames, datasets[name])
		}
		out = append(out, results)
	}
	return out
}

// parallelWorker is a worker that runs experiments
type parallelWorker struct {
	id int
}

// parallelWork is a struct that contains all the information needed to run an experiment
type parallelWork struct {
	experiment *ParallelExperiment
	comp       *ParallelComparison
	runNumber  int
	writer     io.Writer
	rConfig    *RunConfig
}

// parallelResult is a struct that contains the result of running an experiment
type parallelResult struct {
	experimentName string
	run            int
	result         *ExperimentResult
}

// Worker main loop that consumes work from a channel
func (w *parallelWorker) run(ctx context.Context, workCh <-chan *parallelWork, resultsCh chan<- *parallelResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case work, more := <-workCh:
			if !more {
				return
			}
			result := w.runWork(ctx, work)
			select {
			case resultsCh <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Run an experiment by constructing the experiment context, *Experiment
func (w *parallelWorker) runWork(ctx context.Context, work *parallelWork) *parallelResult {
	eCtx := &experimentRunContext{
		run:       work.runNumber,
		ctx:       ctx,
		analyzers: make(map[string]Analyzer),
		writer:    work.writer,
		logger:    work.comp.Logger.With().Int("worker", w.id).Logger(),
		RunConfig: work.rConfig,
	}

	for name, aC := range work.comp.Analyzers {
		eCtx.analyzers[name] = aC.NewAnalyzer(work.experiment.Name, work.runNumber)
	}

	// Construct the experiment
	exp := &Experiment{
		Name:        work.experiment.Name,
		Environment: work.experiment.Environment.NewEnvironment(w.id),
		Policy:      work.experiment.Policy.NewPolicy(w.id),
	}

	// Run the experiment
	result := exp.run(eCtx)

	return &parallelResult{
		experimentName: work.experiment.Name,
		run:            work.runNumber,
		result:         result,
	}
}

func (c *ParallelComparison) Run(ctx context.Context, runs int, rConfig *RunConfig, parallelism int) []map[string]*ExperimentResult {
	if parallelism < 1 {
		parallelism = 1
	}
	out := make([]map[string]*ExperimentResult, 0, runs)
	for run := 0; run < runs; run++ {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		writer := uilive.New()
		writer.Start()
		fmt.Fprintf(writer, "Run %d\n", run)

		runCtx, cancel := context.WithCancel(ctx)
		workCh := make(chan *parallelWork, parallelism)
		resultsCh := make(chan *parallelResult, parallelism)

		// Start workers
		for i := 0; i < parallelism; i++ {
			w := &parallelWorker{id: i}
			go w.run(runCtx, workCh, resultsCh)
		}

		// Run experiments by sending work to workers
		go func() {
			defer close(workCh)
			for _, e := range c.Experiments {
				select {
				case <-runCtx.Done():
					return
				case workCh <- &parallelWork{
					experiment: e,
					comp:       c,
					runNumber:  run,
					rConfig:    rConfig,
					writer:     writer.Newline(),
				}:
				}
			}
		}()

		// Gather results
		results := make(map[string]*ExperimentResult)
	Gather:
		for len(results) < len(c.Experiments) {
			select {
			case <-ctx.Done():
				break Gather
			case r := <-resultsCh:
				results[r.experimentName] = r.result
			}
		}
		cancel()
		writer.Stop()

		experimentNames := make([]string, 0)
		for _, e := range c.Experiments {
			experimentNames = append(experimentNames, e.Name)
		}
		analyzerNames := make([]string, 0)
		for name := range c.Analyzers {
			analyzerNames = append(analyzerNames, name)
		}
		datasets := compare(experimentNames, analyzerNames, results)
		for name, cmp := range c.Comparators {
			select {
			case <-ctx.Done():
				return out
			default:
			}
			cmp.NewComparator(run).Compare(experimentNames, datasets[name])
		}
		out = append(out, results)
	}
	return out
}
