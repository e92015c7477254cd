package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeu5/combat-rl/benchmarks/arena"
	"github.com/zeu5/combat-rl/benchmarks/common"
	"github.com/zeu5/combat-rl/storage"
)

var errNoStore = errors.New("report reads a persisted run, use --store sqlite")

func ArenaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arena",
		Short: "Run the combat arena benchmarks",
	}

	cmd.AddCommand(
		arenaTrainCommand(),
		arenaRunCommand(),
		arenaReportCommand(),
	)

	return cmd
}

// interruptible cancels the returned context on SIGINT/SIGTERM or once done is closed
func interruptible(done <-chan struct{}) (context.Context, context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigCh:
			logger.Warn().Msg("interrupted, stopping")
		case <-done:
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
		cancel()
	}()
	return ctx, cancel
}

func openStore(ctx context.Context) (storage.Store, func(), error) {
	store, err := common.OpenStore(ctx, flags)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if store == nil {
			return
		}
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}
	return store, closeFn, nil
}

const summaryTimeout = 30 * time.Second

// logSummary reads the stored episodes of id back and logs one line per experiment
func logSummary(store storage.Store, id string) error {
	if store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()

	sums, err := storage.Summarize(ctx, store, id)
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		logger.Warn().Str("run", id).Msg("no stored episodes")
	}
	for _, s := range sums {
		logger.Info().
			Str("experiment", s.Experiment).
			Int("episodes", s.Episodes).
			Float64("mean_reward", s.MeanReward).
			Float64("mean_steps", s.MeanSteps).
			Interface("outcomes", s.Outcomes).
			Msg("stored episodes")
	}
	return nil
}

func arenaTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Compare all policies in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			doneCh := make(chan struct{})
			ctx, cancel := interruptible(doneCh)
			defer cancel()

			store, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			logger.Info().Int("runs", flags.NumRuns).Int("episodes", flags.Episodes).Str("store", flags.Store).Msg("starting arena comparison")
			cmp := arena.PrepareComparison(flags, logger, store, runID)
			cmp.Run(ctx, flags.NumRuns, runConfig(), flags.Parallelism)
			close(doneCh)
			return logSummary(store, runID)
		},
	}

	return cmd
}

func arenaRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [policy]",
		Args:  cobra.ExactArgs(1),
		Short: "Run a single policy (Random, SoftMaxQ, GreedyReward) sequentially",
		RunE: func(cmd *cobra.Command, args []string) error {
			doneCh := make(chan struct{})
			ctx, cancel := interruptible(doneCh)
			defer cancel()

			store, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			cmp, err := arena.PrepareSingle(flags, logger, store, runID, args[0])
			if err != nil {
				return err
			}
			cmp.Run(ctx, flags.NumRuns, runConfig())
			close(doneCh)
			return logSummary(store, runID)
		},
	}

	return cmd
}

func arenaReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Args:  cobra.ExactArgs(1),
		Short: "Summarize the episodes a previous run stored in the sqlite store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.Store != "sqlite" {
				return errNoStore
			}
			store, closeStore, err := openStore(context.Background())
			if err != nil {
				return err
			}
			defer closeStore()
			return logSummary(store, args[0])
		},
	}

	return cmd
}
