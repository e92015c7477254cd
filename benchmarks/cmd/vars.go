package cmd

import (
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zeu5/combat-rl/benchmarks/common"
	"github.com/zeu5/combat-rl/core"
)

var (
	flags      *common.Flags = common.DefaultFlags()
	configFile string
	logger     zerolog.Logger = zerolog.Nop()
	// runID tags every stored episode of this invocation
	runID string
)

func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	common.RegisterFlags(cmd.PersistentFlags(), flags)
}

// UpdateFlags resolves flags, COMBATRL_* variables and the config file, then
// builds the logger
func UpdateFlags(cmd *cobra.Command) error {
	v, err := common.NewViper(cmd.Flags(), configFile)
	if err != nil {
		return err
	}
	flags.Load(v)

	logger, err = common.NewLogger(os.Stderr, flags.LogLevel)
	if err != nil {
		return err
	}
	runID = uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()
	return nil
}

func runConfig() *core.RunConfig {
	return &core.RunConfig{
		Episodes:                     flags.Episodes,
		Horizon:                      flags.Horizon,
		ThresholdConsecutiveErrors:   flags.MaxConsecutiveErrors,
		ThresholdConsecutiveTimeouts: flags.MaxConsecutiveTimeouts,
		EpisodeTimeout:               flags.EpisodeTimeout,
	}
}
