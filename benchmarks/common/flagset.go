package common

import (
	"path"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zeu5/combat-rl/util"
)

const EnvPrefix = "COMBATRL"

type Flags struct {
	ArenaFlags
	SavePath string
	RunFlags
	PolicyFlags
	Parallelism       int
	Debug             bool
	RecordEventTraces bool
	LogLevel          string
	// Store is one of memory, sqlite or none
	Store     string
	StorePath string
}

type ArenaFlags struct {
	DeltaTime       float64
	Seed            uint64
	Bounds          float64
	LearningRate    float64
	DiscountFactor  float64
	BootstrapReward bool
}

type PolicyFlags struct {
	Temperature float64
	Epsilon     float64
	Alpha       float64
	Discount    float64
}

type RunFlags struct {
	NumRuns                int
	Episodes               int
	Horizon                int
	MaxConsecutiveErrors   int
	MaxConsecutiveTimeouts int
	EpisodeTimeout         time.Duration
}

func DefaultFlags() *Flags {
	return &Flags{
		ArenaFlags: ArenaFlags{
			DeltaTime:       0.1,
			Seed:            0,
			Bounds:          50,
			LearningRate:    0.1,
			DiscountFactor:  0.99,
			BootstrapReward: false,
		},
		SavePath: "results",
		RunFlags: RunFlags{
			NumRuns:                1,
			Episodes:               1000,
			Horizon:                2200,
			MaxConsecutiveErrors:   20,
			MaxConsecutiveTimeouts: 20,
			EpisodeTimeout:         10 * time.Second,
		},
		PolicyFlags: PolicyFlags{
			Temperature: 0.5,
			Epsilon:     0.05,
			Alpha:       0.1,
			Discount:    0.99,
		},
		Parallelism:       10,
		Debug:             false,
		RecordEventTraces: false,
		LogLevel:          "info",
		Store:             "memory",
		StorePath:         "results/episodes.db",
	}
}

// RegisterFlags adds one flag per field of f, defaulting to its current value
func RegisterFlags(fs *pflag.FlagSet, f *Flags) {
	fs.String("save-path", f.SavePath, "Path to save results")
	fs.Float64("dt", f.DeltaTime, "Simulation seconds per step")
	fs.Uint64("seed", f.Seed, "Base seed for environments and policies")
	fs.Float64("bounds", f.Bounds, "Arena radius, leaving it is an error")
	fs.Float64("learning-rate", f.LearningRate, "Learning rate of the decision core")
	fs.Float64("discount", f.DiscountFactor, "Discount factor of the decision core")
	fs.Bool("bootstrap-reward", f.BootstrapReward, "Add the best next Q value to the reported reward")

	fs.Float64("temperature", f.Temperature, "SoftMaxQ temperature")
	fs.Float64("epsilon", f.Epsilon, "GreedyReward exploration rate")
	fs.Float64("alpha", f.Alpha, "GreedyReward learning rate")
	fs.Float64("policy-discount", f.Discount, "GreedyReward discount factor")

	fs.Int("num-runs", f.NumRuns, "Number of runs")
	fs.Int("episodes", f.Episodes, "Number of episodes")
	fs.Int("horizon", f.Horizon, "Horizon")
	fs.Int("max-consecutive-errors", f.MaxConsecutiveErrors, "Maximum number of consecutive errors")
	fs.Int("max-consecutive-timeouts", f.MaxConsecutiveTimeouts, "Maximum number of consecutive timeouts")
	fs.Duration("episode-timeout", f.EpisodeTimeout, "Episode timeout")
	fs.Int("parallelism", f.Parallelism, "Number of parallel runs")

	fs.Bool("debug", f.Debug, "Save the traces of every episode")
	fs.Bool("record-event-traces", f.RecordEventTraces, "Save the traces of hazard episodes")
	fs.String("log-level", f.LogLevel, "Log level (trace, debug, info, warn, error)")
	fs.String("store", f.Store, "Episode store (memory, sqlite, none)")
	fs.String("store-path", f.StorePath, "Path of the sqlite episode store")
}

// NewViper binds fs and the COMBATRL_* environment. A non empty configFile is
// read as well. Flags set on the command line win over the environment, which
// wins over the config file.
func NewViper(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (f *Flags) Load(v *viper.Viper) {
	f.SavePath = v.GetString("save-path")
	f.DeltaTime = v.GetFloat64("dt")
	f.Seed = v.GetUint64("seed")
	f.Bounds = v.GetFloat64("bounds")
	f.LearningRate = v.GetFloat64("learning-rate")
	f.DiscountFactor = v.GetFloat64("discount")
	f.BootstrapReward = v.GetBool("bootstrap-reward")

	f.Temperature = v.GetFloat64("temperature")
	f.Epsilon = v.GetFloat64("epsilon")
	f.Alpha = v.GetFloat64("alpha")
	f.Discount = v.GetFloat64("policy-discount")

	f.NumRuns = v.GetInt("num-runs")
	f.Episodes = v.GetInt("episodes")
	f.Horizon = v.GetInt("horizon")
	f.MaxConsecutiveErrors = v.GetInt("max-consecutive-errors")
	f.MaxConsecutiveTimeouts = v.GetInt("max-consecutive-timeouts")
	f.EpisodeTimeout = v.GetDuration("episode-timeout")
	f.Parallelism = v.GetInt("parallelism")

	f.Debug = v.GetBool("debug")
	f.RecordEventTraces = v.GetBool("record-event-traces")
	f.LogLevel = v.GetString("log-level")
	f.Store = v.GetString("store")
	f.StorePath = v.GetString("store-path")
}

func (f *Flags) Record() error {
	return util.SaveJson(path.Join(f.SavePath, "config.json"), f)
}
