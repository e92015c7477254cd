package analysis

import (
	"path"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/zeu5/combat-rl/core"
	"github.com/zeu5/combat-rl/util"
)

type NoOpComparator struct {
}

var _ core.Comparator = &NoOpComparator{}

func (n *NoOpComparator) Compare(_ []string, _ []core.DataSet) {
}

type NoOpComparatorConstructor struct {
}

var _ core.ComparatorConstructor = &NoOpComparatorConstructor{}

func NewNoOpComparatorConstructor() *NoOpComparatorConstructor {
	return &NoOpComparatorConstructor{}
}

func (n *NoOpComparatorConstructor) NewComparator(_ int) core.Comparator {
	return &NoOpComparator{}
}

// JSONComparator saves the datasets of all experiments, keyed by experiment name, into one file
type JSONComparator struct {
	savePath string
	logger   zerolog.Logger
}

var _ core.Comparator = &JSONComparator{}

func NewJSONComparator(savePath, fileName string, logger zerolog.Logger) *JSONComparator {
	return &JSONComparator{
		savePath: path.Join(savePath, fileName),
		logger:   logger,
	}
}

func (c *JSONComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	out := make(map[string]core.DataSet)
	for i, name := range experimentNames {
		if datasets[i] == nil {
			continue
		}
		out[name] = datasets[i]
	}
	if err := util.SaveJson(c.savePath, out); err != nil {
		c.logger.Error().Err(err).Str("path", c.savePath).Msg("failed to save datasets")
	}
}

type JSONComparatorConstructor struct {
	savePath string
	fileName string
	logger   zerolog.Logger
}

var _ core.ComparatorConstructor = &JSONComparatorConstructor{}

func NewJSONComparatorConstructor(savePath, fileName string, logger zerolog.Logger) *JSONComparatorConstructor {
	return &JSONComparatorConstructor{
		savePath: savePath,
		fileName: fileName,
		logger:   logger,
	}
}

func (c *JSONComparatorConstructor) NewComparator(run int) core.Comparator {
	return NewJSONComparator(path.Join(c.savePath, strconv.Itoa(run)), c.fileName, c.logger)
}
