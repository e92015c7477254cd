package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeu5/combat-rl/storage"
)

func TestLogSummary(t *testing.T) {
	buf := new(bytes.Buffer)
	prev := logger
	logger = zerolog.New(buf)
	t.Cleanup(func() { logger = prev })

	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.SaveEpisode(ctx, storage.EpisodeRecord{RunID: "run", Experiment: "SoftMaxQ", Episode: 0, Steps: 2100, Reward: -30, Outcome: "timeout"}))

	require.NoError(t, logSummary(store, "run"))
	assert.Contains(t, buf.String(), `"experiment":"SoftMaxQ"`)
	assert.Contains(t, buf.String(), `"mean_reward":-30`)
	assert.Contains(t, buf.String(), `"outcomes":{"timeout":1}`)

	assert.NoError(t, logSummary(nil, "run"))
	assert.ErrorIs(t, logSummary(store, ""), storage.ErrMissingRunID)
}
