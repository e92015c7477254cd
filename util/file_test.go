package util

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveJsonCreatesDirectories(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "out.json")
	require.NoError(t, SaveJson(p, map[string]int{"hazard": 2}))

	bs, err := os.ReadFile(p)
	require.NoError(t, err)
	out := make(map[string]int)
	require.NoError(t, json.Unmarshal(bs, &out))
	assert.Equal(t, map[string]int{"hazard": 2}, out)
}

func TestSaveJsonWrapsErrors(t *testing.T) {
	dir := t.TempDir()

	err := SaveJson(filepath.Join(dir, "nan.json"), math.NaN())
	var unsupported *json.UnsupportedValueError
	assert.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), "nan.json")
	_, statErr := os.Stat(filepath.Join(dir, "nan.json"))
	assert.True(t, os.IsNotExist(statErr))

	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	err = SaveJson(filepath.Join(blocker, "out.json"), 1)
	assert.ErrorIs(t, err, syscall.ENOTDIR)
	assert.Contains(t, err.Error(), "creating")
}

func TestCopySlices(t *testing.T) {
	in := []int{1, 2}
	out := CopyIntSlice(in)
	out[0] = 9
	assert.Equal(t, []int{1, 2}, in)
}
