package presets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/diamond-metrics/internal/config"
	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

func ptr(f float64) *float64 { return &f }

func TestTableLookup(t *testing.T) {
	table := Table{"Round": {"0.8": "0.015", "1.00": "0.005"}}

	v, ok := table.Lookup("Round", KeyCandidates(0.80))
	assert.True(t, ok)
	assert.Equal(t, "0.015", v)

	v, ok = table.Lookup("Round", KeyCandidates(1))
	assert.True(t, ok)
	assert.Equal(t, "0.005", v)

	_, ok = table.Lookup("Round", KeyCandidates(0.9))
	assert.False(t, ok)

	_, ok = table.Lookup("Heart", KeyCandidates(0.8))
	assert.False(t, ok)
}

func TestTableLookup_FirstCandidateWins(t *testing.T) {
	table := Table{"Round": {"0.80": "two", "0.8": "one"}}

	v, ok := table.Lookup("Round", KeyCandidates(0.8))
	require.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestIndex_PairKeys(t *testing.T) {
	idx := NewIndex(Table{"Pear": {"1*0.7": "P-1x0.7"}}, nil)

	v, ok := idx.SieveSize(types.RawRecord{Quantity: 2, Shape: "Pear", SizeX: 1.00, SizeY: ptr(0.70)})
	assert.True(t, ok)
	assert.Equal(t, "P-1x0.7", v)

	_, ok = idx.AvgWeight(types.RawRecord{Quantity: 2, Shape: "Pear", SizeX: 1.00, SizeY: ptr(0.70)})
	assert.False(t, ok)
}

func TestCandidates(t *testing.T) {
	// Round ignores Y.
	assert.Equal(t, KeyCandidates(1.5), Candidates(types.RawRecord{Shape: RoundShape, SizeX: 1.5, SizeY: ptr(1)}))
	// No Y falls back to single keys.
	assert.Equal(t, KeyCandidates(2), Candidates(types.RawRecord{Shape: "Princess", SizeX: 2}))
	assert.Equal(t, PairCandidates(4, 3), Candidates(types.RawRecord{Shape: "Oval", SizeX: 4, SizeY: ptr(3)}))
}

func TestTableSize(t *testing.T) {
	shapes, entries := Table{"A": {"1": "x", "2": "y"}, "B": {"1": "z"}}.Size()
	assert.Equal(t, 2, shapes)
	assert.Equal(t, 3, entries)
}

func TestLoadJSON(t *testing.T) {
	table, err := LoadJSON(strings.NewReader(`{"Round": {"0.8": 0.0150, "1": "0.005"}}`))
	require.NoError(t, err)

	assert.Equal(t, "0.0150", table["Round"]["0.8"])
	assert.Equal(t, "0.005", table["Round"]["1"])
}

func TestLoadJSON_Invalid(t *testing.T) {
	_, err := LoadJSON(strings.NewReader(`{"Round": [1, 2]}`))
	assert.Error(t, err)

	_, err = LoadJSON(strings.NewReader(`{"Round": {"1": true}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `shape "Round" key "1"`)
}

func TestDefault(t *testing.T) {
	idx, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "embedded", idx.Source)

	v, ok := idx.AvgWeight(types.RawRecord{Quantity: 1, Shape: RoundShape, SizeX: 0.8})
	require.True(t, ok)
	assert.Equal(t, "0.003", v)

	v, ok = idx.SieveSize(types.RawRecord{Quantity: 1, Shape: "Pear", SizeX: 1, SizeY: ptr(0.7)})
	require.True(t, ok)
	assert.Equal(t, "P-1x0.7", v)
}

func TestLoad_JSONFiles(t *testing.T) {
	dir := t.TempDir()
	sieve := filepath.Join(dir, "sieve.json")
	weight := filepath.Join(dir, "weight.json")
	require.NoError(t, os.WriteFile(sieve, []byte(`{"Round": {"0.8": "+000-00"}}`), 0o644))
	require.NoError(t, os.WriteFile(weight, []byte(`{"Round": {"0.8": "0.015"}}`), 0o644))

	idx, err := Load(config.PresetSettings{SieveFile: sieve, WeightFile: weight})
	require.NoError(t, err)

	v, ok := idx.AvgWeight(types.RawRecord{Shape: "Round", SizeX: 0.80})
	assert.True(t, ok)
	assert.Equal(t, "0.015", v)
	assert.Contains(t, idx.Source, "sieve.json")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(config.PresetSettings{
		SieveFile:  filepath.Join(t.TempDir(), "missing.json"),
		WeightFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sieve presets")
}

func TestLoad_Default(t *testing.T) {
	idx, err := Load(config.PresetSettings{})
	require.NoError(t, err)
	assert.Equal(t, "embedded", idx.Source)
}
