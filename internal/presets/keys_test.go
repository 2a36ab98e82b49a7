package presets

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

func TestKeyCandidates(t *testing.T) {
	tests := []struct {
		in   float64
		want []string
	}{
		{0.8, []string{"0.80", "0.8"}},
		{1, []string{"1.00", "1.0", "1"}},
		{1.25, []string{"1.25", "1.3"}},
		{0.125, []string{"0.13", "0.1", "0.125"}},
		{1.004, []string{"1.00", "1.0", "1.004", "1"}},
	}

	for _, tt := range tests {
		t.Run(strconv.FormatFloat(tt.in, 'f', -1, 64), func(t *testing.T) {
			assert.Equal(t, tt.want, KeyCandidates(tt.in))
		})
	}
}

func TestKeyCandidates_Properties(t *testing.T) {
	values := []float64{0.001, 0.05, 0.7, 0.8, 0.80000001, 1, 1.1, 1.15, 1.25, 2.5, 3.999, 10, 12.345}

	for _, v := range values {
		keys := KeyCandidates(v)

		assert.Contains(t, keys, types.FormatFixed(v, 2), "two-decimal form of %v", v)
		assert.Contains(t, keys, strconv.FormatFloat(v, 'f', -1, 64), "plain form of %v", v)

		seen := map[string]bool{}
		for _, k := range keys {
			assert.False(t, seen[k], "duplicate key %q for %v", k, v)
			seen[k] = true
		}
	}
}

func TestPairCandidates(t *testing.T) {
	got := PairCandidates(1.00, 0.70)

	assert.Equal(t, "1.00*0.70", got[0])
	assert.Contains(t, got, "1*0.7")
	assert.Contains(t, got, "1.0*0.7")
	assert.Len(t, got, 6) // {1.00,1.0,1} x {0.70,0.7}

	seen := map[string]bool{}
	for _, k := range got {
		assert.False(t, seen[k], "duplicate %q", k)
		seen[k] = true
	}
}
