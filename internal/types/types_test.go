package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		present bool
	}{
		{"0.015", 0.015, true},
		{" 12 ", 12, true},
		{"", 0, false},
		{"-", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseValue(tt.in)
			n, ok := got.Float()
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.InDelta(t, tt.want, n, 1e-12)
			}
		})
	}
}

func TestPresentRejectsNonFinite(t *testing.T) {
	assert.False(t, Present(math.NaN()).IsPresent())
	assert.False(t, Present(math.Inf(1)).IsPresent())
	assert.True(t, Present(0).IsPresent())
}

func TestValueFormat(t *testing.T) {
	assert.Equal(t, "0.015", Present(0.015).Format(3))
	assert.Equal(t, "1.50", Present(1.5).Format(2))
	assert.Equal(t, Sentinel, Absent().Format(2))
	assert.Equal(t, "1.5", Present(1.5).String())
	assert.Equal(t, 7.0, Absent().Or(7))
}

func TestValueJSON(t *testing.T) {
	type cell struct {
		V Value `json:"v"`
	}

	out, err := json.Marshal(cell{V: Present(0.25)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":0.25}`, string(out))

	out, err = json.Marshal(cell{V: Absent()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"-"}`, string(out))

	for _, in := range []string{`{"v":"-"}`, `{"v":null}`, `{"v":""}`} {
		var c cell
		require.NoError(t, json.Unmarshal([]byte(in), &c), in)
		assert.False(t, c.V.IsPresent(), in)
	}

	var c cell
	require.NoError(t, json.Unmarshal([]byte(`{"v":"3"}`), &c))
	assert.Equal(t, 3.0, c.V.Or(0))
	require.NoError(t, json.Unmarshal([]byte(`{"v":4.5}`), &c))
	assert.Equal(t, 4.5, c.V.Or(0))
}

func TestRawRecordHasY(t *testing.T) {
	y := 0.7
	assert.False(t, RawRecord{}.HasY())
	assert.True(t, RawRecord{SizeY: &y}.HasY())
}

func TestFormatFixed_HalvesRoundUp(t *testing.T) {
	assert.Equal(t, "0.3", FormatFixed(0.25, 1))
	assert.Equal(t, "1.3", FormatFixed(1.25, 1))
	assert.Equal(t, "1.00", FormatFixed(1.005, 2)) // 1.005 is stored just below the half
	assert.Equal(t, "2.00", FormatFixed(2, 2))
	assert.Equal(t, "0.075", FormatFixed(0.075, 3))
}
