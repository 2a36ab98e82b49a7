package presets

import (
	"strconv"

	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

// KeyCandidates returns the spellings a preset table may use for v, in the
// order they are tried:
//
//	two decimals  "0.80"
//	one decimal   "0.8"
//	plain         "0.8"   (shortest round-trip form)
//	trimmed       "0.8"   (two-decimal rounding, trailing zeros dropped)
//
// Duplicates are removed keeping the first occurrence.
func KeyCandidates(v float64) []string {
	v2 := types.FormatFixed(v, 2)
	v1 := types.FormatFixed(v, 1)
	raw := formatPlain(v)

	trimmed := v2
	if f, err := strconv.ParseFloat(v2, 64); err == nil {
		trimmed = formatPlain(f)
	}

	return dedupe([]string{v2, v1, raw, trimmed})
}

// PairCandidates returns "X*Y" keys for two-dimensional shapes: every X
// spelling combined with every Y spelling, X outermost.
func PairCandidates(x, y float64) []string {
	xs := KeyCandidates(x)
	ys := KeyCandidates(y)

	combos := make([]string, 0, len(xs)*len(ys))
	for _, xv := range xs {
		for _, yv := range ys {
			combos = append(combos, xv+"*"+yv)
		}
	}
	return dedupe(combos)
}

func formatPlain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
