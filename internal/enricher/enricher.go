// Package enricher joins parsed lot records against the preset tables.
//
// Enrichment is total: every record produces exactly one row, in the same
// order, and a record that matches nothing still yields a row carrying the
// "-" sentinel and a derived weight of 0.
package enricher

import (
	"log/slog"
	"math"

	"github.com/ginjaninja78/diamond-metrics/internal/presets"
	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

// Enrich looks up the sieve size and average weight of every record.
func Enrich(records []types.RawRecord, idx *presets.Index) []types.EnrichedRow {
	rows := make([]types.EnrichedRow, 0, len(records))

	var misses int
	for _, rec := range records {
		row := Row(rec, idx)
		if row.SieveSize == types.Sentinel || !row.AvgWeight.IsPresent() {
			misses++
		}
		rows = append(rows, row)
	}

	slog.Debug("records enriched", "rows", len(rows), "unmatched", misses)
	return rows
}

// Row enriches a single record.
func Row(rec types.RawRecord, idx *presets.Index) types.EnrichedRow {
	row := types.EnrichedRow{
		RawRecord: rec,
		SieveSize: types.Sentinel,
	}

	if v, ok := idx.SieveSize(rec); ok {
		row.SieveSize = v
	}

	if v, ok := idx.AvgWeight(rec); ok {
		row.AvgWeight = parseWeight(v)
	}

	row.DerivedWeight = DerivedWeight(row.AvgWeight, types.Present(float64(rec.Quantity)))
	return row
}

// DerivedWeight is avg x qty when both are numbers, else 0. The result is
// always finite.
func DerivedWeight(avg, qty types.Value) float64 {
	a, ok := avg.Float()
	if !ok {
		return 0
	}
	q, ok := qty.Float()
	if !ok {
		return 0
	}
	w := a * q
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0
	}
	return w
}

// parseWeight reads a preset weight. Negative weights are treated as
// unparsable.
func parseWeight(s string) types.Value {
	v := types.ParseValue(s)
	if n, ok := v.Float(); ok && n < 0 {
		return types.Absent()
	}
	return v
}

// SizeLabel renders the MM SIZE column: "0.80" for single sizes and
// "0.70x1.00" (Y first) for two-dimensional shapes.
func SizeLabel(rec types.RawRecord) string {
	x := types.FormatFixed(rec.SizeX, 2)
	if rec.Shape == presets.RoundShape || rec.SizeY == nil {
		return x
	}
	return types.FormatFixed(*rec.SizeY, 2) + "x" + x
}
