// =============================================================================
// Diamond Metrics - Preset Tables
// =============================================================================
//
// This module holds the reference tables used to enrich parsed lots:
//   - Sieve table:  shape -> size key -> sieve size label
//   - Weight table: shape -> size key -> average weight per stone (carats)
//
// Size keys are written by hand and their decimal formatting is inconsistent
// ("0.8", "0.80", "1"), so lookups never use the raw float. Instead a list of
// candidate spellings is generated (see keys.go) and tried in order.
//
// Tables are loaded once at startup and never written afterwards, so an
// *Index can be shared between goroutines without locking.
//
// =============================================================================

package presets

import (
	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

// RoundShape is the one-dimensional shape that always uses single keys.
const RoundShape = "Round"

// Table maps a shape name to its size-key -> value entries.
type Table map[string]map[string]string

// Lookup returns the value of the first candidate key present for shape.
func (t Table) Lookup(shape string, candidates []string) (string, bool) {
	entries, ok := t[shape]
	if !ok {
		return "", false
	}
	for _, key := range candidates {
		if v, ok := entries[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Size returns the number of shapes and total entries in the table.
func (t Table) Size() (shapes, entries int) {
	for _, e := range t {
		shapes++
		entries += len(e)
	}
	return shapes, entries
}

// Index pairs the sieve and weight tables.
type Index struct {
	Sieve  Table
	Weight Table

	// Source describes where the tables came from, for logs.
	Source string
}

// NewIndex builds an index from two tables. Nil tables are treated as empty.
func NewIndex(sieve, weight Table) *Index {
	if sieve == nil {
		sieve = Table{}
	}
	if weight == nil {
		weight = Table{}
	}
	return &Index{Sieve: sieve, Weight: weight}
}

// Candidates returns the size keys to probe for a record. Round stones and
// records without a Y dimension use single keys; everything else uses
// "X*Y" pairs.
func Candidates(rec types.RawRecord) []string {
	if rec.Shape == RoundShape || rec.SizeY == nil {
		return KeyCandidates(rec.SizeX)
	}
	return PairCandidates(rec.SizeX, *rec.SizeY)
}

// SieveSize looks up the sieve label for a record.
func (idx *Index) SieveSize(rec types.RawRecord) (string, bool) {
	return idx.Sieve.Lookup(rec.Shape, Candidates(rec))
}

// AvgWeight looks up the raw average-weight string for a record.
func (idx *Index) AvgWeight(rec types.RawRecord) (string, bool) {
	return idx.Weight.Lookup(rec.Shape, Candidates(rec))
}
