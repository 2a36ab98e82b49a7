// =============================================================================
// Diamond Metrics - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - lotparser
//   - enricher
//   - engine
//   - session
//
// =============================================================================

package types

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Sentinel is the display value for anything that could not be resolved
// against the preset tables.
const Sentinel = "-"

// =============================================================================
// RECORD TYPES
// =============================================================================

// RawRecord is one lot line extracted from an export file.
type RawRecord struct {
	// Quantity is the number of stones in the lot.
	Quantity int `json:"quantity"`

	// Shape is the stone shape as written in the export (e.g. "Round").
	Shape string `json:"shape"`

	// SizeX is the primary millimeter dimension (the X= value).
	SizeX float64 `json:"size_x"`

	// SizeY is the secondary dimension for two-dimensional shapes.
	// Nil when the line carries no Y= value.
	SizeY *float64 `json:"size_y,omitempty"`
}

// HasY reports whether the record carries a secondary dimension.
func (r RawRecord) HasY() bool {
	return r.SizeY != nil
}

// EnrichedRow is a RawRecord joined against the preset tables.
type EnrichedRow struct {
	RawRecord

	// SieveSize is the sieve label, or Sentinel when unmatched.
	SieveSize string `json:"sieve_size"`

	// AvgWeight is the per-stone reference weight in carats.
	AvgWeight Value `json:"avg_weight"`

	// DerivedWeight is AvgWeight x Quantity, or 0 when AvgWeight is absent.
	// It is never the sentinel.
	DerivedWeight float64 `json:"derived_weight"`
}

// =============================================================================
// VALUE (PRESENT | ABSENT)
// =============================================================================

// Value is a numeric cell that may be absent. The zero Value is absent.
type Value struct {
	n  float64
	ok bool
}

// Present wraps a number. NaN and infinities are treated as absent.
func Present(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Value{}
	}
	return Value{n: n, ok: true}
}

// Absent returns the empty value.
func Absent() Value {
	return Value{}
}

// ParseValue converts grid text into a Value. Anything that is not a plain
// number (including the sentinel) is absent.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" || s == Sentinel {
		return Value{}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}
	}
	return Present(n)
}

// IsPresent reports whether the value holds a number.
func (v Value) IsPresent() bool {
	return v.ok
}

// Float returns the number and whether it is present.
func (v Value) Float() (float64, bool) {
	return v.n, v.ok
}

// Or returns the number, or def when absent.
func (v Value) Or(def float64) float64 {
	if !v.ok {
		return def
	}
	return v.n
}

// Format renders the value with a fixed number of decimals, or the sentinel.
func (v Value) Format(decimals int) string {
	if !v.ok {
		return Sentinel
	}
	if decimals < 0 {
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	}
	return FormatFixed(v.n, decimals)
}

// String renders the value in its shortest form, or the sentinel.
func (v Value) String() string {
	return v.Format(-1)
}

// FormatFixed formats v with a fixed number of decimals. Exact halves round
// away from zero, so 1.25 becomes "1.3" the way spreadsheet exports and
// browser grids write it.
func FormatFixed(v float64, decimals int) string {
	r := new(big.Rat)
	if r.SetFloat64(v) == nil {
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}
	return r.FloatString(decimals)
}

// MarshalJSON encodes a present value as a number and an absent one as "-".
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return json.Marshal(Sentinel)
	}
	return json.Marshal(v.n)
}

// UnmarshalJSON accepts numbers, numeric strings, "-", "" and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ParseValue(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Present(n)
	return nil
}
