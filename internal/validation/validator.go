// =============================================================================
// Diamond Metrics - Preset Validation
// =============================================================================
//
// This module checks the preset tables before they are used for enrichment.
// Lookups never fail (a miss just yields the "-" sentinel), so a typo in a
// hand-maintained table silently turns into blank cells. The validator makes
// those problems visible:
//   - Key-level:   size keys must be a number ("0.80") or a pair ("4*3")
//   - Value-level: sieve labels must be non-empty, weights must be numbers >= 0
//   - Table-level: keys that normalize to the same size but disagree, and
//                  shapes present in only one of the two tables
//   - Coverage:    parsed lots that find no sieve label or weight
//
// ERROR HANDLING:
//   - Problems are collected, not returned as the first failure
//   - Each problem carries its table, shape, key and value
//   - "error" problems make the result invalid, "warning" ones do not
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/diamond-metrics/internal/presets"
	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Table names used in reports.
const (
	TableSieve  = "sieve"
	TableWeight = "weight"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single problem found in the preset tables.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Table is TableSieve or TableWeight.
	Table string

	// Shape and Key locate the entry.
	Shape string
	Key   string

	// Value is the entry's value as written.
	Value string

	// Rule is the rule that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s table, shape '%s', key '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Table,
		e.Shape,
		e.Key,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all problems, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// EntriesValidated is the number of table entries checked.
	EntriesValidated int
}

func (r *ValidationResult) add(err *ValidationError, warningsAsErrors bool) {
	r.Errors = append(r.Errors, err)
	if err.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
		return
	}
	r.WarningCount++
	if warningsAsErrors {
		r.IsValid = false
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes any warning invalidate the result.
	// Default: false
	TreatWarningsAsErrors bool
}

// Validator checks an Index.
type Validator struct {
	index   *presets.Index
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator(idx *presets.Index) *Validator {
	return NewValidatorWithOptions(idx, ValidationOptions{})
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(idx *presets.Index, options ValidationOptions) *Validator {
	return &Validator{index: idx, options: options}
}

// ValidateTables runs the key, value and table-level checks.
func (v *Validator) ValidateTables() *ValidationResult {
	result := &ValidationResult{IsValid: true}

	v.validateTable(result, TableSieve, v.index.Sieve, validateSieveValue)
	v.validateTable(result, TableWeight, v.index.Weight, validateWeightValue)
	v.validateShapes(result)

	return result
}

// ValidateCoverage reports records that would enrich to the sentinel.
// Every miss is a warning.
func (v *Validator) ValidateCoverage(records []types.RawRecord) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	for _, rec := range records {
		result.EntriesValidated++
		key := presets.Candidates(rec)[0]

		if _, ok := v.index.SieveSize(rec); !ok {
			result.add(&ValidationError{
				Severity: SeverityWarning,
				Table:    TableSieve,
				Shape:    rec.Shape,
				Key:      key,
				Rule:     "unmatched",
				Message:  "no sieve size for this lot",
			}, v.options.TreatWarningsAsErrors)
		}
		if _, ok := v.index.AvgWeight(rec); !ok {
			result.add(&ValidationError{
				Severity: SeverityWarning,
				Table:    TableWeight,
				Shape:    rec.Shape,
				Key:      key,
				Rule:     "unmatched",
				Message:  "no average weight for this lot",
			}, v.options.TreatWarningsAsErrors)
		}
	}

	return result
}

func (v *Validator) validateTable(result *ValidationResult, table string, t presets.Table, checkValue func(string) string) {
	for _, shape := range sortedKeys(t) {
		entries := t[shape]

		// normalized size -> first key seen
		seen := make(map[string]string, len(entries))

		for _, key := range sortedKeys(entries) {
			value := entries[key]
			result.EntriesValidated++

			norm, msg := normalizeKey(key)
			if msg != "" {
				result.add(&ValidationError{
					Severity: SeverityError,
					Table:    table,
					Shape:    shape,
					Key:      key,
					Value:    value,
					Rule:     "key",
					Message:  msg,
				}, v.options.TreatWarningsAsErrors)
				continue
			}

			if msg := checkValue(value); msg != "" {
				result.add(&ValidationError{
					Severity: SeverityError,
					Table:    table,
					Shape:    shape,
					Key:      key,
					Value:    value,
					Rule:     "value",
					Message:  msg,
				}, v.options.TreatWarningsAsErrors)
			}

			if prev, ok := seen[norm]; ok && entries[prev] != value {
				result.add(&ValidationError{
					Severity: SeverityWarning,
					Table:    table,
					Shape:    shape,
					Key:      key,
					Value:    value,
					Rule:     "ambiguous",
					Message:  fmt.Sprintf("same size as key '%s' with a different value '%s'", prev, entries[prev]),
				}, v.options.TreatWarningsAsErrors)
			} else if !ok {
				seen[norm] = key
			}
		}
	}
}

func (v *Validator) validateShapes(result *ValidationResult) {
	check := func(from, to string, a, b presets.Table) {
		for _, shape := range sortedKeys(a) {
			if _, ok := b[shape]; ok {
				continue
			}
			result.add(&ValidationError{
				Severity: SeverityWarning,
				Table:    from,
				Shape:    shape,
				Rule:     "shape",
				Message:  fmt.Sprintf("shape has no entries in the %s table", to),
			}, v.options.TreatWarningsAsErrors)
		}
	}

	check(TableSieve, TableWeight, v.index.Sieve, v.index.Weight)
	check(TableWeight, TableSieve, v.index.Weight, v.index.Sieve)
}

// normalizeKey returns a canonical spelling of a size key, or a message
// describing why the key can never match a lookup.
func normalizeKey(key string) (string, string) {
	parts := strings.Split(key, "*")
	if len(parts) > 2 {
		return "", "size key has more than two dimensions"
	}

	norm := make([]string, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return "", "size key is not a number or an X*Y pair"
		}
		if n <= 0 {
			return "", "size key must be positive"
		}
		norm[i] = strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strings.Join(norm, "*"), ""
}

func validateSieveValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "sieve size is empty"
	}
	return ""
}

func validateWeightValue(value string) string {
	n, ok := types.ParseValue(value).Float()
	if !ok {
		return "average weight is not a number"
	}
	if n < 0 {
		return "average weight is negative"
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to a file.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	if err := os.WriteFile(filePath, []byte(FormatErrors(errors)), 0o644); err != nil {
		return fmt.Errorf("failed to write validation log: %w", err)
	}
	return nil
}
