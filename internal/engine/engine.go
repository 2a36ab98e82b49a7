// =============================================================================
// Diamond Metrics - Derived Column Engine
// =============================================================================
//
// This module keeps the CT WT (carat weight) column and the totals row
// consistent while the grid changes underneath it. It is written as a pure
// reducer:
//
//   Apply(state, event) -> (state', error)
//
// The input state is never modified. Every successful event ends with a full
// recomputation of the totals, so a caller can never observe stale totals.
//
// EVENTS:
//   Reload      - replace the rows, attach a weight expression to every row
//   InsertRows  - insert N rows at an index, attach expressions to them only
//   RemoveRows  - drop N rows at an index
//   EditCell    - change one field of one row
//
// EXPRESSIONS:
//   A row's weight is an Expr naming two columns of the same row
//   (AVRG WT x PCS). Expressions are relative to the row that owns them, so
//   inserting or removing rows elsewhere never invalidates them; the absolute
//   spreadsheet formula ("F7*G7") is produced only when rendering.
//
// =============================================================================

package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ginjaninja78/diamond-metrics/internal/enricher"
	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

// Errors returned by Apply. The input state is unchanged when any of them
// is returned.
var (
	ErrRowRange      = errors.New("row index out of range")
	ErrUnknownField  = errors.New("unknown field")
	ErrReadOnlyField = errors.New("field is read-only")
	ErrEmptyInsert   = errors.New("nothing to insert")
)

// =============================================================================
// ROWS AND EXPRESSIONS
// =============================================================================

// Expr is a row-relative product of two numeric columns.
type Expr struct {
	Left  string // column id, AVRG WT
	Right string // column id, PCS
}

// WeightExpr is the expression attached to every data row.
var WeightExpr = Expr{Left: FieldAvgWeight, Right: FieldQuantity}

// IsZero reports whether no expression is attached.
func (e Expr) IsZero() bool {
	return e.Left == "" && e.Right == ""
}

// Eval computes the expression for row. The result is present only when
// both operands are numbers.
func (e Expr) Eval(row Row) types.Value {
	if e.IsZero() {
		return types.Absent()
	}
	left, right := row.number(e.Left), row.number(e.Right)
	if !left.IsPresent() || !right.IsPresent() {
		return types.Absent()
	}
	return types.Present(enricher.DerivedWeight(left, right))
}

// Formula renders the expression as a spreadsheet formula for the given
// 1-based sheet row.
func (e Expr) Formula(sheetRow int) string {
	if e.IsZero() {
		return ""
	}
	l := fmt.Sprintf("%s%d", letter(e.Left), sheetRow)
	r := fmt.Sprintf("%s%d", letter(e.Right), sheetRow)
	return fmt.Sprintf(`=IF(AND(ISNUMBER(%s),ISNUMBER(%s)),%s*%s,"")`, l, r, l, r)
}

// Row is one data row of the grid.
type Row struct {
	DiaCol      string      `json:"dia_col"`
	SettingType string      `json:"setting_type"`
	Shape       string      `json:"shape"`
	MMSize      string      `json:"mm_size"`
	SieveSize   string      `json:"sieve_size"`
	AvgWeight   types.Value `json:"avg_weight"`
	Quantity    types.Value `json:"quantity"`

	// Expr computes CT WT. Rows loaded or inserted through Apply always
	// carry one.
	Expr Expr `json:"-"`
}

// Weight evaluates the row's CT WT.
func (r Row) Weight() types.Value {
	return r.Expr.Eval(r)
}

func (r Row) number(field string) types.Value {
	switch field {
	case FieldAvgWeight:
		return r.AvgWeight
	case FieldQuantity:
		return r.Quantity
	}
	return types.Absent()
}

// Field returns the display text of a stored field.
func (r Row) Field(field string) (string, error) {
	switch field {
	case FieldDiaCol:
		return r.DiaCol, nil
	case FieldSettingType:
		return r.SettingType, nil
	case FieldShape:
		return r.Shape, nil
	case FieldMMSize:
		return r.MMSize, nil
	case FieldSieveSize:
		return r.SieveSize, nil
	case FieldAvgWeight:
		return r.AvgWeight.String(), nil
	case FieldQuantity:
		return r.Quantity.String(), nil
	case FieldWeight:
		return r.Weight().String(), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
}

func (r *Row) set(field, value string) error {
	col, err := Column(field)
	if err != nil {
		return err
	}
	if col.ReadOnly {
		return fmt.Errorf("%w: %q", ErrReadOnlyField, field)
	}

	switch field {
	case FieldDiaCol:
		r.DiaCol = value
	case FieldSettingType:
		r.SettingType = value
	case FieldShape:
		r.Shape = value
	case FieldMMSize:
		r.MMSize = value
	case FieldSieveSize:
		r.SieveSize = value
	case FieldAvgWeight:
		r.AvgWeight = types.ParseValue(value)
	case FieldQuantity:
		r.Quantity = types.ParseValue(value)
	}
	return nil
}

// FromEnriched converts enriched rows into grid rows. The free-text columns
// start empty. Expressions are attached by Reload.
func FromEnriched(enriched []types.EnrichedRow) []Row {
	rows := make([]Row, 0, len(enriched))
	for _, e := range enriched {
		rows = append(rows, Row{
			Shape:     e.Shape,
			MMSize:    enricher.SizeLabel(e.RawRecord),
			SieveSize: e.SieveSize,
			AvgWeight: e.AvgWeight,
			Quantity:  types.Present(float64(e.Quantity)),
		})
	}
	return rows
}

// =============================================================================
// STATE AND TOTALS
// =============================================================================

// Totals is the synthetic last row of the grid.
type Totals struct {
	Quantity float64 `json:"quantity"`
	Weight   float64 `json:"weight"`
}

// State is the full row collection plus its totals.
type State struct {
	Rows   []Row  `json:"rows"`
	Totals Totals `json:"totals"`
}

// ComputeTotals folds the rows. Absent quantities and weights count as 0.
func ComputeTotals(rows []Row) Totals {
	var t Totals
	for _, r := range rows {
		t.Quantity += r.Quantity.Or(0)
		t.Weight += r.Weight().Or(0)
	}
	return t
}

// =============================================================================
// EVENTS
// =============================================================================

// Event is a grid notification handled by Apply.
type Event interface {
	eventName() string
}

// Reload replaces the rows and attaches a weight expression to every row.
// A nil Rows reloads the current rows.
type Reload struct {
	Rows []Row
}

// InsertRows inserts rows before Index (Index == len(rows) appends). When
// Rows is empty, Count blank rows are inserted; otherwise Count must be 0 or
// len(Rows).
type InsertRows struct {
	Index int
	Count int
	Rows  []Row
}

// RemoveRows removes Count rows starting at Index.
type RemoveRows struct {
	Index int
	Count int
}

// EditCell sets one field of one row from grid text. Numeric fields that do
// not parse become absent.
type EditCell struct {
	Row   int
	Field string
	Value string
}

func (Reload) eventName() string     { return "reload" }
func (InsertRows) eventName() string { return "insert_rows" }
func (RemoveRows) eventName() string { return "remove_rows" }
func (EditCell) eventName() string   { return "edit_cell" }

// EventName returns a short name for logs.
func EventName(ev Event) string {
	return ev.eventName()
}

// =============================================================================
// REDUCER
// =============================================================================

// Apply handles one event and returns the new state.
func Apply(state State, ev Event) (State, error) {
	var (
		rows []Row
		err  error
	)

	switch e := ev.(type) {
	case Reload:
		rows = reload(state.Rows, e)
	case InsertRows:
		rows, err = insertRows(state.Rows, e)
	case RemoveRows:
		rows, err = removeRows(state.Rows, e)
	case EditCell:
		rows, err = editCell(state.Rows, e)
	default:
		err = fmt.Errorf("unsupported event %T", ev)
	}
	if err != nil {
		return state, err
	}

	next := State{Rows: rows, Totals: ComputeTotals(rows)}
	slog.Debug("grid event applied",
		"event", ev.eventName(),
		"rows", len(next.Rows),
		"total_pcs", next.Totals.Quantity,
		"total_ct", next.Totals.Weight,
	)
	return next, nil
}

func reload(current []Row, e Reload) []Row {
	src := e.Rows
	if src == nil {
		src = current
	}
	rows := make([]Row, len(src))
	for i, r := range src {
		r.Expr = WeightExpr
		rows[i] = r
	}
	return rows
}

func insertRows(current []Row, e InsertRows) ([]Row, error) {
	count := e.Count
	if len(e.Rows) > 0 {
		if count != 0 && count != len(e.Rows) {
			return nil, fmt.Errorf("%w: count %d does not match %d rows", ErrRowRange, count, len(e.Rows))
		}
		count = len(e.Rows)
	}
	if count <= 0 {
		return nil, ErrEmptyInsert
	}
	if e.Index < 0 || e.Index > len(current) {
		return nil, fmt.Errorf("%w: insert at %d, have %d rows", ErrRowRange, e.Index, len(current))
	}

	inserted := make([]Row, count)
	for i := range inserted {
		if len(e.Rows) > 0 {
			inserted[i] = e.Rows[i]
		}
		inserted[i].Expr = WeightExpr
	}

	rows := make([]Row, 0, len(current)+count)
	rows = append(rows, current[:e.Index]...)
	rows = append(rows, inserted...)
	rows = append(rows, current[e.Index:]...)
	return rows, nil
}

func removeRows(current []Row, e RemoveRows) ([]Row, error) {
	if e.Count <= 0 || e.Index < 0 || e.Index+e.Count > len(current) {
		return nil, fmt.Errorf("%w: remove %d at %d, have %d rows", ErrRowRange, e.Count, e.Index, len(current))
	}

	rows := make([]Row, 0, len(current)-e.Count)
	rows = append(rows, current[:e.Index]...)
	rows = append(rows, current[e.Index+e.Count:]...)
	return rows, nil
}

func editCell(current []Row, e EditCell) ([]Row, error) {
	if e.Row < 0 || e.Row >= len(current) {
		return nil, fmt.Errorf("%w: row %d, have %d rows", ErrRowRange, e.Row, len(current))
	}

	rows := make([]Row, len(current))
	copy(rows, current)
	if err := rows[e.Row].set(e.Field, e.Value); err != nil {
		return nil, err
	}
	return rows, nil
}
