package engine

import (
	"fmt"
	"strconv"

	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

// TotalLabel is written in the first cell of the totals row.
const TotalLabel = "TOTAL"

// RenderedRow is a data row as the grid displays it.
type RenderedRow struct {
	// Cells maps column id to display text.
	Cells map[string]string `json:"cells"`

	// Formula is the CT WT spreadsheet formula for this row.
	Formula string `json:"formula,omitempty"`
}

// RenderedTotals is the totals row as the grid displays it.
type RenderedTotals struct {
	Label    string `json:"label"`
	Span     int    `json:"span"`
	Quantity string `json:"quantity"`
	Weight   string `json:"weight"`

	QuantityFormula string `json:"quantity_formula,omitempty"`
	WeightFormula   string `json:"weight_formula,omitempty"`
}

// Snapshot is everything the grid needs to draw the current state.
type Snapshot struct {
	Columns []ColumnDef    `json:"columns"`
	Rows    []RenderedRow  `json:"rows"`
	Totals  RenderedTotals `json:"totals"`
}

// Render formats state for display. firstSheetRow is the 1-based sheet row
// of the first data row and only affects formula text.
func Render(state State, firstSheetRow int) Snapshot {
	snap := Snapshot{
		Columns: Columns(),
		Rows:    make([]RenderedRow, 0, len(state.Rows)),
		Totals:  RenderTotals(state, firstSheetRow),
	}
	for i, r := range state.Rows {
		snap.Rows = append(snap.Rows, RenderedRow{
			Cells:   RenderCells(r),
			Formula: r.Expr.Formula(firstSheetRow + i),
		})
	}
	return snap
}

// RenderCells formats one row. AVRG WT shows three decimals, CT WT two
// decimals; both show "-" when there is nothing to show.
func RenderCells(r Row) map[string]string {
	return map[string]string{
		FieldDiaCol:      r.DiaCol,
		FieldSettingType: r.SettingType,
		FieldShape:       r.Shape,
		FieldMMSize:      r.MMSize,
		FieldSieveSize:   r.SieveSize,
		FieldAvgWeight:   r.AvgWeight.Format(3),
		FieldQuantity:    r.Quantity.String(),
		FieldWeight:      FormatWeight(r.Weight()),
	}
}

// FormatWeight renders a per-row CT WT. Zero is shown as "-".
func FormatWeight(v types.Value) string {
	if n, ok := v.Float(); !ok || n == 0 {
		return types.Sentinel
	}
	return v.Format(2)
}

// RenderTotals formats the totals row. Totals always render as numbers,
// "0.00" when there are no rows.
func RenderTotals(state State, firstSheetRow int) RenderedTotals {
	t := RenderedTotals{
		Label:    TotalLabel,
		Span:     TotalLabelSpan,
		Quantity: strconv.FormatFloat(state.Totals.Quantity, 'f', -1, 64),
		Weight:   types.FormatFixed(state.Totals.Weight, 2),
	}
	if n := len(state.Rows); n > 0 {
		last := firstSheetRow + n - 1
		t.QuantityFormula = SumFormula(FieldQuantity, firstSheetRow, last)
		t.WeightFormula = SumFormula(FieldWeight, firstSheetRow, last)
	}
	return t
}

// SumFormula returns "=SUM(G1:G9)" style text for a column id.
func SumFormula(field string, first, last int) string {
	l := letter(field)
	return fmt.Sprintf("=SUM(%s%d:%s%d)", l, first, l, last)
}
