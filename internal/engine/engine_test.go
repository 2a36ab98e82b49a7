package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

// valueCmp compares Values by what they hold.
var valueCmp = cmp.Comparer(func(a, b types.Value) bool {
	an, aok := a.Float()
	bn, bok := b.Float()
	return aok == bok && (!aok || an == bn)
})

func row(shape string, avg float64, qty float64) Row {
	return Row{Shape: shape, AvgWeight: types.Present(avg), Quantity: types.Present(qty)}
}

func mustApply(t *testing.T, s State, ev Event) State {
	t.Helper()
	next, err := Apply(s, ev)
	require.NoError(t, err)
	return next
}

func TestReload_AttachesExpressionsAndTotals(t *testing.T) {
	s := mustApply(t, State{}, Reload{Rows: []Row{
		row("Round", 0.015, 5),
		row("Pear", 0.004, 10),
		{Shape: "Heart", AvgWeight: types.Absent(), Quantity: types.Present(3)},
	}})

	for _, r := range s.Rows {
		assert.Equal(t, WeightExpr, r.Expr)
	}
	assert.InDelta(t, 0.075, s.Rows[0].Weight().Or(-1), 1e-12)
	assert.False(t, s.Rows[2].Weight().IsPresent())

	assert.Equal(t, 18.0, s.Totals.Quantity)
	assert.InDelta(t, 0.115, s.Totals.Weight, 1e-12)
}

func TestReload_NilKeepsCurrentRows(t *testing.T) {
	s := State{Rows: []Row{row("Round", 0.5, 2)}}

	s = mustApply(t, s, Reload{})
	require.Len(t, s.Rows, 1)
	assert.Equal(t, 1.0, s.Totals.Weight)
}

func TestInsertEquivalentToReload(t *testing.T) {
	a, b, c := row("Round", 0.015, 5), row("Pear", 0.004, 10), row("Oval", 0.15, 2)

	viaInsert := mustApply(t, State{}, Reload{Rows: []Row{a, c}})
	viaInsert = mustApply(t, viaInsert, InsertRows{Index: 1, Rows: []Row{b}})

	viaReload := mustApply(t, State{}, Reload{Rows: []Row{a, b, c}})

	if diff := cmp.Diff(viaReload, viaInsert, valueCmp); diff != "" {
		t.Errorf("insert vs reload mismatch (-reload +insert):\n%s", diff)
	}
}

func TestInsertRows_OnlyTouchesInsertedRange(t *testing.T) {
	// A row that was never reloaded has no expression; an insert elsewhere
	// must leave it that way.
	bare := row("Round", 0.5, 2)
	s := State{Rows: []Row{bare, bare}}

	s = mustApply(t, s, InsertRows{Index: 1, Count: 2})

	require.Len(t, s.Rows, 4)
	assert.True(t, s.Rows[0].Expr.IsZero())
	assert.Equal(t, WeightExpr, s.Rows[1].Expr)
	assert.Equal(t, WeightExpr, s.Rows[2].Expr)
	assert.True(t, s.Rows[3].Expr.IsZero())

	// Blank rows have no numbers, so they add nothing.
	assert.Equal(t, 4.0, s.Totals.Quantity)
	assert.Equal(t, 0.0, s.Totals.Weight)
}

func TestInsertRows_AppendAndPrepend(t *testing.T) {
	s := mustApply(t, State{}, Reload{Rows: []Row{row("B", 1, 1)}})

	s = mustApply(t, s, InsertRows{Index: 0, Rows: []Row{row("A", 1, 1)}})
	s = mustApply(t, s, InsertRows{Index: 2, Count: 1, Rows: []Row{row("C", 1, 1)}})

	var shapes []string
	for _, r := range s.Rows {
		shapes = append(shapes, r.Shape)
	}
	assert.Equal(t, []string{"A", "B", "C"}, shapes)
	assert.Equal(t, 3.0, s.Totals.Weight)
}

func TestRemoveRows(t *testing.T) {
	s := mustApply(t, State{}, Reload{Rows: []Row{row("A", 1, 1), row("B", 2, 2), row("C", 3, 3)}})

	s = mustApply(t, s, RemoveRows{Index: 1, Count: 1})
	assert.Equal(t, 4.0, s.Totals.Quantity)
	assert.Equal(t, 10.0, s.Totals.Weight)

	s = mustApply(t, s, RemoveRows{Index: 0, Count: 2})
	assert.Empty(t, s.Rows)
	assert.Equal(t, Totals{}, s.Totals)
}

func TestEditCell_RecomputesTotals(t *testing.T) {
	s := mustApply(t, State{}, Reload{Rows: []Row{row("Round", 0.015, 5)}})

	s = mustApply(t, s, EditCell{Row: 0, Field: FieldQuantity, Value: "10"})
	assert.InDelta(t, 0.15, s.Totals.Weight, 1e-12)
	assert.Equal(t, 10.0, s.Totals.Quantity)

	s = mustApply(t, s, EditCell{Row: 0, Field: FieldAvgWeight, Value: "-"})
	assert.False(t, s.Rows[0].Weight().IsPresent())
	assert.Equal(t, 0.0, s.Totals.Weight)

	s = mustApply(t, s, EditCell{Row: 0, Field: FieldDiaCol, Value: "D1"})
	assert.Equal(t, "D1", s.Rows[0].DiaCol)
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	in := mustApply(t, State{}, Reload{Rows: []Row{row("A", 1, 1), row("B", 2, 2)}})
	before := in.Rows[0]

	_ = mustApply(t, in, EditCell{Row: 0, Field: FieldQuantity, Value: "99"})
	_ = mustApply(t, in, RemoveRows{Index: 0, Count: 1})

	require.Len(t, in.Rows, 2)
	assert.Equal(t, before, in.Rows[0])
}

func TestApply_Errors(t *testing.T) {
	s := mustApply(t, State{}, Reload{Rows: []Row{row("A", 1, 1)}})

	tests := []struct {
		name string
		ev   Event
		want error
	}{
		{"insert nothing", InsertRows{Index: 0}, ErrEmptyInsert},
		{"insert past end", InsertRows{Index: 2, Count: 1}, ErrRowRange},
		{"insert negative", InsertRows{Index: -1, Count: 1}, ErrRowRange},
		{"insert count mismatch", InsertRows{Index: 0, Count: 2, Rows: []Row{{}}}, ErrRowRange},
		{"remove past end", RemoveRows{Index: 0, Count: 2}, ErrRowRange},
		{"remove zero", RemoveRows{Index: 0, Count: 0}, ErrRowRange},
		{"edit missing row", EditCell{Row: 1, Field: FieldShape}, ErrRowRange},
		{"edit unknown field", EditCell{Row: 0, Field: "colour"}, ErrUnknownField},
		{"edit derived field", EditCell{Row: 0, Field: FieldWeight, Value: "1"}, ErrReadOnlyField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(s, tt.ev)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, s, got)
		})
	}
}

func TestExprFormula(t *testing.T) {
	assert.Equal(t, `=IF(AND(ISNUMBER(F3),ISNUMBER(G3)),F3*G3,"")`, WeightExpr.Formula(3))
	assert.Equal(t, "", Expr{}.Formula(3))
}

func TestFromEnriched(t *testing.T) {
	y := 0.7
	rows := FromEnriched([]types.EnrichedRow{{
		RawRecord: types.RawRecord{Quantity: 2, Shape: "Pear", SizeX: 1, SizeY: &y},
		SieveSize: "P-1x0.7",
		AvgWeight: types.Present(0.004),
	}})

	require.Len(t, rows, 1)
	assert.Equal(t, "0.70x1.00", rows[0].MMSize)
	assert.Equal(t, "P-1x0.7", rows[0].SieveSize)
	assert.Equal(t, 2.0, rows[0].Quantity.Or(0))
	assert.True(t, rows[0].Expr.IsZero())
}

func TestRowField(t *testing.T) {
	r := mustApply(t, State{}, Reload{Rows: []Row{row("Round", 0.5, 4)}}).Rows[0]

	v, err := r.Field(FieldWeight)
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	_, err = r.Field("colour")
	assert.ErrorIs(t, err, ErrUnknownField)
}
