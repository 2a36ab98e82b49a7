package engine

import (
	"fmt"
)

// ColumnType tells the grid how to edit and align a column.
type ColumnType string

const (
	ColumnText    ColumnType = "text"
	ColumnNumeric ColumnType = "numeric"
)

// Column identifiers, in grid order.
const (
	FieldDiaCol      = "dia_col"
	FieldSettingType = "setting_type"
	FieldShape       = "shape"
	FieldMMSize      = "mm_size"
	FieldSieveSize   = "sieve_size"
	FieldAvgWeight   = "avg_weight"
	FieldQuantity    = "quantity"
	FieldWeight      = "ct_weight"
)

// ColumnDef describes one grid column.
type ColumnDef struct {
	ID       string     `json:"id"`
	Header   string     `json:"header"`
	Type     ColumnType `json:"type"`
	ReadOnly bool       `json:"read_only"`

	// Width is the preferred width in pixels.
	Width int `json:"width"`

	// Letter is the spreadsheet column the field occupies ("A".."H").
	// Formulas are written against these letters.
	Letter string `json:"letter"`
}

var columns = []ColumnDef{
	{ID: FieldDiaCol, Header: "DIA/COL", Type: ColumnText, Width: 100, Letter: "A"},
	{ID: FieldSettingType, Header: "SETTING TYP.", Type: ColumnText, Width: 120, Letter: "B"},
	{ID: FieldShape, Header: "ST. Shape", Type: ColumnText, Width: 110, Letter: "C"},
	{ID: FieldMMSize, Header: "MM SIZE", Type: ColumnText, Width: 120, Letter: "D"},
	{ID: FieldSieveSize, Header: "SIEVE SIZE", Type: ColumnText, Width: 130, Letter: "E"},
	{ID: FieldAvgWeight, Header: "AVRG WT", Type: ColumnNumeric, Width: 110, Letter: "F"},
	{ID: FieldQuantity, Header: "PCS", Type: ColumnNumeric, Width: 100, Letter: "G"},
	{ID: FieldWeight, Header: "CT WT", Type: ColumnNumeric, ReadOnly: true, Width: 110, Letter: "H"},
}

// TotalLabelSpan is the number of leading columns the "TOTAL" label covers.
const TotalLabelSpan = 6

// Columns returns the grid column definitions in display order.
func Columns() []ColumnDef {
	out := make([]ColumnDef, len(columns))
	copy(out, columns)
	return out
}

// Column returns the definition for id.
func Column(id string) (ColumnDef, error) {
	for _, c := range columns {
		if c.ID == id {
			return c, nil
		}
	}
	return ColumnDef{}, fmt.Errorf("%w: %q", ErrUnknownField, id)
}

func letter(id string) string {
	c, err := Column(id)
	if err != nil {
		panic(err)
	}
	return c.Letter
}
