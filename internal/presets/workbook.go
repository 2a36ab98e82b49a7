// =============================================================================
// Diamond Metrics - Preset Workbook
// =============================================================================
//
// Preset tables are usually maintained in a spreadsheet. This module reads
// (and writes) an XLSX workbook with one sheet per table:
//
//   Sheet "sieve"                      Sheet "weight"
//   | Shape | Size   | Sieve     |     | Shape | Size | Avg Weight |
//   |-------|--------|-----------|     |-------|------|------------|
//   | Round | 0.80   | +000-00   |     | Round | 0.8  | 0.003      |
//   | Pear  | 4*3    | P-4x3     |     | Pear  | 4*3  | 0.12       |
//
// Sheet names are matched case-insensitively. The first row is a header.
//
// =============================================================================

package presets

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names used for the two tables.
const (
	SieveSheet  = "sieve"
	WeightSheet = "weight"
)

// WorkbookColumns defines which columns hold which data (0-based).
type WorkbookColumns struct {
	ShapeColumn  int
	KeyColumn    int
	ValueColumn  int
	DataStartRow int
}

// DefaultWorkbookColumns returns the layout shown in the file header.
func DefaultWorkbookColumns() WorkbookColumns {
	return WorkbookColumns{
		ShapeColumn:  0, // Column A
		KeyColumn:    1, // Column B
		ValueColumn:  2, // Column C
		DataStartRow: 1, // Row 2
	}
}

// LoadWorkbook reads both tables from an XLSX file.
func LoadWorkbook(path string) (*Index, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f, DefaultWorkbookColumns())
}

// ReadWorkbook reads both tables from an XLSX stream.
func ReadWorkbook(r io.Reader) (*Index, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f, DefaultWorkbookColumns())
}

func readWorkbook(f *excelize.File, columns WorkbookColumns) (*Index, error) {
	sheets := make(map[string]string)
	for _, name := range f.GetSheetList() {
		sheets[strings.ToLower(strings.TrimSpace(name))] = name
	}

	sieve, err := readSheet(f, sheets, SieveSheet, columns)
	if err != nil {
		return nil, err
	}
	weight, err := readSheet(f, sheets, WeightSheet, columns)
	if err != nil {
		return nil, err
	}

	return NewIndex(sieve, weight), nil
}

func readSheet(f *excelize.File, sheets map[string]string, want string, columns WorkbookColumns) (Table, error) {
	name, ok := sheets[want]
	if !ok {
		return nil, fmt.Errorf("preset workbook has no %q sheet", want)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}

	table := Table{}
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]

		getCell := func(index int) string {
			if index < len(row) {
				return strings.TrimSpace(row[index])
			}
			return ""
		}

		shape := getCell(columns.ShapeColumn)
		key := getCell(columns.KeyColumn)
		if shape == "" || key == "" {
			continue
		}

		if table[shape] == nil {
			table[shape] = make(map[string]string)
		}
		table[shape][key] = getCell(columns.ValueColumn)
	}

	return table, nil
}

// WriteWorkbook writes both tables of idx as an XLSX workbook. Keys and
// values are stored as text so their spelling survives a round trip.
func WriteWorkbook(idx *Index, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SieveSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(WeightSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	if err := writeSheet(f, SieveSheet, "Sieve", idx.Sieve); err != nil {
		return err
	}
	if err := writeSheet(f, WeightSheet, "Avg Weight", idx.Weight); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write preset workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet, valueHeader string, t Table) error {
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Shape", "Size", valueHeader}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	shapes := make([]string, 0, len(t))
	for shape := range t {
		shapes = append(shapes, shape)
	}
	sort.Strings(shapes)

	row := 2
	for _, shape := range shapes {
		keys := make([]string, 0, len(t[shape]))
		for k := range t[shape] {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &[]interface{}{shape, k, t[shape][k]}); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}
	return nil
}
