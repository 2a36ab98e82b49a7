// =============================================================================
// Diamond Metrics - XLSX Grid Writer
// =============================================================================
//
// This module renders the grid state into an XLSX workbook. The sheet keeps
// the grid's behaviour when opened in a spreadsheet application: CT WT cells
// and the totals row are written as live formulas, so editing AVRG WT or PCS
// in the sheet updates the weights just like the grid does.
//
// SHEET LAYOUT:
//
//   Row 1        | DIA/COL | SETTING TYP. | ... | AVRG WT | PCS | CT WT          |
//   Row 2..n+1   | ...     | ...          | ... | 0.015   | 5   | =IF(AND(...))  |
//   Row n+2      | TOTAL (merged A:F)                    | =SUM | =SUM           |
//
// CUSTOMIZATION:
//   - Disable LiveFormulas to write computed numbers instead of formulas
//   - Drop the header row with IncludeHeader (formulas follow the shift)
//
// =============================================================================

package xlsxgrid

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/diamond-metrics/internal/engine"
	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for workbook generation.
type GenerateOptions struct {
	// SheetName is the name of the single worksheet.
	// Default: "Diamonds"
	SheetName string

	// IncludeHeader writes the column headers in row 1.
	// Default: true
	IncludeHeader bool

	// LiveFormulas writes CT WT and totals as formulas. When false the
	// computed numbers are written instead.
	// Default: true
	LiveFormulas bool
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		SheetName:     "Diamonds",
		IncludeHeader: true,
		LiveFormulas:  true,
	}
}

// =============================================================================
// GENERATION FUNCTIONS
// =============================================================================

// Generate writes state as a workbook to w using the default options.
func Generate(state engine.State, w io.Writer) error {
	return GenerateWithOptions(state, w, DefaultGenerateOptions())
}

// GenerateWithOptions writes state as a workbook to w.
func GenerateWithOptions(state engine.State, w io.Writer, options GenerateOptions) error {
	f, err := Build(state, options)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile writes state as a workbook to path.
func WriteFile(state engine.State, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}

	if err := Generate(state, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Build creates the workbook in memory. The caller must Close it.
func Build(state engine.State, options GenerateOptions) (*excelize.File, error) {
	if options.SheetName == "" {
		options.SheetName = DefaultGenerateOptions().SheetName
	}

	f := excelize.NewFile()
	b := &builder{f: f, sheet: options.SheetName, options: options}

	if err := b.build(state); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// =============================================================================
// BUILDER
// =============================================================================

type builder struct {
	f       *excelize.File
	sheet   string
	options GenerateOptions

	boldStyle   int
	avgStyle    int
	weightStyle int
	totalStyle  int
}

func (b *builder) build(state engine.State) error {
	if err := b.f.SetSheetName("Sheet1", b.sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := b.createStyles(); err != nil {
		return err
	}
	if err := b.setColumnWidths(); err != nil {
		return err
	}

	firstRow := 1
	if b.options.IncludeHeader {
		if err := b.writeHeader(); err != nil {
			return err
		}
		firstRow = 2
	}

	for i, r := range state.Rows {
		if err := b.writeRow(firstRow+i, r); err != nil {
			return err
		}
	}

	if err := b.writeTotals(state, firstRow); err != nil {
		return err
	}

	if b.options.LiveFormulas {
		// Formulas carry no cached values; ask the application to compute
		// them when the file is opened.
		fullCalc := true
		if err := b.f.SetCalcProps(&excelize.CalcPropsOptions{FullCalcOnLoad: &fullCalc}); err != nil {
			return fmt.Errorf("failed to set calculation properties: %w", err)
		}
	}
	return nil
}

func (b *builder) createStyles() error {
	var err error
	avgFmt := "0.000"
	weightFmt := "0.00"

	if b.boldStyle, err = b.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if b.avgStyle, err = b.f.NewStyle(&excelize.Style{CustomNumFmt: &avgFmt}); err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if b.weightStyle, err = b.f.NewStyle(&excelize.Style{CustomNumFmt: &weightFmt}); err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if b.totalStyle, err = b.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &weightFmt}); err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	return nil
}

func (b *builder) setColumnWidths() error {
	for _, c := range engine.Columns() {
		// Grid widths are pixels; sheet widths are roughly characters.
		if err := b.f.SetColWidth(b.sheet, c.Letter, c.Letter, float64(c.Width)/7); err != nil {
			return fmt.Errorf("failed to set width of %s: %w", c.Letter, err)
		}
	}
	return nil
}

func (b *builder) writeHeader() error {
	cols := engine.Columns()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}

	if err := b.f.SetSheetRow(b.sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last := cols[len(cols)-1].Letter + "1"
	return b.f.SetCellStyle(b.sheet, "A1", last, b.boldStyle)
}

func (b *builder) writeRow(n int, r engine.Row) error {
	cell := func(field string) string {
		c, _ := engine.Column(field)
		return fmt.Sprintf("%s%d", c.Letter, n)
	}

	text := []interface{}{r.DiaCol, r.SettingType, r.Shape, r.MMSize, r.SieveSize}
	if err := b.f.SetSheetRow(b.sheet, cell(engine.FieldDiaCol), &text); err != nil {
		return fmt.Errorf("failed to write row %d: %w", n, err)
	}

	if err := b.setNumber(cell(engine.FieldAvgWeight), r.AvgWeight, types.Sentinel); err != nil {
		return err
	}
	if err := b.setNumber(cell(engine.FieldQuantity), r.Quantity, types.Sentinel); err != nil {
		return err
	}

	weight := cell(engine.FieldWeight)
	if b.options.LiveFormulas && !r.Expr.IsZero() {
		if err := b.setFormula(weight, r.Expr.Formula(n)); err != nil {
			return err
		}
	} else if err := b.setNumber(weight, r.Weight(), ""); err != nil {
		return err
	}

	if err := b.f.SetCellStyle(b.sheet, cell(engine.FieldAvgWeight), cell(engine.FieldAvgWeight), b.avgStyle); err != nil {
		return err
	}
	return b.f.SetCellStyle(b.sheet, weight, weight, b.weightStyle)
}

func (b *builder) writeTotals(state engine.State, firstRow int) error {
	n := firstRow + len(state.Rows)
	label := fmt.Sprintf("A%d", n)
	span, err := excelize.ColumnNumberToName(engine.TotalLabelSpan)
	if err != nil {
		return err
	}

	if err := b.f.SetCellValue(b.sheet, label, engine.TotalLabel); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}
	if err := b.f.MergeCell(b.sheet, label, fmt.Sprintf("%s%d", span, n)); err != nil {
		return fmt.Errorf("failed to merge totals label: %w", err)
	}

	qty := fmt.Sprintf("G%d", n)
	weight := fmt.Sprintf("H%d", n)
	totals := engine.RenderTotals(state, firstRow)

	if b.options.LiveFormulas && totals.QuantityFormula != "" {
		if err := b.setFormula(qty, totals.QuantityFormula); err != nil {
			return err
		}
		if err := b.setFormula(weight, totals.WeightFormula); err != nil {
			return err
		}
	} else {
		if err := b.f.SetCellValue(b.sheet, qty, state.Totals.Quantity); err != nil {
			return fmt.Errorf("failed to write totals: %w", err)
		}
		if err := b.f.SetCellValue(b.sheet, weight, state.Totals.Weight); err != nil {
			return fmt.Errorf("failed to write totals: %w", err)
		}
	}

	if err := b.f.SetCellStyle(b.sheet, label, qty, b.boldStyle); err != nil {
		return err
	}
	return b.f.SetCellStyle(b.sheet, weight, weight, b.totalStyle)
}

// setNumber writes a present value as a number and an absent one as text.
func (b *builder) setNumber(cell string, v types.Value, absent string) error {
	var err error
	if n, ok := v.Float(); ok {
		err = b.f.SetCellValue(b.sheet, cell, n)
	} else {
		err = b.f.SetCellValue(b.sheet, cell, absent)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", cell, err)
	}
	return nil
}

func (b *builder) setFormula(cell, formula string) error {
	if err := b.f.SetCellFormula(b.sheet, cell, strings.TrimPrefix(formula, "=")); err != nil {
		return fmt.Errorf("failed to write formula in %s: %w", cell, err)
	}
	return nil
}
