// =============================================================================
// Diamond Metrics - Lot Parser Module
// =============================================================================
//
// This module extracts lot records from the plain-text export produced by the
// stock system. The export is noisy: headers, subtotals and free-form notes
// sit between the data lines, so the parser is deliberately tolerant and
// never fails. Lines that do not look like a lot are skipped silently.
//
// DATA LINE FORMAT:
//   <qty>, <marker>, <shape>, ..., X=<mm>[, Y=<mm>], ...
//
//   - the line contains the lot marker (default "Diamond")
//   - the line does not contain the total marker (default "Total")
//   - at least MinFields comma-separated fields (default 6)
//   - field 0 is the quantity, field 2 is the shape
//   - the sizes are found anywhere on the line as X=<number> / Y=<number>
//
// =============================================================================

package lotparser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/diamond-metrics/internal/config"
	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

var (
	xPattern = regexp.MustCompile(`X=([\d.]+)`)
	yPattern = regexp.MustCompile(`Y=([\d.]+)`)
)

// =============================================================================
// PARSER
// =============================================================================

// Parser extracts RawRecords from export text.
type Parser struct {
	settings config.ParserSettings
}

// New creates a parser. Empty settings fall back to the export defaults.
func New(settings config.ParserSettings) *Parser {
	if settings.LotMarker == "" {
		settings.LotMarker = "Diamond"
	}
	if settings.TotalMarker == "" {
		settings.TotalMarker = "Total"
	}
	if settings.MinFields <= 0 {
		settings.MinFields = 6
	}
	return &Parser{settings: settings}
}

// Parse extracts every lot record from text, in line order.
func (p *Parser) Parse(text string) []types.RawRecord {
	var records []types.RawRecord

	for _, line := range strings.Split(text, "\n") {
		if rec, ok := p.ParseLine(line); ok {
			records = append(records, rec)
		}
	}

	return records
}

// ParseReader reads r to the end and parses it. The only error it returns is
// a read failure; malformed content is never an error.
func (p *Parser) ParseReader(r io.Reader) ([]types.RawRecord, error) {
	var records []types.RawRecord

	scanner := bufio.NewScanner(r)
	// Some exports put an entire section on one line.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if rec, ok := p.ParseLine(scanner.Text()); ok {
			records = append(records, rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	return records, nil
}

// ParseLine converts a single line. ok is false when the line is not a lot.
func (p *Parser) ParseLine(line string) (rec types.RawRecord, ok bool) {
	line = strings.TrimRight(line, "\r")

	if !strings.Contains(line, p.settings.LotMarker) {
		return rec, false
	}
	if strings.Contains(line, p.settings.TotalMarker) || strings.TrimSpace(line) == "" {
		return rec, false
	}

	parts := strings.Split(line, ",")
	if len(parts) < p.settings.MinFields {
		return rec, false
	}

	quantity, ok := parseQuantity(parts[0])
	if !ok {
		return rec, false
	}

	shape := strings.TrimSpace(parts[2])
	if shape == "" {
		return rec, false
	}

	xMatch := xPattern.FindStringSubmatch(line)
	if xMatch == nil {
		return rec, false
	}
	sizeX, ok := parseSize(xMatch[1])
	if !ok {
		return rec, false
	}

	rec = types.RawRecord{
		Quantity: quantity,
		Shape:    shape,
		SizeX:    sizeX,
	}

	if yMatch := yPattern.FindStringSubmatch(line); yMatch != nil {
		if sizeY, ok := parseSize(yMatch[1]); ok {
			rec.SizeY = &sizeY
		}
	}

	return rec, true
}

// Format writes rec back as a data line that ParseLine accepts.
func (p *Parser) Format(rec types.RawRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d, %s, %s, X=%s", rec.Quantity, p.settings.LotMarker, rec.Shape, formatSize(rec.SizeX))
	fields := 4
	if rec.SizeY != nil {
		fmt.Fprintf(&b, ", Y=%s", formatSize(*rec.SizeY))
		fields++
	}
	for ; fields < p.settings.MinFields; fields++ {
		b.WriteString(", -")
	}

	return b.String()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// parseQuantity reads the leading integer of a field, ignoring trailing text
// ("12 pcs" is 12). Negative quantities are rejected.
func parseQuantity(field string) (int, bool) {
	field = strings.TrimSpace(field)

	end := 0
	if end < len(field) && (field[end] == '+' || field[end] == '-') {
		end++
	}
	digits := end
	for end < len(field) && field[end] >= '0' && field[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(field[:end])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseSize reads the longest numeric prefix of a [\d.]+ match ("1.2.3" is
// 1.2). Zero and unparsable sizes are rejected.
func parseSize(s string) (float64, bool) {
	if first := strings.IndexByte(s, '.'); first >= 0 {
		if second := strings.IndexByte(s[first+1:], '.'); second >= 0 {
			s = s[:first+1+second]
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func formatSize(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
