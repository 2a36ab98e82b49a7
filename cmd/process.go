// =============================================================================
// Diamond Metrics - Process Command
// =============================================================================
//
// This file defines the 'process' command which enriches one or more stock
// exports and prints or exports the resulting grid.
//
// COMMAND USAGE:
//   diamonds process <file>... [flags]
//
// FLAGS:
//   --format  Output format: table (default), json or xlsx
//   --out     Workbook path for --format xlsx (single input only)
//
// PROCESSING FLOW:
//   1. Load configuration and preset tables
//   2. Run the ingest pipeline on every file (concurrently)
//   3. Print the table / JSON snapshot, or write the workbook
//   4. Print a summary of the processing results
//
// =============================================================================

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/diamond-metrics/internal/engine"
	"github.com/ginjaninja78/diamond-metrics/internal/presets"
	"github.com/ginjaninja78/diamond-metrics/internal/session"
	"github.com/ginjaninja78/diamond-metrics/internal/xlsxgrid"
	"github.com/ginjaninja78/diamond-metrics/pkg/utils"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatXLSX  = "xlsx"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	// outputFormat selects how results are written.
	outputFormat string

	// outputPath overrides the generated workbook name.
	outputPath string
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process <file>...",
	Short: "Enrich stock exports with sieve sizes and carat weights",
	Long: `Parse one or more plain-text stock exports, look up every lot in the preset
tables and derive the CT WT column and totals.

Example:
  diamonds process stock.txt
  diamonds process stock.txt --format json
  diamonds process stock.txt --format xlsx --out stock.xlsx
  diamonds process a.txt b.txt --format xlsx`,

	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(
		&outputFormat,
		"format",
		"f",
		formatTable,
		"Output format: table, json or xlsx",
	)

	processCmd.Flags().StringVarP(
		&outputPath,
		"out",
		"o",
		"",
		"Workbook path for --format xlsx (default: generated in output.dir)",
	)
}

// =============================================================================
// PROCESS RESULT
// =============================================================================

// fileResult holds the outcome of processing one file.
type fileResult struct {
	FilePath   string
	OutputFile string
	Result     *session.Result
	Error      error
}

// =============================================================================
// PROCESS COMMAND EXECUTION
// =============================================================================

// runProcess is the main execution function for the 'process' command.
func runProcess(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	switch outputFormat {
	case formatTable, formatJSON, formatXLSX:
	default:
		return fmt.Errorf("unknown format %q (want table, json or xlsx)", outputFormat)
	}
	if outputPath != "" && (outputFormat != formatXLSX || len(args) > 1) {
		return fmt.Errorf("--out needs --format xlsx and a single input file")
	}

	// -------------------------------------------------------------------------
	// STEP 1: Load configuration and presets
	// -------------------------------------------------------------------------
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	idx, err := presets.Load(cfg.Presets)
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}
	slog.Debug("presets loaded", "source", idx.Source)

	// The CLI reads local files, so no upload limit applies.
	pipeline := session.NewPipeline(cfg.Parser, idx, 0)

	fm := utils.NewFileManager(cfg.Output.Dir, cfg.Output.NameFormat)
	if outputFormat == formatXLSX && outputPath == "" {
		if err := fm.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// -------------------------------------------------------------------------
	// STEP 2: Process files concurrently
	// -------------------------------------------------------------------------
	results := make([]fileResult, len(args))
	var wg sync.WaitGroup

	for i, path := range args {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			results[i] = processFile(cmd.Context(), pipeline, fm, path)
		}(i, path)
	}
	wg.Wait()

	// -------------------------------------------------------------------------
	// STEP 3: Write results in input order
	// -------------------------------------------------------------------------
	out := cmd.OutOrStdout()
	failed := 0

	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.FilePath, session.FormatUserError(r.Error))
			slog.Error("processing failed", "file", r.FilePath, "error", r.Error)
			continue
		}

		switch outputFormat {
		case formatTable:
			if len(args) > 1 {
				fmt.Fprintf(out, "== %s ==\n", r.FilePath)
			}
			if err := writeTable(out, r.Result.State); err != nil {
				return err
			}
		case formatJSON:
			if err := writeSnapshotJSON(out, r); err != nil {
				return err
			}
		case formatXLSX:
			fmt.Fprintf(out, "%s -> %s (%d lots, %d unmatched)\n",
				r.FilePath, r.OutputFile, r.Result.Stats.RecordsParsed, r.Result.Stats.Unmatched)
		}
	}

	// -------------------------------------------------------------------------
	// STEP 4: Summary
	// -------------------------------------------------------------------------
	slog.Info("processing complete",
		"files", len(args),
		"failed", failed,
		"duration", time.Since(startTime),
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
	}
	return nil
}

// processFile runs the pipeline on one file and writes its workbook when
// the xlsx format is selected.
func processFile(ctx context.Context, pipeline *session.Pipeline, fm *utils.FileManager, path string) fileResult {
	res := fileResult{FilePath: path}

	f, err := os.Open(path)
	if err != nil {
		res.Error = fmt.Errorf("%w: %v", session.ErrReadFailed, err)
		return res
	}
	defer f.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	result, err := pipeline.Run(ctx, f)
	if err != nil {
		res.Error = err
		return res
	}
	res.Result = result

	if outputFormat != formatXLSX {
		return res
	}

	res.OutputFile = outputPath
	if res.OutputFile == "" {
		res.OutputFile = fm.OutputPath(path)
	}
	if err := xlsxgrid.WriteFile(result.State, res.OutputFile); err != nil {
		res.Error = err
	}
	return res
}

// writeTable prints the grid as aligned text with the totals row last.
func writeTable(w io.Writer, state engine.State) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	columns := engine.Columns()

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.Header
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	snap := engine.Render(state, 1)
	for _, row := range snap.Rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = row.Cells[c.ID]
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	totals := make([]string, len(columns))
	totals[0] = snap.Totals.Label
	totals[len(columns)-2] = snap.Totals.Quantity
	totals[len(columns)-1] = snap.Totals.Weight
	fmt.Fprintln(tw, strings.Join(totals, "\t"))

	return tw.Flush()
}

// writeSnapshotJSON prints one file's snapshot as a JSON document.
func writeSnapshotJSON(w io.Writer, r fileResult) error {
	doc := struct {
		File     string          `json:"file"`
		Stats    session.Stats   `json:"stats"`
		Snapshot engine.Snapshot `json:"snapshot"`
	}{
		File:     r.FilePath,
		Stats:    r.Result.Stats,
		Snapshot: engine.Render(r.Result.State, 1),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
