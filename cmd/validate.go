// =============================================================================
// Diamond Metrics - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   diamonds validate [file]... [flags]
//
// Checks the configured preset tables. When export files are given, every
// parsed lot is also checked for a matching sieve label and weight.
//
// FLAGS:
//   --strict           Treat warnings as errors
//   --log              Write the report to a file
//   --export-workbook  Write the loaded tables to an .xlsx preset workbook
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/diamond-metrics/internal/lotparser"
	"github.com/ginjaninja78/diamond-metrics/internal/presets"
	"github.com/ginjaninja78/diamond-metrics/internal/validation"
)

var (
	strictValidation bool
	validationLog    string
	exportWorkbook   string
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate [file]...",
	Short: "Check the preset tables and optionally their coverage of exports",
	Long: `Validate the sieve and weight preset tables. Size keys must be a number or
an X*Y pair, sieve labels must be non-empty and weights must be non-negative
numbers. Export files given as arguments are parsed and every lot that finds
no preset entry is reported.

Example:
  diamonds validate
  diamonds validate stock.txt --strict
  diamonds validate --export-workbook presets.xlsx`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat warnings as errors")
	validateCmd.Flags().StringVar(&validationLog, "log", "", "Write the validation report to this file")
	validateCmd.Flags().StringVar(&exportWorkbook, "export-workbook", "", "Write the loaded tables to this .xlsx file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	idx, err := presets.Load(cfg.Presets)
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}

	validator := validation.NewValidatorWithOptions(idx, validation.ValidationOptions{
		TreatWarningsAsErrors: strictValidation,
	})

	result := validator.ValidateTables()
	problems := result.Errors
	valid := result.IsValid

	parser := lotparser.New(cfg.Parser)
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		records, err := parser.ParseReader(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		coverage := validator.ValidateCoverage(records)
		problems = append(problems, coverage.Errors...)
		valid = valid && coverage.IsValid
		slog.Debug("coverage checked", "file", path, "lots", coverage.EntriesValidated, "unmatched", len(coverage.Errors))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Presets: %s (%d shapes)\n", idx.Source, len(idx.Sieve))
	fmt.Fprintln(out, validation.FormatErrors(problems))

	if validationLog != "" {
		if err := validation.WriteErrorLog(problems, validationLog); err != nil {
			return err
		}
	}

	if exportWorkbook != "" {
		f, err := os.Create(exportWorkbook)
		if err != nil {
			return fmt.Errorf("failed to create workbook: %w", err)
		}
		if err := presets.WriteWorkbook(idx, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		fmt.Fprintf(out, "Preset workbook written to %s\n", exportWorkbook)
	}

	if !valid {
		return fmt.Errorf("preset validation failed")
	}
	return nil
}
