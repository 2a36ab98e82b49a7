// =============================================================================
// Diamond Metrics - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (diamonds)
//   ├── processCmd  (diamonds process <file>...)
//   ├── serveCmd    (diamonds serve)
//   ├── validateCmd (diamonds validate [file]...)
//   └── versionCmd  (diamonds version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration for the subcommands
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/diamond-metrics/internal/config"
	"github.com/ginjaninja78/diamond-metrics/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "diamonds",
	Short: "Diamond Metrics - Turn stock exports into sieve and carat weight sheets",
	Long: `Diamond Metrics reads the plain-text lot export of a stock system, looks up
the sieve size and average stone weight of every lot in the preset tables, and
keeps a carat weight column and totals row consistent while rows are edited.

Example Usage:
  diamonds process stock.txt                 # Print the enriched lots
  diamonds process stock.txt --format xlsx   # Write a workbook with live formulas
  diamonds serve                             # Start the HTTP grid server
  diamonds validate --strict                 # Check the preset tables`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// loadConfig loads the configuration and sets up logging. A missing default
// config file is fine; a missing file named with --config is not.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	required := cmd.Flags().Changed("config")

	cfg, err := config.LoadMainConfig(cfgFile, required)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logging.Setup(level, cfg.LogFormat)

	return cfg, nil
}
