// =============================================================================
// Diamond Metrics - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration. Settings come from three layers, later layers winning:
//   1. Built-in defaults
//   2. The YAML configuration file (config.yaml)
//   3. DIAMONDS_* environment variables (optionally from a .env file)
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// Presets points at the reference tables used for enrichment.
	Presets PresetSettings `yaml:"presets"`

	// Parser holds the export-format markers.
	Parser ParserSettings `yaml:"parser"`

	// Output controls where exported workbooks are written.
	Output OutputSettings `yaml:"output"`

	// Server holds the HTTP grid boundary settings.
	Server ServerSettings `yaml:"server"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the slog handler.
	// Valid values: "text", "json"
	// Default: "text"
	LogFormat string `yaml:"log_format"`
}

// PresetSettings locates the sieve and weight tables.
// When every field is empty the embedded default tables are used.
type PresetSettings struct {
	// SieveFile is a JSON file mapping shape -> size key -> sieve label.
	SieveFile string `yaml:"sieve_file"`

	// WeightFile is a JSON file mapping shape -> size key -> average weight.
	WeightFile string `yaml:"weight_file"`

	// Workbook is an XLSX file holding both tables on "sieve" and "weight"
	// sheets. It takes precedence over the JSON files.
	Workbook string `yaml:"workbook"`
}

// ParserSettings describes how lot lines are recognized in an export.
type ParserSettings struct {
	// LotMarker must appear on every data line.
	// Default: "Diamond"
	LotMarker string `yaml:"lot_marker"`

	// TotalMarker identifies summary lines that must be skipped.
	// Default: "Total"
	TotalMarker string `yaml:"total_marker"`

	// MinFields is the minimum number of comma-separated fields.
	// Default: 6
	MinFields int `yaml:"min_fields"`
}

// OutputSettings controls exported workbook names and location.
type OutputSettings struct {
	// Dir is the directory where exported workbooks are placed.
	// Default: "./output"
	Dir string `yaml:"dir"`

	// NameFormat defines the exported file name.
	// Placeholders:
	//   {name}      - Base name of the uploaded file, without extension
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - A random UUID
	// Default: "{name}_{timestamp}_{uuid}.xlsx"
	NameFormat string `yaml:"name_format"`
}

// ServerSettings holds the HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxUploadBytes caps the size of an uploaded export.
	// Default: 10 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// RequestTimeout bounds every request.
	// Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// SessionTTL is how long an idle upload session is kept in memory.
	// Default: 2h
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//   - required:   When false, a missing file yields the defaults.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string, required bool) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
		// Fall through to defaults.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment overrides sit on top of the file. A missing .env is fine.
	_ = godotenv.Load()
	applyEnvOverrides(&config, os.LookupEnv)

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides copies DIAMONDS_* variables over the file values.
func applyEnvOverrides(config *MainConfig, lookup func(string) (string, bool)) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"DIAMONDS_LOG_LEVEL", &config.LogLevel},
		{"DIAMONDS_LOG_FORMAT", &config.LogFormat},
		{"DIAMONDS_SERVER_ADDR", &config.Server.Addr},
		{"DIAMONDS_SIEVE_FILE", &config.Presets.SieveFile},
		{"DIAMONDS_WEIGHT_FILE", &config.Presets.WeightFile},
		{"DIAMONDS_PRESET_WORKBOOK", &config.Presets.Workbook},
		{"DIAMONDS_OUTPUT_DIR", &config.Output.Dir},
	}

	for _, o := range overrides {
		if v, ok := lookup(o.env); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
		}
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.Parser.LotMarker == "" {
		config.Parser.LotMarker = "Diamond"
	}
	if config.Parser.TotalMarker == "" {
		config.Parser.TotalMarker = "Total"
	}
	if config.Parser.MinFields == 0 {
		config.Parser.MinFields = 6
	}
	if config.Output.Dir == "" {
		config.Output.Dir = "./output"
	}
	if config.Output.NameFormat == "" {
		config.Output.NameFormat = "{name}_{timestamp}_{uuid}.xlsx"
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = 10 << 20
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 30 * time.Second
	}
	if config.Server.SessionTTL == 0 {
		config.Server.SessionTTL = 2 * time.Hour
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", config.LogLevel)
	}

	switch strings.ToLower(config.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format %q is not one of text, json", config.LogFormat)
	}

	if config.Parser.MinFields < 3 {
		// Shape is read from the third field.
		return fmt.Errorf("parser.min_fields must be at least 3, got %d", config.Parser.MinFields)
	}

	if config.Parser.LotMarker == config.Parser.TotalMarker {
		return fmt.Errorf("parser.lot_marker and parser.total_marker must differ")
	}

	if config.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative")
	}

	// One JSON table without the other cannot be resolved.
	if config.Presets.Workbook == "" && (config.Presets.SieveFile == "") != (config.Presets.WeightFile == "") {
		return fmt.Errorf("presets.sieve_file and presets.weight_file must be set together")
	}

	return nil
}
