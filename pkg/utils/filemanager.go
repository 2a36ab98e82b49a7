// =============================================================================
// Diamond Metrics - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for exported workbooks:
//   - Output directory management
//   - Output file naming
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OutputExtension is appended to generated names that lack it.
const OutputExtension = ".xlsx"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager places exported workbooks in the output directory.
type FileManager struct {
	// OutputDir is the directory where exported workbooks are placed.
	OutputDir string

	// NameFormat is the file-name format, see GenerateOutputFileName.
	NameFormat string
}

// NewFileManager creates a new FileManager.
func NewFileManager(outputDir, nameFormat string) *FileManager {
	return &FileManager{
		OutputDir:  outputDir,
		NameFormat: nameFormat,
	}
}

// EnsureDirectories creates the output directory if it doesn't exist.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// OutputPath returns a fresh output path for an export of sourceFile.
func (fm *FileManager) OutputPath(sourceFile string) string {
	name := GenerateOutputFileName(fm.NameFormat, map[string]string{
		"name": BaseName(sourceFile),
	})
	return filepath.Join(fm.OutputDir, name)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {name}      - Uploaded file name (without extension)
//   - params: A map of placeholder values.
//
// RETURNS:
//   - The generated file name, always ending in .xlsx.
//
// EXAMPLE:
//   format: "{name}_{timestamp}_{uuid}.xlsx"
//   params: {"name": "stock"}
//   output: "stock_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xlsx"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
		"{name}":      "export",
	}

	for key, value := range params {
		if value != "" {
			replacements["{"+key+"}"] = sanitize(value)
		}
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), OutputExtension) {
		result += OutputExtension
	}

	return result
}

// BaseName returns the file name of path without directory or extension.
func BaseName(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sanitize keeps placeholder values from introducing path separators.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
