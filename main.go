// =============================================================================
// Diamond Metrics - Main Entry Point
// =============================================================================
//
// USAGE:
//   diamonds process <file>...  - Enrich lot exports and print or export them
//   diamonds serve              - Serve the editable grid over HTTP
//   diamonds validate           - Check the preset tables
//   diamonds version            - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing, preset lookup, the derived column engine,
//                      sessions and the HTTP boundary
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/diamond-metrics/cmd"
)

func main() {
	cmd.Execute()
}
