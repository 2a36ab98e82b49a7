// =============================================================================
// Diamond Metrics - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   diamonds serve [--addr :8080]
//
// The server keeps one in-memory session per upload. Idle sessions are
// swept after server.session_ttl. SIGINT/SIGTERM trigger a graceful
// shutdown.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/diamond-metrics/internal/presets"
	"github.com/ginjaninja78/diamond-metrics/internal/session"
	"github.com/ginjaninja78/diamond-metrics/internal/web"
)

// shutdownTimeout bounds the graceful shutdown.
const shutdownTimeout = 10 * time.Second

var serveAddr string

// serveCmd represents the 'serve' command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editable diamond grid over HTTP",
	Long: `Start the HTTP API. Uploaded exports become sessions whose rows can be
inserted, removed and edited; CT WT and the totals stay consistent after every
change and the grid can be exported as a workbook.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	idx, err := presets.Load(cfg.Presets)
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}

	pipeline := session.NewPipeline(cfg.Parser, idx, cfg.Server.MaxUploadBytes)
	manager := session.NewManager(pipeline, cfg.Server.SessionTTL, nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go manager.Run(ctx, cfg.Server.SessionTTL/4)

	server := web.NewServer(cfg, manager)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
