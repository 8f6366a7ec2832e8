package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jywlabs/demogen/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Long: `Serve the demo generator over HTTP.

Endpoints:
  GET    /healthz
  GET    /metrics
  POST   /api/cycles          {"use_case": "...", "save": true}
  POST   /api/edits           {"use_case", "detailed_description", "code", "request"}
  GET    /api/demos
  POST   /api/demos           {"use_case", "detailed_description", "code"}
  GET    /api/demos/:id
  DELETE /api/demos/:id

Example:
  demogen serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	// Progress goes to the log, not the terminal.
	a.pipeline.OnTransition = nil

	srv := server.New(a.pipeline, a.metrics, a.logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(serveAddr)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", serveAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")
	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
