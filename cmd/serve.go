package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the Face Registry HTTP API.

The API exposes register, recognize and compare under /api/v1/faces and
identity management under /api/v1/identities. Set WEB_API_KEY to require
an X-API-Key header on every endpoint except /api/v1/health.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Printf("Connecting to identity store...\n")
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	fmt.Printf("Using %s backend (embedding dimension %d)\n", database.BackendName(), a.cfg.Matching.Dimension)

	if port := mustGetInt(cmd, "port"); port != 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}

	healthCtx, healthCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := a.detector.Health(healthCtx); err != nil {
		fmt.Printf("Warning: detector at %s is not healthy: %v\n", a.cfg.Detector.URL, err)
	}
	healthCancel()

	if a.cfg.Web.APIKey == "" {
		fmt.Println("Warning: WEB_API_KEY is not set, the API is unauthenticated")
	}

	server := web.NewServer(a.cfg, a.service)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Registry API on http://%s\n", a.cfg.Web.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
