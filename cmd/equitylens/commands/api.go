package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/equitylens/internal/api"
	"github.com/wonny/equitylens/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health               - Health check (database, Redis)
  GET  /metrics              - Prometheus metrics
  POST /api/analysis         - Run and store an analysis
  GET  /api/analysis/{id}    - Fetch a stored analysis and its narrative

Example:
  go run ./cmd/equitylens api
  go run ./cmd/equitylens api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	analysisHandler := handlers.NewAnalysisHandler(a.orchestrator, a.records, log)
	healthHandler := handlers.NewHealthHandler(log, a.healthChecks()...)
	router := api.NewRouter(analysisHandler, healthHandler, a.metrics, log)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := api.New(cfg, log, router).Run(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
