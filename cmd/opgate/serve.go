package main

import (
	"fmt"
	"os"

	"github.com/artpar/opgate/bootstrap"
	"github.com/artpar/opgate/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the operation server",
	Long: `Start the opgate server.

The server will:
  - Load configuration from opgate.yaml (or --config)
  - Or load configuration from OPGATE_* environment variables
  - Open and migrate the database
  - Serve the operation routers under server.base_path

Environment variables (for Docker deployments):
  OPGATE_AUTH_JWT_SECRET    - Identity token secret (required)
  OPGATE_DATABASE_DSN       - Database path (default: opgate.db)
  OPGATE_SERVER_PORT        - Server port (default: 8080)
  OPGATE_LOG_LEVEL          - Log level: debug, info, warn, error

Examples:
  opgate serve
  opgate serve --config /etc/opgate/config.yaml
  opgate serve --hot-reload=false

Send SIGHUP to reload rate limits, the default quota and the log level.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload the config file when it changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	_, statErr := os.Stat(cfgFile)
	hasConfigFile := statErr == nil

	if !hasConfigFile && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No configuration found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Option 1: Create %s with at least auth.jwt_secret\n", cfgFile)
		fmt.Fprintln(out, "Option 2: Set the OPGATE_AUTH_JWT_SECRET environment variable")
		return nil
	}

	app, err := bootstrap.Open(cfgFile, bootstrap.Options{Version: version})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}
	if !hasConfigFile {
		app.Logger.Info().Msg("running with environment variables (no config file)")
	}

	// Run (blocks until shutdown)
	return app.Run(cmd.Context(), hasConfigFile && hotReload)
}
