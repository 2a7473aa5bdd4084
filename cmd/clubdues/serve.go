package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the invoice sweep",
	Long: `Start the clubdues server.

The server will:
  - Load configuration from clubdues.yaml (or --config)
  - Or load configuration from CLUBDUES_* environment variables
  - Connect to the database and apply migrations
  - Serve the plans, invoices, players and stats API
  - Run the due-invoice sweep on billing.sweep_schedule

Editing the config file or sending SIGHUP reloads logging.level,
billing.sweep_schedule and billing.sweep_catch_up without a restart.

Environment variables (for Docker deployments):
  CLUBDUES_DATABASE_DRIVER        - sqlite, mongo or memory
  CLUBDUES_DATABASE_DSN           - Database path or MongoDB URI
  CLUBDUES_SERVER_PORT            - Server port (default: 8080)
  CLUBDUES_BILLING_TIMEZONE       - Club timezone (default: UTC)
  CLUBDUES_BILLING_SWEEP_SCHEDULE - Cron spec (default: @daily)
  CLUBDUES_LOG_LEVEL              - Log level: debug, info, warn, error

Examples:
  clubdues serve
  clubdues serve --config /etc/clubdues/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	// Run blocks until shutdown
	return a.Run()
}
