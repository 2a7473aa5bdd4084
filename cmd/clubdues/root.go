package main

import (
	"fmt"
	"os"

	"github.com/artpar/clubdues/bootstrap"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clubdues",
	Short: "Membership dues billing for sports clubs",
	Long: `clubdues tracks player membership dues.

It turns billing plans into invoices, either as a fixed number of
installments or as one invoice per calendar month, and materializes
the monthly invoices as they come due.

Quick start:
  clubdues serve              # Start the HTTP API and the daily sweep
  clubdues players create --name "Ana"
  clubdues plans create --player <id> --type monthly --start 2024-01-15 --end 2024-06-15 --amount 5000

Operations:
  clubdues sweep              # Create invoices that are due today
  clubdues validate           # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "clubdues.yaml", "config file path")
}

// openApp wires the services for one-shot commands. Logs go to stderr so
// command output stays parseable.
func openApp() (*bootstrap.App, error) {
	a, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		Output:     os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return a, nil
}
