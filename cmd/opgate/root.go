package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "opgate",
	Short: "Operation router serving named queries and mutations over HTTP",
	Long: `opgate serves named queries (GET /{name}) and mutations (POST /{name}).

Each operation runs its own middleware chain, validates its input and
answers errors with a {error, message, type} envelope.

Quick start:
  opgate validate   # Check the configuration
  opgate serve      # Start the server

Development:
  opgate routes     # Print the operation table
  opgate token      # Mint an identity token`,
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
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "opgate.yaml", "config file path")
}
