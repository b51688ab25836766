// Package cli implements the apimocker command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "apimocker",
	Short: "apimocker turns an OpenAPI description into a running mock REST API",
	Long: `apimocker reads an OpenAPI (or Swagger) document and serves a fully
functional mock REST API from it: CRUD routes per endpoint, realistic
generated data, request validation, optional persistence, latency and
error simulation, custom response overrides, webhooks, and auth.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	initServeCmd()
	initValidateCmd()
	initVersionCmd()
}
