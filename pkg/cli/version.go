package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("apimocker %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}

func initVersionCmd() {
	rootCmd.AddCommand(versionCmd)
}
