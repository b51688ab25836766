package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apimocker/apimocker/pkg/engine"
	"github.com/apimocker/apimocker/pkg/openapi"
)

var validateCmd = &cobra.Command{
	Use:   "validate <spec-file>",
	Short: "Parse an API document and report the routes it would serve",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		doc, err := openapi.Load(args[0])
		if err != nil {
			return fmt.Errorf("invalid API document: %w", err)
		}

		fmt.Printf("%s %s: %d endpoints, %d schemas\n\n",
			doc.Title, doc.Version, len(doc.Endpoints), len(doc.Schemas))
		for _, ep := range doc.Endpoints {
			fmt.Printf("  %-7s %-40s -> %s\n",
				strings.ToUpper(ep.Method), ep.Path, engine.CollectionName(ep.Path))
		}
		return nil
	},
}

func initValidateCmd() {
	rootCmd.AddCommand(validateCmd)
}
