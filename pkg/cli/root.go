// Package cli implements the lakegate command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			printJSON(os.Stdout, map[string]interface{}{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		output  string
		envFile string
	)

	rootCmd := &cobra.Command{
		Use:           "lakegate",
		Short:         "Catalog-governed SQL gateway",
		Long:          "lakegate answers catalog questions, validates SQL against the model allowlist, and runs it against the configured warehouse.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if output != "table" && output != "json" {
				return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
			}
			return loadEnvFile(envFile)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading config")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newSQLCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newCalcCmd())
	rootCmd.AddCommand(newMetricCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// getOutputFormat returns the effective output format from the root command's
// persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}
