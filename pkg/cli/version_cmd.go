package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if getOutputFormat(cmd) == "json" {
				printJSON(cmd.OutOrStdout(), map[string]string{"version": version, "commit": commit})
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "lakegate %s (%s)\n", version, commit)
			return nil
		},
	}
}
