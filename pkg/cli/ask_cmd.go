package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lakegate/internal/app"
	"lakegate/internal/config"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question against the catalog and warehouse",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := app.NewLogger(cfg)
			application, err := app.New(cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			result, err := application.Gateway.Run(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				printJSON(cmd.OutOrStdout(), result)
				return nil
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newSQLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sql <statement>",
		Short: "Validate and execute a SELECT statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := app.NewLogger(cfg)
			application, err := app.New(cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			result, err := application.Gateway.RunSQL(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				printJSON(cmd.OutOrStdout(), result)
				return nil
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}
