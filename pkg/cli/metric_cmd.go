package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lakegate/internal/fincalc"
	"lakegate/internal/metricfile"
)

func newMetricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metric",
		Short: "Extract metric values from report files",
	}
	cmd.AddCommand(newMetricExtractCmd())
	return cmd
}

func newMetricExtractCmd() *cobra.Command {
	var (
		file string
		name string
		from string
		to   string
		sum  bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a metric from a CSV, TSV or JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file) //nolint:gosec // path is caller-controlled
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			extraction, err := metricfile.ExtractMetric(string(raw), name, metricfile.DateRange{
				From: from,
				To:   to,
			})
			if err != nil {
				return err
			}

			if sum {
				total := fincalc.SumMetric(extraction.Values, name, from, to)
				printJSON(cmd.OutOrStdout(), total)
				return nil
			}
			printJSON(cmd.OutOrStdout(), extraction)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Report file to read")
	cmd.Flags().StringVarP(&name, "metric", "m", "", "Metric name to extract")
	cmd.Flags().StringVar(&from, "from", "", "Start date (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "End date (inclusive)")
	cmd.Flags().BoolVar(&sum, "sum", false, "Print the period total instead of the raw values")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("metric")

	return cmd
}
