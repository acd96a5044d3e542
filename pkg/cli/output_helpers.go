package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"lakegate/internal/config"
	"lakegate/internal/domain"
)

func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// printResult renders a run result as an aligned table: the chosen model, the
// generated SQL and the rows.
func printResult(w io.Writer, result *domain.RunResult) {
	if result.Model != nil {
		fmt.Fprintf(w, "Model: %s (%s)\n", result.Model.Name, result.Model.RelationName)
	}
	fmt.Fprintf(w, "SQL:   %s\n\n", result.SQL)

	if result.Result == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.Result.Columns, "\t"))
	for _, row := range result.Result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n(%d rows)\n", result.Result.RowCount)
}

// loadEnvFile loads the env file when present; a missing default file is not
// an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	return config.LoadDotEnv(path)
}
