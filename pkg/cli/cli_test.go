package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogJSON = `{
  "version": 1,
  "generated_at": "2025-08-01T00:00:00Z",
  "models": [
    {
      "name": "ltv_weekly",
      "description": "Weekly customer lifetime value",
      "grain": "week",
      "relation_name": "` + "`db`.`ltv_weekly`" + `",
      "dimensions": ["week"],
      "metrics": ["avg_ltv_12"],
      "columns": {
        "week": {"description": "week start", "data_type": "DATE"},
        "avg_ltv_12": {"description": "12-month LTV", "data_type": "Float64", "meta": {"type": "metric"}}
      }
    }
  ]
}`

// runCommand executes the root command with args and returns stdout.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCatalog(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogJSON), 0o644))
	t.Setenv("CATALOG_PATH", path)
	t.Setenv("WAREHOUSE_BACKEND", "duckdb")
}

func TestCalc_Sum(t *testing.T) {
	out, err := runCommand(t, `{"op":"sum","numbers":[1.5,2.5]}`, "--env-file=", "calc")
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 4.0, res["result"])
}

func TestCalc_ROMIUndefined(t *testing.T) {
	out, err := runCommand(t, `{"op":"romi","num":10,"den":0}`, "--env-file=", "calc")
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Nil(t, res["result"])
}

func TestCalc_AggregateRevenue(t *testing.T) {
	in := `{"op":"aggregateRevenue","fxRows":[
		{"amount":100,"kind":"payment"},
		{"amount":-25,"kind":"refund"}
	]}`
	out, err := runCommand(t, in, "--env-file=", "calc")
	require.NoError(t, err)

	var res struct {
		Result    float64 `json:"result"`
		Breakdown struct {
			Payments float64 `json:"payments"`
			Refunds  float64 `json:"refunds"`
		} `json:"breakdown"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 75.0, res.Result)
	assert.Equal(t, 100.0, res.Breakdown.Payments)
	assert.Equal(t, 25.0, res.Breakdown.Refunds)
}

func TestCalc_UnknownOp(t *testing.T) {
	_, err := runCommand(t, `{"op":"median"}`, "--env-file=", "calc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operation")
}

func TestMetricExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Metric,Value,Date\nCPA,50.5,2025-09-01\nCPA,49.5,2025-09-02\n",
	), 0o644))

	out, err := runCommand(t, "", "--env-file=", "metric", "extract", "-f", path, "-m", "CPA", "--sum")
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 100.0, res["result"])
	assert.Equal(t, float64(2), res["count"])
}

func TestCatalogValidate(t *testing.T) {
	writeCatalog(t)

	out, err := runCommand(t, "", "--env-file=", "-o", "json", "catalog", "validate")
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, true, res["valid"])
	assert.Equal(t, float64(1), res["models"])
}

func TestSearch(t *testing.T) {
	writeCatalog(t)

	out, err := runCommand(t, "", "--env-file=", "search", "weekly", "ltv")
	require.NoError(t, err)
	assert.Contains(t, out, "ltv_weekly")
}

func TestRoot_RejectsBadOutputFormat(t *testing.T) {
	_, err := runCommand(t, "", "-o", "yaml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestVersion(t *testing.T) {
	out, err := runCommand(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lakegate")
}
