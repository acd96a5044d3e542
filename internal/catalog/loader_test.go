package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalJSON = `{
  "version": 1,
  "generated_at": "2026-08-01T00:00:00Z",
  "models": [
    {
      "name": "ltv_weekly",
      "description": "Weekly LTV",
      "relation_name": "` + "`db`.`ltv_weekly`" + `",
      "dimensions": ["week"],
      "metrics": ["avg_ltv_12"],
      "columns": {
        "week": {"description": "ISO week", "data_type": "Date"},
        "avg_ltv_12": {"description": "12m LTV", "data_type": "Float64", "meta": {"type": "metric"}}
      }
    }
  ]
}`

const minimalYAML = `version: 1
generated_at: "2026-08-01T00:00:00Z"
models:
  - name: spend_daily
    description: Daily spend
    schema: marts
    dimensions: [day]
    metrics: [total_spend]
    columns:
      day:
        description: Calendar day
        data_type: Date
      total_spend:
        description: Total spend
        data_type: Float64
        meta:
          type: metric
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDocument_JSON(t *testing.T) {
	doc, err := LoadDocument(writeTemp(t, "catalog.json", minimalJSON))
	require.NoError(t, err)
	require.Len(t, doc.Models, 1)
	assert.Equal(t, "ltv_weekly", doc.Models[0].Name)
	assert.Equal(t, "`db`.`ltv_weekly`", doc.Models[0].Relation())
	assert.Equal(t, "metric", doc.Models[0].Columns["avg_ltv_12"].Meta["type"])
}

func TestLoadDocument_YAML(t *testing.T) {
	doc, err := LoadDocument(writeTemp(t, "catalog.yaml", minimalYAML))
	require.NoError(t, err)
	require.Len(t, doc.Models, 1)
	assert.Equal(t, "`marts`.`spend_daily`", doc.Models[0].Relation())
}

func TestLoadDocument_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty models", `{"version": 1, "generated_at": "x", "models": []}`},
		{"malformed", `{"version": 1,`},
		{"model without name", `{"version":1,"models":[{"description":"x","columns":{"a":{}}}]}`},
		{"model without columns", `{"version":1,"models":[{"name":"m","columns":{}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDocument(writeTemp(t, "catalog.json", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadDocument(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestStore_ReloadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	path := writeTemp(t, "catalog.json", minimalJSON)
	logger := slog.New(slog.DiscardHandler)

	store, err := NewStore(path, logger)
	require.NoError(t, err)
	before := store.Load()
	require.NotNil(t, before.Allowlist)

	// Corrupt the file; reload must fail and keep the old snapshot published.
	require.NoError(t, os.WriteFile(path, []byte(`{"models": []}`), 0o600))
	require.Error(t, store.Reload())
	assert.Same(t, before, store.Load())

	// Fix the file; reload must swap in a fresh snapshot.
	require.NoError(t, os.WriteFile(path, []byte(minimalJSON), 0o600))
	require.NoError(t, store.Reload())
	assert.NotSame(t, before, store.Load())
}
