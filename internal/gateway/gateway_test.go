package gateway

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakegate/internal/catalog"
	"lakegate/internal/domain"
)

const testCatalogJSON = `{
  "version": 1,
  "generated_at": "2025-08-01T00:00:00Z",
  "models": [
    {
      "name": "ltv_weekly",
      "description": "Weekly customer lifetime value by cohort",
      "domain": "growth",
      "grain": "week",
      "relation_name": "` + "`db`.`ltv_weekly`" + `",
      "dimensions": ["week"],
      "metrics": ["avg_ltv_12"],
      "columns": {
        "week": {"description": "week start", "data_type": "DATE"},
        "avg_ltv_12": {"description": "12-month LTV", "data_type": "Float64", "meta": {"type": "metric"}}
      }
    },
    {
      "name": "campaign_spend",
      "description": "Daily marketing campaign spend",
      "domain": "marketing",
      "grain": "day",
      "schema": "marts",
      "dimensions": ["day", "campaign"],
      "metrics": ["total_spend"],
      "columns": {
        "day": {"description": "spend date", "data_type": "DATE"},
        "campaign": {"description": "campaign name", "data_type": "String"},
        "total_spend": {"description": "spend in USD", "data_type": "Decimal(18,2)", "meta": {"type": "metric"}}
      }
    }
  ]
}`

type fakeExecutor struct {
	calls   int
	lastSQL string
	result  *domain.QueryResult
	err     error
}

func (f *fakeExecutor) Execute(_ context.Context, sql string, _ domain.ExecCaps) (*domain.QueryResult, error) {
	f.calls++
	f.lastSQL = sql
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeExecutor) Name() string { return "fake" }

type memHistory struct {
	entries []domain.HistoryEntry
}

func (m *memHistory) Insert(_ context.Context, e *domain.HistoryEntry) error {
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memHistory) List(_ context.Context, limit, offset int) ([]domain.HistoryEntry, error) {
	return m.entries, nil
}

func newTestGateway(t *testing.T, exec *fakeExecutor, history domain.HistoryRepository) *Gateway {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogJSON), 0o644))

	logger := slog.New(slog.DiscardHandler)
	store, err := catalog.NewStore(path, logger)
	require.NoError(t, err)

	return New(store, exec, history, domain.ExecCaps{MaxRows: 100}, logger)
}

func TestGateway_RunHappyPath(t *testing.T) {
	exec := &fakeExecutor{result: &domain.QueryResult{
		Columns:  []string{"week", "avg_ltv_12"},
		Rows:     [][]interface{}{{"2025-01-06", 41.2}, {"2025-01-13", 43.7}},
		RowCount: 2,
	}}
	history := &memHistory{}
	gw := newTestGateway(t, exec, history)

	got, err := gw.Run(context.Background(), "average ltv per week")
	require.NoError(t, err)

	assert.NotEmpty(t, got.RunID)
	require.NotNil(t, got.Model)
	assert.Equal(t, "ltv_weekly", got.Model.Name)
	assert.Equal(t, "`db`.`ltv_weekly`", got.Model.RelationName)
	assert.Equal(t, "SELECT week, avg(avg_ltv_12) AS avg_ltv_12 FROM `db`.`ltv_weekly` GROUP BY week ORDER BY week", got.SQL)
	require.NotNil(t, got.Validation)
	assert.Equal(t, "`db`.`ltv_weekly`", got.Validation.Table)
	assert.Equal(t, 2, got.Result.RowCount)
	assert.Equal(t, 1, exec.calls)

	require.Len(t, history.entries, 1)
	entry := history.entries[0]
	assert.Equal(t, "ask", entry.Kind)
	assert.Equal(t, "OK", entry.Status)
	assert.Equal(t, "ltv_weekly", entry.ModelName)
	assert.Equal(t, got.SQL, entry.SQLText)
	assert.Equal(t, 2, entry.RowCount)
}

func TestGateway_RunNoModelFoundNeverExecutes(t *testing.T) {
	exec := &fakeExecutor{}
	history := &memHistory{}
	gw := newTestGateway(t, exec, history)

	_, err := gw.Run(context.Background(), "qzxv unrelated gibberish")
	require.Error(t, err)

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, domain.FailNoModelFound, runErr.Code)
	assert.Equal(t, 0, exec.calls, "executor must not run when no model matches")

	require.Len(t, history.entries, 1)
	assert.Equal(t, string(domain.FailNoModelFound), history.entries[0].Status)
}

func TestGateway_RunExecutionFailure(t *testing.T) {
	exec := &fakeExecutor{err: domain.ErrExecution("fake", "connection refused")}
	gw := newTestGateway(t, exec, nil)

	_, err := gw.Run(context.Background(), "campaign spend per day")
	require.Error(t, err)

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, domain.FailExecution, runErr.Code)
	assert.Contains(t, runErr.Message, "connection refused")
	assert.Equal(t, 1, exec.calls)
}

func TestGateway_RunSQLValidAndExecuted(t *testing.T) {
	exec := &fakeExecutor{result: &domain.QueryResult{Columns: []string{"week"}, RowCount: 1}}
	history := &memHistory{}
	gw := newTestGateway(t, exec, history)

	sqlText := "SELECT week FROM `db`.`ltv_weekly` WHERE week >= '2025-01-01'"
	got, err := gw.RunSQL(context.Background(), sqlText)
	require.NoError(t, err)

	assert.Nil(t, got.Model)
	assert.Equal(t, sqlText, got.SQL)
	assert.Equal(t, "`db`.`ltv_weekly`", got.Validation.Table)
	assert.Equal(t, sqlText, exec.lastSQL)

	require.Len(t, history.entries, 1)
	assert.Equal(t, "sql", history.entries[0].Kind)
	assert.Equal(t, "OK", history.entries[0].Status)
}

func TestGateway_RunSQLRejectedNeverExecutes(t *testing.T) {
	exec := &fakeExecutor{}
	history := &memHistory{}
	gw := newTestGateway(t, exec, history)

	cases := map[string]string{
		"forbidden keyword":   "DROP TABLE `db`.`ltv_weekly`",
		"multi statement":     "SELECT week FROM `db`.`ltv_weekly`; SELECT 1",
		"table not allowed":   "SELECT id FROM secret.users",
		"column not allowed":  "SELECT secret_col FROM `db`.`ltv_weekly`",
		"wildcard projection": "SELECT * FROM `db`.`ltv_weekly`",
	}
	for name, sqlText := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := gw.RunSQL(context.Background(), sqlText)
			require.Error(t, err)

			var runErr *domain.RunError
			require.ErrorAs(t, err, &runErr)
			assert.Equal(t, domain.FailSQLValidation, runErr.Code)
		})
	}
	assert.Equal(t, 0, exec.calls, "rejected SQL must never reach the executor")
	assert.Len(t, history.entries, len(cases))
}

func TestGateway_NilHistoryIsFine(t *testing.T) {
	exec := &fakeExecutor{result: &domain.QueryResult{RowCount: 0}}
	gw := newTestGateway(t, exec, nil)

	_, err := gw.Run(context.Background(), "weekly ltv")
	require.NoError(t, err)
}
