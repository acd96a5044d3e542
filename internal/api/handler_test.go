package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
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

type fakeRunner struct {
	runResult *domain.RunResult
	runErr    error
	lastInput string
}

func (f *fakeRunner) Run(_ context.Context, question string) (*domain.RunResult, error) {
	f.lastInput = question
	return f.runResult, f.runErr
}

func (f *fakeRunner) RunSQL(_ context.Context, sqlText string) (*domain.RunResult, error) {
	f.lastInput = sqlText
	return f.runResult, f.runErr
}

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

func newTestServer(t *testing.T, runner QueryRunner, history domain.HistoryRepository) (*httptest.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogJSON), 0o644))

	logger := slog.New(slog.DiscardHandler)
	store, err := catalog.NewStore(path, logger)
	require.NoError(t, err)

	h := NewHandler(runner, store, history, logger)
	srv := httptest.NewServer(NewRouter(h, RouterConfig{
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return srv, path
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAsk_Success(t *testing.T) {
	runner := &fakeRunner{runResult: &domain.RunResult{
		RunID: "run-1",
		Model: &domain.ModelInfo{Name: "ltv_weekly"},
		SQL:   "SELECT week FROM `db`.`ltv_weekly`",
		Result: &domain.QueryResult{
			Columns:  []string{"week"},
			Rows:     [][]interface{}{{"2025-01-06"}},
			RowCount: 1,
		},
	}}
	srv, _ := newTestServer(t, runner, nil)

	resp := postJSON(t, srv.URL+"/v1/ask", `{"question":"weekly ltv"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "weekly ltv", runner.lastInput)
}

func TestAsk_FailureCodesMapToStatus(t *testing.T) {
	cases := []struct {
		code domain.FailureCode
		want int
	}{
		{domain.FailNoModelFound, http.StatusNotFound},
		{domain.FailNoRelationName, http.StatusUnprocessableEntity},
		{domain.FailNoColumns, http.StatusUnprocessableEntity},
		{domain.FailSQLValidation, http.StatusBadRequest},
		{domain.FailExecution, http.StatusBadGateway},
		{domain.FailUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			runner := &fakeRunner{runErr: &domain.RunError{Code: tc.code, Message: "boom"}}
			srv, _ := newTestServer(t, runner, nil)

			resp := postJSON(t, srv.URL+"/v1/ask", `{"question":"anything"}`)
			require.Equal(t, tc.want, resp.StatusCode)

			body := decodeBody(t, resp)
			assert.Equal(t, string(tc.code), body["code"])
			assert.Equal(t, "boom", body["message"])
		})
	}
}

func TestAsk_BadRequestBody(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil)

	resp := postJSON(t, srv.URL+"/v1/ask", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/v1/ask", `{"question":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuery_PassesSQLThrough(t *testing.T) {
	runner := &fakeRunner{runResult: &domain.RunResult{
		RunID:  "run-2",
		SQL:    "SELECT week FROM `db`.`ltv_weekly`",
		Result: &domain.QueryResult{RowCount: 0},
	}}
	srv, _ := newTestServer(t, runner, nil)

	resp := postJSON(t, srv.URL+"/v1/query", "{\"sql\":\"SELECT week FROM `db`.`ltv_weekly`\"}")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, runner.lastInput, "ltv_weekly")
}

func TestCatalogModels(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil)

	resp, err := http.Get(srv.URL + "/v1/catalog/models")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	models := body["models"].([]interface{})
	require.Len(t, models, 1)
	first := models[0].(map[string]interface{})
	assert.Equal(t, "ltv_weekly", first["name"])
	assert.Equal(t, "`db`.`ltv_weekly`", first["relation_name"])
}

func TestCatalogSearch(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil)

	resp, err := http.Get(srv.URL + "/v1/catalog/search?q=weekly+ltv")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	hits := body["hits"].([]interface{})
	require.NotEmpty(t, hits)
	assert.Equal(t, "ltv_weekly", hits[0].(map[string]interface{})["name"])

	resp, err = http.Get(srv.URL + "/v1/catalog/search")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalogReload(t *testing.T) {
	srv, path := newTestServer(t, &fakeRunner{}, nil)

	// Corrupt file: reload fails, previous snapshot stays served.
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	resp := postJSON(t, srv.URL+"/v1/catalog/reload", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/v1/catalog/models")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody(t, resp)["models"].([]interface{}), 1)

	// Valid file again: reload succeeds.
	require.NoError(t, os.WriteFile(path, []byte(testCatalogJSON), 0o644))
	resp = postJSON(t, srv.URL+"/v1/catalog/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decodeBody(t, resp)["models"])
}

func TestHistory(t *testing.T) {
	history := &memHistory{entries: []domain.HistoryEntry{
		{RunID: "run-9", Kind: "ask", Status: "OK"},
	}}
	srv, _ := newTestServer(t, &fakeRunner{}, history)

	resp, err := http.Get(srv.URL + "/v1/history?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entries := decodeBody(t, resp)["entries"].([]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "run-9", entries[0].(map[string]interface{})["run_id"])
}

func TestHistory_Disabled(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil)

	resp, err := http.Get(srv.URL + "/v1/history")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["models"])
}
