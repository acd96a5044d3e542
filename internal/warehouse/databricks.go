package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lakegate/internal/domain"
)

// DatabricksConfig holds settings for the SQL Statement Execution API.
type DatabricksConfig struct {
	Host        string // workspace base URL, e.g. https://dbc-xxxx.cloud.databricks.com
	Token       string
	WarehouseID string
}

// Databricks executes validated queries through the submit-then-poll
// statement API: submit with no server-side wait, poll with exponential
// backoff until a terminal state, then page through result chunks. The whole
// exchange runs under the caller's wall-clock budget; a timeout surfaces as
// an execution error, never an indeterminate run.
type Databricks struct {
	cfg    DatabricksConfig
	client *http.Client

	pollInitial time.Duration
	pollMax     time.Duration
}

var _ domain.Executor = (*Databricks)(nil)

// NewDatabricks creates a Databricks backend.
func NewDatabricks(cfg DatabricksConfig) *Databricks {
	return &Databricks{
		cfg:         cfg,
		client:      &http.Client{Timeout: 30 * time.Second},
		pollInitial: 250 * time.Millisecond,
		pollMax:     5 * time.Second,
	}
}

// Name implements domain.Executor.
func (d *Databricks) Name() string { return "databricks" }

type stmtStatus struct {
	State string `json:"state"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type stmtManifest struct {
	Schema struct {
		Columns []struct {
			Name string `json:"name"`
		} `json:"columns"`
	} `json:"schema"`
	TotalChunkCount int `json:"total_chunk_count"`
}

type stmtResult struct {
	DataArray      [][]interface{} `json:"data_array"`
	NextChunkIndex *int            `json:"next_chunk_index,omitempty"`
}

type stmtResponse struct {
	StatementID string        `json:"statement_id"`
	Status      stmtStatus    `json:"status"`
	Manifest    *stmtManifest `json:"manifest,omitempty"`
	Result      *stmtResult   `json:"result,omitempty"`
}

// Execute submits the statement and polls it to completion.
func (d *Databricks) Execute(ctx context.Context, sqlText string, caps domain.ExecCaps) (*domain.QueryResult, error) {
	caps = NormalizeCaps(caps)

	ctx, cancel := context.WithTimeout(ctx, caps.MaxExecutionTime)
	defer cancel()

	resp, err := d.submit(ctx, sqlText, caps.MaxRows)
	if err != nil {
		return nil, err
	}

	resp, err = d.pollUntilTerminal(ctx, resp)
	if err != nil {
		return nil, err
	}

	switch resp.Status.State {
	case "SUCCEEDED":
		return d.collectResult(ctx, resp)
	case "FAILED", "CANCELED", "CLOSED":
		msg := "statement " + strings.ToLower(resp.Status.State)
		if resp.Status.Error != nil && resp.Status.Error.Message != "" {
			msg = resp.Status.Error.Message
		}
		return nil, domain.ErrExecution(d.Name(), "%s", msg)
	default:
		return nil, domain.ErrExecution(d.Name(), "statement ended in unexpected state %q", resp.Status.State)
	}
}

func (d *Databricks) submit(ctx context.Context, sqlText string, maxRows int) (*stmtResponse, error) {
	payload := map[string]interface{}{
		"statement":    sqlText,
		"warehouse_id": d.cfg.WarehouseID,
		"wait_timeout": "0s",
		"row_limit":    maxRows,
		"format":       "JSON_ARRAY",
		"disposition":  "INLINE",
	}
	return d.do(ctx, http.MethodPost, "/api/2.0/sql/statements", payload)
}

// pollUntilTerminal polls statement status with exponential backoff until the
// state is terminal or the budget runs out.
func (d *Databricks) pollUntilTerminal(ctx context.Context, resp *stmtResponse) (*stmtResponse, error) {
	terminal := func(state string) bool {
		switch state {
		case "SUCCEEDED", "FAILED", "CANCELED", "CLOSED":
			return true
		}
		return false
	}
	if terminal(resp.Status.State) {
		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.pollInitial
	bo.MaxInterval = d.pollMax
	bo.MaxElapsedTime = 0 // the context deadline is the budget

	statementID := resp.StatementID
	var current *stmtResponse
	err := backoff.Retry(func() error {
		r, err := d.do(ctx, http.MethodGet, "/api/2.0/sql/statements/"+statementID, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		current = r
		if !terminal(r.Status.State) {
			return fmt.Errorf("statement %s still %s", statementID, r.Status.State)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.ErrExecution(d.Name(), "statement %s did not finish within the execution time budget", statementID)
		}
		return nil, err
	}
	return current, nil
}

// collectResult assembles columns and rows, paging through chunks when the
// result spans more than one.
func (d *Databricks) collectResult(ctx context.Context, resp *stmtResponse) (*domain.QueryResult, error) {
	result := &domain.QueryResult{}
	if resp.Manifest != nil {
		for _, c := range resp.Manifest.Schema.Columns {
			result.Columns = append(result.Columns, c.Name)
		}
	}

	chunk := resp.Result
	for chunk != nil {
		result.Rows = append(result.Rows, chunk.DataArray...)
		if chunk.NextChunkIndex == nil {
			break
		}
		next, err := d.do(ctx, http.MethodGet,
			fmt.Sprintf("/api/2.0/sql/statements/%s/result/chunks/%d", resp.StatementID, *chunk.NextChunkIndex), nil)
		if err != nil {
			return nil, err
		}
		chunk = next.Result
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

func (d *Databricks) do(ctx context.Context, method, path string, payload interface{}) (*stmtResponse, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(d.cfg.Host, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := d.client.Do(req)
	if err != nil {
		return nil, domain.ErrExecution(d.Name(), "request failed: %v", err)
	}
	defer httpResp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, domain.ErrExecution(d.Name(), "read response: %v", err)
	}
	if httpResp.StatusCode >= 400 {
		return nil, domain.ErrExecution(d.Name(), "HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out stmtResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, domain.ErrExecution(d.Name(), "decode response: %v", err)
	}
	// Chunk fetches return a bare result object without a status wrapper.
	if out.Result == nil && out.Status.State == "" {
		var bare stmtResult
		if err := json.Unmarshal(raw, &bare); err == nil && bare.DataArray != nil {
			out.Result = &bare
		}
	}
	return &out, nil
}
