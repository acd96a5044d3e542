package domain

import "time"

// ValidatedQuery is the only shape handed onward to execution. A raw SQL
// string is never treated as safe without having produced one of these.
type ValidatedQuery struct {
	Table             string   `json:"table"`
	ReferencedColumns []string `json:"referenced_columns"`
}

// QueryResult holds the structured output of a warehouse query.
type QueryResult struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
}

// ExecCaps are the hard resource caps passed on every execution request.
// They are enforced by the warehouse backend, not by the orchestrator.
type ExecCaps struct {
	MaxRows          int
	MaxExecutionTime time.Duration
}

// FailureCode classifies orchestrator failures for the caller.
type FailureCode string

const (
	FailNoModelFound   FailureCode = "NO_MODEL_FOUND"
	FailNoRelationName FailureCode = "NO_RELATION_NAME"
	FailNoColumns      FailureCode = "NO_COLUMNS"
	FailSQLValidation  FailureCode = "SQL_VALIDATION_ERROR"
	FailExecution      FailureCode = "EXECUTION_ERROR"
	FailUnknown        FailureCode = "UNKNOWN_ERROR"
)

// RunError is the tagged failure shape of an orchestrator run.
type RunError struct {
	Code    FailureCode `json:"code"`
	Message string      `json:"message"`
}

func (e *RunError) Error() string { return string(e.Code) + ": " + e.Message }

// ModelInfo is the model summary embedded in a successful run result.
type ModelInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	RelationName string `json:"relation_name"`
}

// RunResult is the success shape of an orchestrator run. Model is nil for
// caller-supplied SQL runs.
type RunResult struct {
	RunID      string          `json:"run_id"`
	Model      *ModelInfo      `json:"model,omitempty"`
	SQL        string          `json:"sql"`
	Validation *ValidatedQuery `json:"validation"`
	Result     *QueryResult    `json:"result"`
}

// HistoryEntry is one recorded orchestrator run.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"` // "ask" or "sql"
	Question   string    `json:"question,omitempty"`
	ModelName  string    `json:"model_name,omitempty"`
	SQLText    string    `json:"sql,omitempty"`
	Status     string    `json:"status"` // "OK" or a FailureCode
	Message    string    `json:"message,omitempty"`
	RowCount   int       `json:"row_count"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
