package domain

import "context"

// Executor runs an already-validated SELECT against a warehouse backend.
// Implementations must honor the caps on every call and surface engine or
// transport failures as *ExecutionError.
type Executor interface {
	// Execute runs the SQL and returns structured rows plus a row count.
	Execute(ctx context.Context, sql string, caps ExecCaps) (*QueryResult, error)
	// Name identifies the backend in logs and errors.
	Name() string
}

// HistoryRepository persists orchestrator run records.
type HistoryRepository interface {
	Insert(ctx context.Context, e *HistoryEntry) error
	List(ctx context.Context, limit, offset int) ([]HistoryEntry, error)
}
