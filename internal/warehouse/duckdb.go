package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"lakegate/internal/domain"
)

// DuckDB executes validated queries against an in-process DuckDB database.
// Used for local development and integration tests; caps are enforced with a
// scan-side row cap and a context deadline.
type DuckDB struct {
	db *sql.DB
}

var _ domain.Executor = (*DuckDB)(nil)

// NewDuckDB opens (or creates) a DuckDB database at path. An empty path opens
// an in-memory database.
func NewDuckDB(path string) (*DuckDB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &DuckDB{db: db}, nil
}

// NewDuckDBFromDB wraps an existing handle; the caller keeps ownership.
func NewDuckDBFromDB(db *sql.DB) *DuckDB { return &DuckDB{db: db} }

// Name implements domain.Executor.
func (d *DuckDB) Name() string { return "duckdb" }

// Close closes the underlying handle.
func (d *DuckDB) Close() error { return d.db.Close() }

// Execute runs the SQL and scans at most caps.MaxRows rows.
func (d *DuckDB) Execute(ctx context.Context, sqlText string, caps domain.ExecCaps) (*domain.QueryResult, error) {
	caps = NormalizeCaps(caps)

	ctx, cancel := context.WithTimeout(ctx, caps.MaxExecutionTime)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, domain.ErrExecution(d.Name(), "query failed: %v", err)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, domain.ErrExecution(d.Name(), "columns: %v", err)
	}

	result := &domain.QueryResult{Columns: cols}
	for rows.Next() {
		if result.RowCount >= caps.MaxRows {
			break
		}
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, domain.ErrExecution(d.Name(), "scan row: %v", err)
		}
		result.Rows = append(result.Rows, vals)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrExecution(d.Name(), "read rows: %v", err)
	}
	return result, nil
}
