package warehouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2"

	"lakegate/internal/domain"
)

// ClickHouseConfig holds connection settings for the ClickHouse backend.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	UseTLS   bool
}

// ClickHouse executes validated queries against a ClickHouse warehouse.
// Row and time caps are enforced server-side through query-level settings;
// the context deadline is a second guard on the transport.
type ClickHouse struct {
	conn clickhouse.Conn
}

var _ domain.Executor = (*ClickHouse)(nil)

// NewClickHouse opens a native-protocol connection pool.
func NewClickHouse(cfg ClickHouseConfig) (*ClickHouse, error) {
	opts := &clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	}
	if cfg.UseTLS {
		opts.TLS = &tls.Config{}
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	return &ClickHouse{conn: conn}, nil
}

// Name implements domain.Executor.
func (c *ClickHouse) Name() string { return "clickhouse" }

// Close releases the connection pool.
func (c *ClickHouse) Close() error { return c.conn.Close() }

// Execute runs the SQL with server-enforced caps and returns structured rows.
func (c *ClickHouse) Execute(ctx context.Context, sqlText string, caps domain.ExecCaps) (*domain.QueryResult, error) {
	caps = NormalizeCaps(caps)

	ctx, cancel := context.WithTimeout(ctx, caps.MaxExecutionTime)
	defer cancel()
	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"max_result_rows":      caps.MaxRows,
		"max_execution_time":   int(caps.MaxExecutionTime.Seconds()),
		"result_overflow_mode": "break",
		"readonly":             1,
	}))

	rows, err := c.conn.Query(ctx, sqlText)
	if err != nil {
		return nil, domain.ErrExecution(c.Name(), "query failed: %v", err)
	}
	defer rows.Close() //nolint:errcheck

	columns := rows.Columns()
	types := rows.ColumnTypes()

	result := &domain.QueryResult{Columns: columns}
	for rows.Next() {
		if result.RowCount >= caps.MaxRows {
			break
		}
		ptrs := make([]interface{}, len(types))
		for i, ct := range types {
			ptrs[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, domain.ErrExecution(c.Name(), "scan row: %v", err)
		}
		vals := make([]interface{}, len(ptrs))
		for i, p := range ptrs {
			vals[i] = reflect.ValueOf(p).Elem().Interface()
		}
		result.Rows = append(result.Rows, vals)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrExecution(c.Name(), "read rows: %v", err)
	}
	return result, nil
}
