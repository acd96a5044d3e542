// Package repository holds the SQL-backed persistence adapters.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lakegate/internal/domain"
)

// HistoryRepo persists gateway run records in the SQLite metastore.
type HistoryRepo struct {
	db *sql.DB
}

var _ domain.HistoryRepository = (*HistoryRepo)(nil)

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Insert(ctx context.Context, e *domain.HistoryEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO run_history (run_id, kind, question, model_name, sql_text, status, message, row_count, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Kind, e.Question, e.ModelName, e.SQLText, e.Status, e.Message, e.RowCount, e.DurationMS, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run history insert id: %w", err)
	}
	e.ID = id
	return nil
}

// List returns entries newest-first.
func (r *HistoryRepo) List(ctx context.Context, limit, offset int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, kind, question, model_name, sql_text, status, message, row_count, duration_ms, created_at
		FROM run_history
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list run history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Kind, &e.Question, &e.ModelName, &e.SQLText,
			&e.Status, &e.Message, &e.RowCount, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read run history rows: %w", err)
	}
	return entries, nil
}
