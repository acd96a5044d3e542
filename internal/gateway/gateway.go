package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lakegate/internal/catalog"
	"lakegate/internal/domain"
	"lakegate/internal/sqlgen"
	"lakegate/internal/sqlguard"
)

// Gateway orchestrates the question-to-result pipeline: pick a model from the
// catalog, generate SQL, validate it against the allowlist, execute it under
// caps, and record the run. Execution is reached only through a validated
// query; no stage ever hands raw caller input to the warehouse.
type Gateway struct {
	catalog  *catalog.Store
	executor domain.Executor
	history  domain.HistoryRepository // optional
	caps     domain.ExecCaps
	logger   *slog.Logger
}

// New creates a Gateway. history may be nil to disable run recording.
func New(store *catalog.Store, executor domain.Executor, history domain.HistoryRepository, caps domain.ExecCaps, logger *slog.Logger) *Gateway {
	return &Gateway{
		catalog:  store,
		executor: executor,
		history:  history,
		caps:     caps,
		logger:   logger,
	}
}

// Run answers a natural-language question: search the catalog, generate SQL
// for the best-matching model, validate, execute. Failures come back as
// *domain.RunError with a stable code; the executor is never reached when an
// earlier stage fails.
func (g *Gateway) Run(ctx context.Context, question string) (*domain.RunResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	snap := g.catalog.Load()

	fail := func(code domain.FailureCode, msg string) (*domain.RunResult, error) {
		runErr := &domain.RunError{Code: code, Message: msg}
		g.logger.Warn("ask run failed", "run_id", runID, "code", code, "error", msg)
		g.record(ctx, &domain.HistoryEntry{
			RunID:      runID,
			Kind:       "ask",
			Question:   question,
			Status:     string(code),
			Message:    msg,
			DurationMS: time.Since(start).Milliseconds(),
		})
		return nil, runErr
	}

	hits := catalog.Search(snap.Document, question)
	if len(hits) == 0 {
		return fail(domain.FailNoModelFound, "no catalog model matches the question")
	}
	model := hits[0].Model

	if model.Relation() == "" {
		return fail(domain.FailNoRelationName, "model "+model.Name+" has no queryable relation")
	}

	sqlText, err := sqlgen.Generate(model)
	if err != nil {
		if errors.Is(err, sqlgen.ErrNoUsableColumns) {
			return fail(domain.FailNoColumns, "model "+model.Name+": "+err.Error())
		}
		return fail(domain.FailUnknown, err.Error())
	}

	validated, err := sqlguard.Validate(sqlText, snap.Allowlist)
	if err != nil {
		return fail(domain.FailSQLValidation, err.Error())
	}

	result, err := g.executor.Execute(ctx, sqlText, g.caps)
	if err != nil {
		return fail(domain.FailExecution, err.Error())
	}

	g.logger.Info("ask run succeeded",
		"run_id", runID, "model", model.Name, "rows", result.RowCount,
		"backend", g.executor.Name(), "duration_ms", time.Since(start).Milliseconds())
	g.record(ctx, &domain.HistoryEntry{
		RunID:      runID,
		Kind:       "ask",
		Question:   question,
		ModelName:  model.Name,
		SQLText:    sqlText,
		Status:     "OK",
		RowCount:   result.RowCount,
		DurationMS: time.Since(start).Milliseconds(),
	})

	return &domain.RunResult{
		RunID: runID,
		Model: &domain.ModelInfo{
			Name:         model.Name,
			Description:  model.Description,
			RelationName: model.Relation(),
		},
		SQL:        sqlText,
		Validation: validated,
		Result:     result,
	}, nil
}

// RunSQL validates and executes caller-supplied SQL. The same gate applies as
// for generated SQL: anything the validator rejects never reaches the
// executor.
func (g *Gateway) RunSQL(ctx context.Context, sqlText string) (*domain.RunResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	snap := g.catalog.Load()

	fail := func(code domain.FailureCode, msg string) (*domain.RunResult, error) {
		runErr := &domain.RunError{Code: code, Message: msg}
		g.logger.Warn("sql run failed", "run_id", runID, "code", code, "error", msg)
		g.record(ctx, &domain.HistoryEntry{
			RunID:      runID,
			Kind:       "sql",
			SQLText:    sqlText,
			Status:     string(code),
			Message:    msg,
			DurationMS: time.Since(start).Milliseconds(),
		})
		return nil, runErr
	}

	validated, err := sqlguard.Validate(sqlText, snap.Allowlist)
	if err != nil {
		return fail(domain.FailSQLValidation, err.Error())
	}

	result, err := g.executor.Execute(ctx, sqlText, g.caps)
	if err != nil {
		return fail(domain.FailExecution, err.Error())
	}

	g.logger.Info("sql run succeeded",
		"run_id", runID, "table", validated.Table, "rows", result.RowCount,
		"backend", g.executor.Name(), "duration_ms", time.Since(start).Milliseconds())
	g.record(ctx, &domain.HistoryEntry{
		RunID:      runID,
		Kind:       "sql",
		SQLText:    sqlText,
		Status:     "OK",
		RowCount:   result.RowCount,
		DurationMS: time.Since(start).Milliseconds(),
	})

	return &domain.RunResult{
		RunID:      runID,
		SQL:        sqlText,
		Validation: validated,
		Result:     result,
	}, nil
}

// record writes a history entry best-effort. History failures never fail the
// run itself.
func (g *Gateway) record(ctx context.Context, e *domain.HistoryEntry) {
	if g.history == nil {
		return
	}
	if err := g.history.Insert(ctx, e); err != nil {
		g.logger.Error("failed to record run history", "run_id", e.RunID, "error", err)
	}
}
