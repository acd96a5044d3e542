// Package app wires configuration, catalog, warehouse backend, history store
// and gateway into a runnable application.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"lakegate/internal/api"
	"lakegate/internal/catalog"
	"lakegate/internal/config"
	"lakegate/internal/db"
	"lakegate/internal/db/repository"
	"lakegate/internal/domain"
	"lakegate/internal/gateway"
	"lakegate/internal/warehouse"
)

// Application is the fully wired gateway process.
type Application struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Catalog *catalog.Store
	Gateway *gateway.Gateway
	History domain.HistoryRepository

	historyDB *sql.DB
	closeExec func() error
	scheduler *ReloadScheduler
}

// NewLogger builds the process logger: tinted console output in development,
// JSON in production.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.Kitchen,
	}))
}

// New builds the application from config. Options controls which optional
// pieces are wired.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Application, error) {
	store, err := catalog.NewStore(cfg.CatalogPath, logger.With("component", "catalog"))
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	executor, closeExec, err := buildExecutor(cfg)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Cfg:       cfg,
		Logger:    logger,
		Catalog:   store,
		closeExec: closeExec,
	}

	var history domain.HistoryRepository
	if opts.History {
		pool, err := db.OpenSQLite(cfg.HistoryDBPath, "write", 0)
		if err != nil {
			_ = closeExec()
			return nil, fmt.Errorf("open history store: %w", err)
		}
		if err := db.RunMigrations(pool); err != nil {
			_ = pool.Close()
			_ = closeExec()
			return nil, fmt.Errorf("migrate history store: %w", err)
		}
		app.historyDB = pool
		history = repository.NewHistoryRepo(pool)
		app.History = history
	}

	app.Gateway = gateway.New(store, executor, history, domain.ExecCaps{
		MaxRows:          cfg.MaxResultRows,
		MaxExecutionTime: cfg.MaxExecutionTime,
	}, logger.With("component", "gateway"))

	if cfg.CatalogReloadCron != "" {
		sched, err := NewReloadScheduler(store, cfg.CatalogReloadCron, logger.With("component", "scheduler"))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("catalog reload schedule: %w", err)
		}
		app.scheduler = sched
	}

	return app, nil
}

// Options selects the optional application pieces.
type Options struct {
	// History enables the SQLite run-history store. One-shot CLI commands
	// leave it off.
	History bool
}

// Router builds the HTTP handler for the application.
func (a *Application) Router() http.Handler {
	h := api.NewHandler(a.Gateway, a.Catalog, a.History, a.Logger.With("component", "api"))
	return api.NewRouter(h, api.RouterConfig{
		RateLimitRPS:       a.Cfg.RateLimitRPS,
		RateLimitBurst:     a.Cfg.RateLimitBurst,
		CORSAllowedOrigins: a.Cfg.CORSAllowedOrigins,
	})
}

// Start launches background pieces (the catalog reload scheduler).
func (a *Application) Start() {
	if a.scheduler != nil {
		a.scheduler.Start()
	}
}

// Close releases backend connections and stops background work.
func (a *Application) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.historyDB != nil {
		_ = a.historyDB.Close()
	}
	if a.closeExec != nil {
		_ = a.closeExec()
	}
}

// buildExecutor constructs the configured warehouse backend.
func buildExecutor(cfg *config.Config) (domain.Executor, func() error, error) {
	noop := func() error { return nil }
	switch cfg.WarehouseBackend {
	case config.BackendClickHouse:
		exec, err := warehouse.NewClickHouse(warehouse.ClickHouseConfig{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			UseTLS:   cfg.ClickHouse.UseTLS,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		return exec, exec.Close, nil
	case config.BackendDatabricks:
		exec := warehouse.NewDatabricks(warehouse.DatabricksConfig{
			Host:        cfg.Databricks.Host,
			Token:       cfg.Databricks.Token,
			WarehouseID: cfg.Databricks.WarehouseID,
		})
		return exec, noop, nil
	case config.BackendDuckDB:
		exec, err := warehouse.NewDuckDB(cfg.DuckDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open duckdb: %w", err)
		}
		return exec, exec.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown warehouse backend %q", cfg.WarehouseBackend)
	}
}
