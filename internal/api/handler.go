// Package api provides the HTTP surface of the gateway.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"lakegate/internal/catalog"
	"lakegate/internal/domain"
	"lakegate/internal/middleware"
)

// QueryRunner is the orchestrator surface the handlers depend on.
type QueryRunner interface {
	Run(ctx context.Context, question string) (*domain.RunResult, error)
	RunSQL(ctx context.Context, sqlText string) (*domain.RunResult, error)
}

// Handler serves the REST API.
type Handler struct {
	runner  QueryRunner
	catalog *catalog.Store
	history domain.HistoryRepository // optional
	logger  *slog.Logger
}

// NewHandler creates a Handler. history may be nil; the history endpoint then
// reports the feature as unavailable.
func NewHandler(runner QueryRunner, store *catalog.Store, history domain.HistoryRepository, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, catalog: store, history: history, logger: logger}
}

// RouterConfig carries the middleware settings for NewRouter.
type RouterConfig struct {
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.Get("/healthz", h.Health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", h.Ask)
		r.Post("/query", h.Query)
		r.Get("/catalog/models", h.CatalogModels)
		r.Get("/catalog/search", h.CatalogSearch)
		r.Post("/catalog/reload", h.CatalogReload)
		r.Get("/history", h.History)
	})
	return r
}

type askRequest struct {
	Question string `json:"question"`
}

type queryRequest struct {
	SQL string `json:"sql"`
}

// Ask answers a natural-language question end to end.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "question is required")
		return
	}

	result, err := h.runner.Run(r.Context(), req.Question)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Query validates and executes caller-supplied SQL.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "sql is required")
		return
	}

	result, err := h.runner.RunSQL(r.Context(), req.SQL)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CatalogModels lists every model of the current catalog snapshot.
func (h *Handler) CatalogModels(w http.ResponseWriter, r *http.Request) {
	snap := h.catalog.Load()

	type modelView struct {
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		RelationName string   `json:"relation_name"`
		Domain       string   `json:"domain,omitempty"`
		Grain        string   `json:"grain,omitempty"`
		Dimensions   []string `json:"dimensions"`
		Metrics      []string `json:"metrics"`
	}
	models := make([]modelView, 0, len(snap.Document.Models))
	for i := range snap.Document.Models {
		m := &snap.Document.Models[i]
		models = append(models, modelView{
			Name:         m.Name,
			Description:  m.Description,
			RelationName: m.Relation(),
			Domain:       m.Domain,
			Grain:        m.Grain,
			Dimensions:   m.Dimensions,
			Metrics:      m.Metrics,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": snap.Document.GeneratedAt,
		"models":       models,
	})
}

// CatalogSearch runs the lexical model search for ?q=.
func (h *Handler) CatalogSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "query parameter q is required")
		return
	}

	hits := catalog.Search(h.catalog.Load().Document, q)
	type hit struct {
		Name          string   `json:"name"`
		Description   string   `json:"description"`
		Score         int      `json:"score"`
		MatchedFields []string `json:"matched_fields"`
	}
	out := make([]hit, 0, len(hits))
	for _, s := range hits {
		out = append(out, hit{
			Name:          s.Model.Name,
			Description:   s.Model.Description,
			Score:         s.Score,
			MatchedFields: s.MatchedFields,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hits": out})
}

// CatalogReload swaps in a freshly loaded catalog snapshot.
func (h *Handler) CatalogReload(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Reload(); err != nil {
		writeError(w, http.StatusInternalServerError, "CATALOG_RELOAD_FAILED", err.Error())
		return
	}
	snap := h.catalog.Load()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":       len(snap.Document.Models),
		"generated_at": snap.Document.GeneratedAt,
	})
}

// History lists recorded runs, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "HISTORY_DISABLED", "run history is not configured")
		return
	}

	limit := intQueryParam(r, "limit", 50)
	offset := intQueryParam(r, "offset", 0)

	entries, err := h.history.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "HISTORY_ERROR", err.Error())
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// Health reports liveness and the size of the current catalog snapshot.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.catalog.Load()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"models":       len(snap.Document.Models),
		"generated_at": snap.Document.GeneratedAt,
	})
}
