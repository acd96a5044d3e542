package catalog

import (
	"log/slog"
	"sync/atomic"

	"lakegate/internal/domain"
)

// Snapshot is one immutable catalog load: the document and the allowlist
// derived from it. Neither is mutated after construction, so concurrent
// readers need no locking.
type Snapshot struct {
	Document  *domain.CatalogDocument
	Allowlist *Allowlist
	Path      string
}

// Store publishes catalog snapshots atomically. An in-flight request always
// sees one consistent document/allowlist pair; reload swaps the whole
// snapshot or leaves the previous one in place on failure.
type Store struct {
	current atomic.Pointer[Snapshot]
	logger  *slog.Logger
}

// NewStore loads the initial snapshot from path. The initial load is fatal on
// error: the process must not serve requests against a half-loaded catalog.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	s := &Store{logger: logger}
	s.current.Store(&Snapshot{Document: doc, Allowlist: BuildAllowlist(doc), Path: path})
	logger.Info("catalog loaded", "path", path, "models", len(doc.Models), "generated_at", doc.GeneratedAt)
	return s, nil
}

// Load returns the current snapshot.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Reload re-reads the document and swaps in a fresh snapshot. All-or-nothing:
// on failure the previous snapshot stays published and the error is returned.
func (s *Store) Reload() error {
	prev := s.current.Load()
	doc, err := LoadDocument(prev.Path)
	if err != nil {
		s.logger.Error("catalog reload failed, keeping previous snapshot", "path", prev.Path, "error", err)
		return err
	}
	s.current.Store(&Snapshot{Document: doc, Allowlist: BuildAllowlist(doc), Path: prev.Path})
	s.logger.Info("catalog reloaded", "path", prev.Path, "models", len(doc.Models), "generated_at", doc.GeneratedAt)
	return nil
}
