// Package catalog loads the generated catalog document and derives the
// structures the gateway consults at runtime: the table/column allowlist and
// the lexical search index.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"lakegate/internal/domain"
)

// DefaultDocumentPath is consulted when no catalog path is configured.
const DefaultDocumentPath = "catalog/catalog.json"

// LoadDocument reads and validates a catalog document from disk. JSON and
// YAML documents are supported, selected by file extension. A missing,
// malformed, or empty-models document is a load error; the caller must not
// serve requests against a half-loaded catalog.
func LoadDocument(path string) (*domain.CatalogDocument, error) {
	if path == "" {
		path = DefaultDocumentPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog document: %w", err)
	}

	var doc domain.CatalogDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse catalog document %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse catalog document %s: %w", path, err)
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog document %s: %w", path, err)
	}
	return &doc, nil
}
