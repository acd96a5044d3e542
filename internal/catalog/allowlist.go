package catalog

import (
	"sort"
	"strings"

	"lakegate/internal/domain"
)

// Allowlist maps table identities to the exact set of column names that may
// be referenced against them, plus a secondary map from catalog model name to
// table identity. It is derived purely from a catalog document, rebuilt on
// every catalog load, and never mutated afterwards.
type Allowlist struct {
	// canonical table identity (as it appears in the catalog) keyed by
	// its quote-stripped form
	canonical map[string]string
	columns   map[string]map[string]struct{}
	byModel   map[string]string
	order     []string
}

// BuildAllowlist derives an Allowlist from the document. The column set for
// each table is exactly the keys of the model's Columns map; the dimensions
// and metrics lists are not separately trusted here. If two models resolve to
// the same table identity, the later one in document order wins.
func BuildAllowlist(doc *domain.CatalogDocument) *Allowlist {
	a := &Allowlist{
		canonical: make(map[string]string, len(doc.Models)),
		columns:   make(map[string]map[string]struct{}, len(doc.Models)),
		byModel:   make(map[string]string, len(doc.Models)),
	}
	for i := range doc.Models {
		m := &doc.Models[i]
		rel := m.Relation()
		if rel == "" {
			continue
		}
		key := stripQuotes(rel)
		cols := make(map[string]struct{}, len(m.Columns))
		for name := range m.Columns {
			cols[name] = struct{}{}
		}
		if _, seen := a.canonical[key]; !seen {
			a.order = append(a.order, key)
		}
		a.canonical[key] = rel
		a.columns[key] = cols
		a.byModel[m.Name] = rel
	}
	return a
}

// Lookup resolves a table reference against the allowlist, ignoring identifier
// quoting. It returns the canonical table identity and its allowed columns.
func (a *Allowlist) Lookup(table string) (string, map[string]struct{}, bool) {
	key := stripQuotes(table)
	canonical, ok := a.canonical[key]
	if !ok {
		return "", nil, false
	}
	return canonical, a.columns[key], true
}

// RelationFor resolves a catalog model name to its physical table identity.
func (a *Allowlist) RelationFor(modelName string) (string, bool) {
	rel, ok := a.byModel[modelName]
	return rel, ok
}

// Tables returns the canonical table identities in catalog order.
func (a *Allowlist) Tables() []string {
	out := make([]string, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, a.canonical[key])
	}
	return out
}

// ColumnsFor returns the sorted allowed column names for a table reference,
// or nil when the table is not allowlisted.
func (a *Allowlist) ColumnsFor(table string) []string {
	_, cols, ok := a.Lookup(table)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(cols))
	for c := range cols {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// stripQuotes removes identifier quoting so that `db`.`t`, "db"."t" and db.t
// all compare equal.
func stripQuotes(ident string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '`', '"':
			return -1
		}
		return r
	}, strings.TrimSpace(ident))
}
