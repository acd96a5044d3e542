package domain

import "strings"

// ColumnSpec describes a single column of a catalog model.
type ColumnSpec struct {
	Description string            `json:"description" yaml:"description"`
	DataType    string            `json:"data_type" yaml:"data_type"`
	Meta        map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// CatalogModel describes one queryable analytic dataset.
//
// Dimensions and Metrics are ordered lists of column names; every entry
// should correspond to a key in Columns, but the catalog is produced by an
// external build step, so consumers re-check membership rather than trusting
// the lists.
type CatalogModel struct {
	Name         string                `json:"name" yaml:"name"`
	Description  string                `json:"description" yaml:"description"`
	Domain       string                `json:"domain,omitempty" yaml:"domain,omitempty"`
	Grain        string                `json:"grain,omitempty" yaml:"grain,omitempty"`
	Schema       string                `json:"schema,omitempty" yaml:"schema,omitempty"`
	RelationName string                `json:"relation_name,omitempty" yaml:"relation_name,omitempty"`
	Dimensions   []string              `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Metrics      []string              `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Columns      map[string]ColumnSpec `json:"columns" yaml:"columns"`
}

// Relation resolves the fully-qualified identity of the physical table
// backing this model. Precedence: explicit relation_name, then schema.name,
// then the bare model name. Derived forms are backtick-quoted.
func (m *CatalogModel) Relation() string {
	if m.RelationName != "" {
		return m.RelationName
	}
	if m.Name == "" {
		return ""
	}
	if m.Schema != "" {
		return "`" + m.Schema + "`.`" + m.Name + "`"
	}
	return "`" + m.Name + "`"
}

// HasColumn reports whether the model declares the named column.
func (m *CatalogModel) HasColumn(name string) bool {
	_, ok := m.Columns[name]
	return ok
}

// CatalogDocument is the generated artifact describing every queryable dataset.
type CatalogDocument struct {
	Version     int            `json:"version" yaml:"version"`
	GeneratedAt string         `json:"generated_at" yaml:"generated_at"`
	Models      []CatalogModel `json:"models" yaml:"models"`
}

// Validate checks load-time invariants. A document with zero models is a
// fatal error, never a soft-empty state.
func (d *CatalogDocument) Validate() error {
	if len(d.Models) == 0 {
		return ErrValidation("catalog document contains no models")
	}
	for i, m := range d.Models {
		if strings.TrimSpace(m.Name) == "" {
			return ErrValidation("catalog model at index %d has no name", i)
		}
		if len(m.Columns) == 0 {
			return ErrValidation("catalog model %q declares no columns", m.Name)
		}
	}
	return nil
}

// ModelByName returns the first model with the given name.
func (d *CatalogDocument) ModelByName(name string) (*CatalogModel, bool) {
	for i := range d.Models {
		if d.Models[i].Name == name {
			return &d.Models[i], true
		}
	}
	return nil, false
}
