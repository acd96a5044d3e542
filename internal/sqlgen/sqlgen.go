// Package sqlgen turns a selected catalog model into a single aggregation
// query. It is a fixed heuristic, not a cost-based planner: ambiguous cases
// are resolved by documented precedence, and the output is always re-checked
// by the validator before execution.
package sqlgen

import (
	"fmt"
	"sort"
	"strings"

	"lakegate/internal/domain"
)

// ErrNoUsableColumns is returned when a model yields neither a dimension
// projection nor a metric or numeric-fallback projection.
var ErrNoUsableColumns = domain.ErrValidation("model has no usable columns to project")

// sumTokens mark metric names that aggregate with sum() rather than avg().
var sumTokens = []string{"total", "sum", "gross", "revenue", "spend", "cost", "count"}

// numericTypePrefixes identify column data types eligible for the avg()
// fallback projection.
var numericTypePrefixes = []string{
	"int", "uint", "float", "decimal", "numeric", "double", "real", "bigint", "smallint", "tinyint",
}

// Generate emits an aggregation SELECT for the model: dimensions project
// verbatim, metrics project through sum() or avg() chosen by a naming
// heuristic, with GROUP BY over the dimensions and a deterministic ORDER BY.
// Dimension and metric lists are re-checked against the declared columns
// because the catalog is produced by an external build step.
func Generate(model *domain.CatalogModel) (string, error) {
	relation := model.Relation()
	if relation == "" {
		return "", domain.ErrValidation("model %q has no resolvable relation", model.Name)
	}

	var selectParts, groupBy []string
	var dims, metrics []string

	for _, dim := range model.Dimensions {
		if !model.HasColumn(dim) {
			continue
		}
		selectParts = append(selectParts, dim)
		groupBy = append(groupBy, dim)
		dims = append(dims, dim)
	}

	for _, metric := range model.Metrics {
		spec, ok := model.Columns[metric]
		if !ok {
			continue
		}
		fn := "avg"
		if spec.Meta["type"] == "metric" && hasSumToken(metric) {
			fn = "sum"
		}
		selectParts = append(selectParts, fmt.Sprintf("%s(%s) AS %s", fn, metric, metric))
		metrics = append(metrics, metric)
	}

	// No declared metric survived: fall back to averaging every remaining
	// numeric column, keeping the dimension projection.
	if len(metrics) == 0 {
		for name, spec := range model.Columns {
			if contains(dims, name) {
				continue
			}
			if !isNumericType(spec.DataType) {
				continue
			}
			metrics = append(metrics, name)
		}
		// Sort so map iteration order never leaks into generated SQL.
		sort.Strings(metrics)
		for _, name := range metrics {
			selectParts = append(selectParts, fmt.Sprintf("avg(%s) AS %s", name, name))
		}
	}

	if len(selectParts) == 0 {
		return "", ErrNoUsableColumns
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selectParts, ", "))
	b.WriteString(" FROM ")
	b.WriteString(relation)
	if len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupBy, ", "))
		b.WriteString(" ORDER BY ")
		b.WriteString(groupBy[0])
	} else if len(metrics) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(metrics[0])
		b.WriteString(" DESC")
	}
	return b.String(), nil
}

func hasSumToken(name string) bool {
	lower := strings.ToLower(name)
	for _, tok := range sumTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func isNumericType(dataType string) bool {
	lower := strings.ToLower(strings.TrimSpace(dataType))
	for _, prefix := range numericTypePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
