// Package metricfile extracts metric time-series from uploaded report files.
// It accepts CSV, TSV and JSON content, resolves the requested metric either
// as a column or as labelled rows, and returns clean numeric values ready for
// the calculation layer.
package metricfile

import (
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"lakegate/internal/domain"
)

// Extraction is the outcome of pulling one metric out of a file.
type Extraction struct {
	Values      []float64 `json:"values"`
	Metric      string    `json:"metric"`
	ColumnUsed  string    `json:"column_used"`
	TotalRows   int       `json:"total_rows"`
	ValidValues int       `json:"valid_values"`
}

// DateRange optionally restricts extraction to rows whose date column falls
// inside [From, To]. Zero values leave the corresponding bound open.
type DateRange struct {
	From string
	To   string
}

// table is the normalized tabular form every supported format parses into.
// Column names are trimmed, lowercased, with spaces replaced by underscores.
type table struct {
	columns []string
	rows    []map[string]interface{}
}

// ExtractMetric parses content and extracts the named metric.
func ExtractMetric(content, metric string, dates DateRange) (*Extraction, error) {
	tbl, err := parse(content)
	if err != nil {
		return nil, err
	}
	return tbl.extract(metric, dates)
}

// ExtractMetrics extracts several metrics from one parse of the content.
// Metrics that cannot be resolved are reported per-name in the error map;
// parsing failure fails the whole call.
func ExtractMetrics(content string, metrics []string, dates DateRange) (map[string]*Extraction, map[string]error, error) {
	tbl, err := parse(content)
	if err != nil {
		return nil, nil, err
	}

	out := make(map[string]*Extraction, len(metrics))
	failed := make(map[string]error)
	for _, m := range metrics {
		ex, err := tbl.extract(m, dates)
		if err != nil {
			failed[m] = err
			continue
		}
		out[m] = ex
	}
	return out, failed, nil
}

// parse sniffs the format: JSON when the content starts with { or [, else
// TSV when the header line contains a tab, else CSV.
func parse(content string) (*table, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, domain.ErrValidation("file content is empty")
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if tbl, err := parseJSON(trimmed); err == nil {
			return tbl, nil
		}
		// Fall through: content that merely looks like JSON is retried as
		// delimited text.
	}

	sep := ','
	if first, _, _ := strings.Cut(trimmed, "\n"); strings.Contains(first, "\t") {
		sep = '\t'
	}
	return parseDelimited(trimmed, sep)
}

func parseJSON(content string) (*table, error) {
	var anyVal interface{}
	if err := json.Unmarshal([]byte(content), &anyVal); err != nil {
		return nil, domain.ErrValidation("invalid JSON: %v", err)
	}

	var records []interface{}
	switch v := anyVal.(type) {
	case []interface{}:
		records = v
	case map[string]interface{}:
		// Nested payloads wrap the rows under a well-known key.
		found := false
		for _, key := range []string{"data", "rows", "values"} {
			if inner, ok := v[key].([]interface{}); ok {
				records = inner
				found = true
				break
			}
		}
		if !found {
			records = []interface{}{v}
		}
	default:
		return nil, domain.ErrValidation("unsupported JSON shape %T", anyVal)
	}

	tbl := &table{}
	seen := map[string]bool{}
	for _, rec := range records {
		obj, ok := rec.(map[string]interface{})
		if !ok {
			continue
		}
		row := make(map[string]interface{}, len(obj))
		for k, v := range obj {
			col := normalizeColumn(k)
			if !seen[col] {
				seen[col] = true
				tbl.columns = append(tbl.columns, col)
			}
			row[col] = v
		}
		tbl.rows = append(tbl.rows, row)
	}
	if len(tbl.rows) == 0 {
		return nil, domain.ErrValidation("JSON content holds no records")
	}
	return tbl, nil
}

func parseDelimited(content string, sep rune) (*table, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, domain.ErrValidation("unable to parse file content: %v", err)
	}
	if len(records) < 2 {
		return nil, domain.ErrValidation("file has no data rows")
	}

	tbl := &table{}
	for _, h := range records[0] {
		tbl.columns = append(tbl.columns, normalizeColumn(h))
	}
	for _, rec := range records[1:] {
		row := make(map[string]interface{}, len(tbl.columns))
		for i, col := range tbl.columns {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		tbl.rows = append(tbl.rows, row)
	}
	return tbl, nil
}

func normalizeColumn(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// extract resolves the metric to a column, applies the date filter, and
// coerces the values to numbers.
func (t *table) extract(metric string, dates DateRange) (*Extraction, error) {
	rows := t.rows

	column := t.resolveColumn(metric)
	if column == "" {
		// Long-format files label metrics in the rows instead of the header:
		// filter rows by the label column and read the first value-like
		// column.
		column, rows = t.resolveByRowLabel(metric)
	}
	if column == "" {
		return nil, domain.ErrNotFound("metric %q not found in file (columns: %s)", metric, strings.Join(t.columns, ", "))
	}

	rows = filterByDate(t.columns, rows, dates)

	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v, ok := coerceNumeric(row[column]); ok {
			values = append(values, v)
		}
	}

	return &Extraction{
		Values:      values,
		Metric:      metric,
		ColumnUsed:  column,
		TotalRows:   len(rows),
		ValidValues: len(values),
	}, nil
}

// resolveColumn finds the metric as a column name: exact normalized match
// first, then substring match either way.
func (t *table) resolveColumn(metric string) string {
	lower := strings.ToLower(metric)
	candidates := []string{
		normalizeColumn(metric),
		strings.ReplaceAll(lower, " ", ""),
		lower,
	}
	for _, cand := range candidates {
		for _, col := range t.columns {
			if col == cand {
				return col
			}
		}
	}
	for _, col := range t.columns {
		if strings.Contains(col, lower) || strings.Contains(lower, col) {
			return col
		}
	}
	return ""
}

// resolveByRowLabel handles long-format tables: find a text column whose
// cells contain the metric name, keep only the matching rows, and return the
// first value-bearing column.
func (t *table) resolveByRowLabel(metric string) (string, []map[string]interface{}) {
	lower := strings.ToLower(metric)
	for _, labelCol := range t.columns {
		var matched []map[string]interface{}
		for _, row := range t.rows {
			s, ok := row[labelCol].(string)
			if ok && strings.Contains(strings.ToLower(s), lower) {
				matched = append(matched, row)
			}
		}
		if len(matched) == 0 {
			continue
		}
		for _, valueCol := range t.columns {
			if valueCol == labelCol {
				continue
			}
			if strings.Contains(valueCol, "value") || strings.Contains(valueCol, "amount") || t.isNumericColumn(valueCol) {
				return valueCol, matched
			}
		}
	}
	return "", nil
}

func (t *table) isNumericColumn(col string) bool {
	for _, row := range t.rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		_, numeric := coerceNumeric(v)
		return numeric
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"01/02/2006",
}

// filterByDate keeps rows whose date column falls inside the range. Rows with
// unparseable dates are kept, matching a best-effort filter.
func filterByDate(columns []string, rows []map[string]interface{}, dates DateRange) []map[string]interface{} {
	if dates.From == "" && dates.To == "" {
		return rows
	}

	dateCol := ""
	for _, col := range columns {
		if strings.Contains(col, "date") || strings.Contains(col, "week") {
			dateCol = col
			break
		}
	}
	if dateCol == "" {
		return rows
	}

	from, fromOK := parseDate(dates.From)
	to, toOK := parseDate(dates.To)

	var out []map[string]interface{}
	for _, row := range rows {
		s, _ := row[dateCol].(string)
		d, ok := parseDate(s)
		if !ok {
			out = append(out, row)
			continue
		}
		if fromOK && d.Before(from) {
			continue
		}
		if toOK && d.After(to) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// coerceNumeric converts a cell to float64, tolerating currency symbols and
// thousands separators in string values.
func coerceNumeric(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		var b strings.Builder
		for _, r := range x {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				b.WriteRune(r)
			}
		}
		clean := b.String()
		if clean == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(clean, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
