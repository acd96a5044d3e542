package catalog

import (
	"sort"
	"strings"
	"unicode"

	"lakegate/internal/domain"
)

// Field weights for lexical scoring. Each field is credited at most once per
// model regardless of how many of its members match.
const (
	weightDescription = 10
	weightMetrics     = 5
	weightGrain       = 4
	weightDimensions  = 3
	weightDomain      = 2
	weightColumnDesc  = 2
)

// SearchHit is one scored catalog model.
type SearchHit struct {
	Model         *domain.CatalogModel `json:"model"`
	Score         int                  `json:"score"`
	MatchedFields []string             `json:"matched_fields"`
}

// Search scores every model in the document against a free-text query using
// field-weighted lexical matching and returns the models with strictly
// positive score, ordered score-descending with document order as the stable
// tie-break. It is a pure function: no side effects, never an error; an empty
// result is the normal "no match" outcome.
func Search(doc *domain.CatalogDocument, query string) []SearchHit {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	queryTokens := tokenize(queryLower)
	if len(queryTokens) == 0 {
		return nil
	}

	var hits []SearchHit
	for i := range doc.Models {
		m := &doc.Models[i]
		score := 0
		var matched []string

		if textMatches(m.Description, queryLower, queryTokens) {
			score += weightDescription
			matched = append(matched, "description")
		}
		if anyNameMatches(m.Metrics, queryTokens) {
			score += weightMetrics
			matched = append(matched, "metrics")
		}
		if anyNameMatches(m.Dimensions, queryTokens) {
			score += weightDimensions
			matched = append(matched, "dimensions")
		}
		if substringMatches(m.Grain, queryLower, queryTokens) {
			score += weightGrain
			matched = append(matched, "grain")
		}
		if substringMatches(m.Domain, queryLower, queryTokens) {
			score += weightDomain
			matched = append(matched, "domain")
		}
		if anyColumnDescMatches(m.Columns, queryTokens) {
			score += weightColumnDesc
			matched = append(matched, "columns")
		}

		if score > 0 {
			hits = append(hits, SearchHit{Model: m, Score: score, MatchedFields: matched})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits
}

// textMatches reports a description hit: the whole query as a substring, or
// any query token appearing as a word of the text.
func textMatches(text, queryLower string, queryTokens []string) bool {
	if text == "" {
		return false
	}
	textLower := strings.ToLower(text)
	if strings.Contains(textLower, queryLower) {
		return true
	}
	return overlaps(tokenize(textLower), queryTokens)
}

// substringMatches reports a hit for short labels such as grain and domain:
// the label appearing inside the query, or sharing a token with it.
func substringMatches(label, queryLower string, queryTokens []string) bool {
	if label == "" {
		return false
	}
	labelLower := strings.ToLower(label)
	if strings.Contains(queryLower, labelLower) {
		return true
	}
	return overlaps(tokenize(labelLower), queryTokens)
}

func anyNameMatches(names []string, queryTokens []string) bool {
	for _, name := range names {
		if overlaps(tokenize(strings.ToLower(name)), queryTokens) {
			return true
		}
	}
	return false
}

func anyColumnDescMatches(columns map[string]domain.ColumnSpec, queryTokens []string) bool {
	for _, spec := range columns {
		if spec.Description == "" {
			continue
		}
		if overlaps(tokenize(strings.ToLower(spec.Description)), queryTokens) {
			return true
		}
	}
	return false
}

func overlaps(tokens, queryTokens []string) bool {
	for _, t := range tokens {
		for _, q := range queryTokens {
			if t == q {
				return true
			}
		}
	}
	return false
}

// tokenize splits lowercased text into alphanumeric tokens, dropping short
// stopword-like fragments that would match everything.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		out = append(out, f)
	}
	return out
}
