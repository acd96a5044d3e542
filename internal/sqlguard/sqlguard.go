// Package sqlguard is the safety core of the gateway: it classifies a
// candidate SQL string as a read-only, single-statement, catalog-scoped
// aggregation query and resolves every table and column it references against
// the allowlist, rejecting everything else.
//
// It deliberately does not build a full AST. Classification is a conservative
// tokenizer-plus-denylist pipeline: the presence of a mutating keyword
// anywhere in the statement is disqualifying, accepting false positives (a
// column literally named "create") in exchange for never missing a mutating
// statement. Each gate is an independent predicate applied in a fixed order;
// the first failure wins and nothing is silently downgraded.
package sqlguard

import (
	"regexp"
	"sort"
	"strings"

	"lakegate/internal/catalog"
	"lakegate/internal/domain"
)

// forbiddenKeywords disqualify a statement wherever they appear as a whole
// word, case-insensitively.
var forbiddenKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "create", "truncate",
	"optimize", "attach", "detach", "grant", "revoke", "system", "kill",
	"set", "use", "show", "describe", "explain",
}

// structuralKeywords are SQL syntax words discarded during column extraction.
var structuralKeywords = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "group": {}, "by": {}, "order": {},
	"limit": {}, "offset": {}, "with": {}, "as": {}, "and": {}, "or": {},
	"not": {}, "in": {}, "is": {}, "null": {}, "asc": {}, "desc": {},
	"distinct": {}, "having": {}, "case": {}, "when": {}, "then": {},
	"else": {}, "end": {}, "on": {}, "join": {}, "inner": {}, "left": {},
	"right": {}, "full": {}, "cross": {}, "between": {}, "like": {},
	"union": {}, "all": {},
}

// functionNames are common aggregate and date functions discarded during
// column extraction.
var functionNames = map[string]struct{}{
	"sum": {}, "avg": {}, "min": {}, "max": {}, "count": {}, "round": {},
	"floor": {}, "ceil": {}, "abs": {}, "coalesce": {}, "nullif": {},
	"cast": {}, "todate": {}, "todatetime": {}, "tostartofweek": {},
	"tostartofmonth": {}, "now": {}, "today": {}, "date_trunc": {},
	"extract": {},
}

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	stringLitRe    = regexp.MustCompile(`'(?:[^']|'')*'`)
	wildcardRe     = regexp.MustCompile(`(?i)\bselect\s+(?:distinct\s+)?\*`)
	wordRe         = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

	// Dotted, optionally quoted identifier sequences: db.t, `db`.`t`, "db"."t".
	identRe     = regexp.MustCompile("[`\"]?[A-Za-z_][A-Za-z0-9_]*[`\"]?(?:\\.[`\"]?[A-Za-z_][A-Za-z0-9_]*[`\"]?)*")
	fromClauseRe = regexp.MustCompile("(?i)\\bfrom\\s+([`\"]?[A-Za-z_][A-Za-z0-9_]*[`\"]?(?:\\.[`\"]?[A-Za-z_][A-Za-z0-9_]*[`\"]?)*)")
	joinClauseRe = regexp.MustCompile("(?i)\\bjoin\\s+([`\"]?[A-Za-z_][A-Za-z0-9_]*[`\"]?(?:\\.[`\"]?[A-Za-z_][A-Za-z0-9_]*[`\"]?)*)")
)

// Normalize strips SQL comments, collapses whitespace, and trims the result.
func Normalize(sql string) string {
	out := lineCommentRe.ReplaceAllString(sql, " ")
	out = blockCommentRe.ReplaceAllString(out, " ")
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Validate runs the candidate SQL through every safety gate in order and, on
// success, returns the matched table identity plus the set of columns the
// query references. Any failure is a *domain.SQLRejectedError; the original
// SQL string must never be treated as safe without one of these results.
func Validate(sql string, allow *catalog.Allowlist) (*domain.ValidatedQuery, error) {
	// Gate 1: normalize; an empty statement has nothing to validate.
	normalized := Normalize(sql)
	if normalized == "" {
		return nil, domain.ErrSQLRejected(domain.RejectEmpty, "empty query")
	}

	// Gate 2: single statement only. Strict: no trailing-separator exception.
	if strings.Contains(normalized, ";") {
		return nil, domain.ErrSQLRejected(domain.RejectMultiStatement, "multi-statement queries are not allowed")
	}

	// Gate 3: read-only shape.
	lower := strings.ToLower(normalized)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return nil, domain.ErrSQLRejected(domain.RejectNotReadOnly, "only SELECT queries are allowed")
	}

	// Gate 4: forbidden-keyword scan, whole words, anywhere in the statement.
	if kw := findForbiddenKeyword(lower); kw != "" {
		return nil, domain.ErrSQLRejected(domain.RejectForbiddenKeyword, "forbidden keyword %q", kw)
	}

	// Gate 5: wildcard projection would make column allowlisting meaningless.
	if wildcardRe.MatchString(normalized) {
		return nil, domain.ErrSQLRejected(domain.RejectWildcard, "wildcard projection is not allowed, select explicit columns")
	}

	// String literals carry no identifiers; blank them before extraction.
	body := stringLitRe.ReplaceAllString(normalized, "''")

	// Gate 6: table extraction. Every FROM and JOIN target is resolved, not
	// only the first: a join against a non-allowlisted table is a structural
	// rejection here, not something left to the column gate.
	fromTargets := fromClauseRe.FindAllStringSubmatch(body, -1)
	if len(fromTargets) == 0 {
		return nil, domain.ErrSQLRejected(domain.RejectNoFrom, "no FROM clause found")
	}
	var targets []string
	for _, m := range fromTargets {
		targets = append(targets, m[1])
	}
	for _, m := range joinClauseRe.FindAllStringSubmatch(body, -1) {
		targets = append(targets, m[1])
	}

	// Gate 7: table allowlist check, quote-insensitive.
	var primary string
	allowedCols := map[string]struct{}{}
	var tableParts [][]string
	for i, target := range targets {
		canonical, cols, ok := allow.Lookup(target)
		if !ok {
			return nil, domain.ErrSQLRejected(domain.RejectTableNotAllowed, "table %q is not allowlisted", target)
		}
		if i == 0 {
			primary = canonical
		}
		for c := range cols {
			allowedCols[c] = struct{}{}
		}
		tableParts = append(tableParts, splitIdent(target))
	}

	// Gate 8: extract referenced-column candidates from the body.
	candidates := extractColumns(body, tableParts)

	// Gate 9: every candidate must be allowed for the matched tables.
	for _, col := range candidates {
		if _, ok := allowedCols[col]; !ok {
			return nil, domain.ErrSQLRejected(domain.RejectColumnNotAllowed, "column %q is not allowlisted for %s", col, primary)
		}
	}

	return &domain.ValidatedQuery{Table: primary, ReferencedColumns: candidates}, nil
}

// findForbiddenKeyword returns the first denylisted whole word of the
// lowercased statement, or "".
func findForbiddenKeyword(lower string) string {
	words := wordRe.FindAllString(lower, -1)
	for _, w := range words {
		for _, kw := range forbiddenKeywords {
			if w == kw {
				return kw
			}
		}
	}
	return ""
}

// extractColumns tokenizes the statement body into identifier sequences and
// reduces them to referenced-column candidates: structural keywords, function
// names, forbidden keywords, and references to the matched tables themselves
// are discarded, and each surviving token contributes its last dotted segment.
func extractColumns(body string, tableParts [][]string) []string {
	seen := map[string]struct{}{}
	var out []string

	for _, tok := range identRe.FindAllString(body, -1) {
		parts := splitIdent(tok)
		if len(parts) == 1 {
			lower := strings.ToLower(parts[0])
			if _, ok := structuralKeywords[lower]; ok {
				continue
			}
			if _, ok := functionNames[lower]; ok {
				continue
			}
			if isForbidden(lower) {
				continue
			}
		}
		if matchesAnyTable(parts, tableParts) {
			continue
		}
		col := parts[len(parts)-1]
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		out = append(out, col)
	}

	sort.Strings(out)
	return out
}

func isForbidden(lower string) bool {
	for _, kw := range forbiddenKeywords {
		if lower == kw {
			return true
		}
	}
	return false
}

// splitIdent breaks a dotted identifier into unquoted parts.
func splitIdent(ident string) []string {
	raw := strings.Split(ident, ".")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, strings.Trim(p, "`\""))
	}
	return parts
}

// matchesAnyTable reports whether the token's dotted parts are a contiguous
// prefix or suffix of one of the matched table identities, so the table name
// itself is never mistaken for a column reference.
func matchesAnyTable(tokenParts []string, tables [][]string) bool {
	for _, table := range tables {
		if isPrefix(tokenParts, table) || isSuffix(tokenParts, table) {
			return true
		}
	}
	return false
}

func isPrefix(parts, table []string) bool {
	if len(parts) > len(table) {
		return false
	}
	for i := range parts {
		if !strings.EqualFold(parts[i], table[i]) {
			return false
		}
	}
	return true
}

func isSuffix(parts, table []string) bool {
	if len(parts) > len(table) {
		return false
	}
	offset := len(table) - len(parts)
	for i := range parts {
		if !strings.EqualFold(parts[i], table[offset+i]) {
			return false
		}
	}
	return true
}
