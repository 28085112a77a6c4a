// Package sqlclass classifies SQL text without parsing it: which kind of
// statement it is, which single table it reads or writes, and whether its
// result can be edited in place. Only the first statement of a script is
// considered; comments, string literals and parenthesised sub-queries are
// skipped.
package sqlclass

import (
	"strings"
)

// QueryType is the kind of the first statement.
type QueryType int

const (
	Other QueryType = iota
	Select
	Insert
	Update
	Delete
	CreateTable
	DropTable
	AlterTable
)

func (q QueryType) String() string {
	switch q {
	case Select:
		return "select"
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case CreateTable:
		return "create_table"
	case DropTable:
		return "drop_table"
	case AlterTable:
		return "alter_table"
	default:
		return "other"
	}
}

// ReturnsRows reports whether statements of this type produce a result set.
func (q QueryType) ReturnsRows() bool {
	return q == Select || q == Other
}

// Modifies reports whether the statement changes data or schema.
func (q QueryType) Modifies() bool {
	return q != Select && q != Other
}

// DetectQueryType classifies the first statement in sql.
func DetectQueryType(sql string) QueryType {
	qt, _ := classify(lex(sql))
	return qt
}

// ExtractTableName returns the table a single-table statement reads from or
// writes to, as "schema.table" or "table" with quotes removed.
func ExtractTableName(sql string) (string, bool) {
	toks := lex(sql)
	qt, at := classify(toks)

	var start int
	switch qt {
	case Select:
		start = findTopLevel(toks, at, "FROM")
	case Delete:
		start = findTopLevel(toks, at, "FROM")
	case Insert:
		start = findTopLevel(toks, at, "INTO")
	case Update:
		start = at + 1
		for start < len(toks) && (toks[start].is("ONLY") || toks[start].is("LOW_PRIORITY") || toks[start].is("IGNORE")) {
			start++
		}
		start--
	case CreateTable, DropTable, AlterTable:
		start = findTopLevel(toks, at, "TABLE")
		for start >= 0 && start+1 < len(toks) &&
			(toks[start+1].is("IF") || toks[start+1].is("NOT") || toks[start+1].is("EXISTS") || toks[start+1].is("ONLY")) {
			start++
		}
	default:
		return "", false
	}
	if start < 0 {
		return "", false
	}

	name, _, ok := qualifiedName(toks, start+1)
	return name, ok
}

// HasReturning reports whether a data-modifying statement ends in a
// top-level RETURNING clause and so produces a result set. Keywords inside
// string literals, quoted identifiers and sub-queries do not count.
func HasReturning(sql string) bool {
	toks := lex(sql)
	qt, at := classify(toks)
	switch qt {
	case Insert, Update, Delete:
		return findTopLevel(toks, at+1, "RETURNING") >= 0
	}
	return false
}

// IsEditable reports whether the result of sql maps one to one onto rows of
// a single table: a plain SELECT from one table without joins, grouping,
// set operations, DISTINCT or aggregate calls.
func IsEditable(sql string) bool {
	toks := lex(sql)
	qt, at := classify(toks)
	if qt != Select || at < 0 || !toks[at].is("SELECT") || at != 0 {
		return false
	}

	from := findTopLevel(toks, at, "FROM")
	if from < 0 {
		return false
	}

	for i := at + 1; i < from; i++ {
		t := toks[i]
		if t.depth != 0 {
			continue
		}
		if t.is("DISTINCT") {
			return false
		}
		if t.kind == tokWord && i+1 < len(toks) && toks[i+1].text == "(" && isAggregate(t.text) {
			return false
		}
	}

	_, next, ok := qualifiedName(toks, from+1)
	if !ok {
		return false
	}

	// optional alias
	if next < len(toks) && toks[next].is("AS") {
		next++
	}
	if next < len(toks) && toks[next].kind == tokWord && !isClauseKeyword(toks[next].text) {
		next++
	}

	for i := next; i < len(toks); i++ {
		t := toks[i]
		if t.depth != 0 {
			continue
		}
		switch {
		case t.text == ",":
			return false
		case t.kind == tokWord && isBlockingKeyword(t.text):
			return false
		}
	}
	return true
}

// classify returns the statement type and the index of its leading keyword.
func classify(toks []token) (QueryType, int) {
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		// a statement may be wrapped in parentheses
		if t.text == "(" {
			continue
		}
		if t.kind != tokWord {
			return Other, i
		}
		switch strings.ToUpper(t.text) {
		case "SELECT", "VALUES", "TABLE":
			return Select, i
		case "WITH":
			return classifyWith(toks, i)
		case "INSERT", "REPLACE":
			return Insert, i
		case "UPDATE":
			return Update, i
		case "DELETE":
			return Delete, i
		case "CREATE":
			if hasTableKeyword(toks, i) {
				return CreateTable, i
			}
			return Other, i
		case "DROP":
			if hasTableKeyword(toks, i) {
				return DropTable, i
			}
			return Other, i
		case "ALTER":
			if hasTableKeyword(toks, i) {
				return AlterTable, i
			}
			return Other, i
		default:
			return Other, i
		}
	}
	return Other, -1
}

// classifyWith skips the CTE list and classifies the main statement.
func classifyWith(toks []token, at int) (QueryType, int) {
	for i := at + 1; i < len(toks); i++ {
		t := toks[i]
		if t.depth != 0 || t.kind != tokWord {
			continue
		}
		switch strings.ToUpper(t.text) {
		case "SELECT", "VALUES", "TABLE":
			return Select, i
		case "INSERT":
			return Insert, i
		case "UPDATE":
			return Update, i
		case "DELETE":
			return Delete, i
		}
	}
	return Other, at
}

// hasTableKeyword checks for CREATE [TEMP|TEMPORARY|UNLOGGED|GLOBAL|LOCAL] TABLE.
func hasTableKeyword(toks []token, at int) bool {
	for i := at + 1; i < len(toks) && i <= at+3; i++ {
		switch strings.ToUpper(toks[i].text) {
		case "TABLE":
			return true
		case "TEMP", "TEMPORARY", "UNLOGGED", "GLOBAL", "LOCAL", "OR", "REPLACE":
			continue
		default:
			return false
		}
	}
	return false
}

func findTopLevel(toks []token, from int, kw string) int {
	if from < 0 {
		return -1
	}
	for i := from; i < len(toks); i++ {
		if toks[i].depth == 0 && toks[i].is(kw) {
			return i
		}
	}
	return -1
}

// qualifiedName reads ident(.ident)* starting at i and returns the joined
// name and the index after it.
func qualifiedName(toks []token, i int) (string, int, bool) {
	if i >= len(toks) || toks[i].depth != 0 {
		return "", i, false
	}
	if toks[i].kind == tokWord && isClauseKeyword(toks[i].text) {
		return "", i, false
	}
	var parts []string
	for i < len(toks) {
		part, ok := toks[i].ident()
		if !ok {
			break
		}
		parts = append(parts, part)
		i++
		if i+1 < len(toks) && toks[i].text == "." {
			i++
			continue
		}
		break
	}
	if len(parts) == 0 {
		return "", i, false
	}
	return strings.Join(parts, "."), i, true
}

func isAggregate(word string) bool {
	switch strings.ToUpper(word) {
	case "COUNT", "SUM", "AVG", "MIN", "MAX", "ARRAY_AGG", "STRING_AGG", "GROUP_CONCAT", "JSON_AGG", "BOOL_AND", "BOOL_OR":
		return true
	}
	return false
}

func isClauseKeyword(word string) bool {
	switch strings.ToUpper(word) {
	case "WHERE", "ORDER", "LIMIT", "OFFSET", "FETCH", "FOR", "GROUP", "HAVING",
		"JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL", "UNION",
		"INTERSECT", "EXCEPT", "WINDOW", "LATERAL", "SELECT", "ON", "USING":
		return true
	}
	return false
}

func isBlockingKeyword(word string) bool {
	switch strings.ToUpper(word) {
	case "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL",
		"GROUP", "HAVING", "UNION", "INTERSECT", "EXCEPT", "WINDOW", "LATERAL":
		return true
	}
	return false
}
