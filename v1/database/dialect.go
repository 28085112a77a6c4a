package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the statements the workbench generates on its own.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectMySQL
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	default:
		return "unknown"
	}
}

// QuoteIdent quotes a single identifier, doubling embedded quote characters.
func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedName quotes and joins schema and table.
func (d Dialect) QualifiedName(ref TableRef) string {
	if ref.Schema == "" {
		return d.QuoteIdent(ref.Table)
	}
	return d.QuoteIdent(ref.Schema) + "." + d.QuoteIdent(ref.Table)
}

// Placeholder returns the bind parameter marker for the n-th argument (1-based).
func (d Dialect) Placeholder(n int) string {
	if d == DialectMySQL {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// BrowseQuery selects a page of ref. Callers pass limit+1 to detect a next page.
func (d Dialect) BrowseQuery(ref TableRef, limit, offset int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", d.QualifiedName(ref), limit, offset)
}

// UpdateCellQuery renders an UPDATE of one column identified by primary key.
// Arguments are the new value followed by the key values in key order.
func (d Dialect) UpdateCellQuery(ref TableRef, column string, primaryKey []string) string {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(d.QualifiedName(ref))
	b.WriteString(" SET ")
	b.WriteString(d.QuoteIdent(column))
	b.WriteString(" = ")
	b.WriteString(d.Placeholder(1))
	b.WriteString(" WHERE ")
	d.writeKeyPredicate(&b, primaryKey, 2)
	return b.String()
}

// DeleteRowQuery renders a DELETE of one row identified by primary key.
func (d Dialect) DeleteRowQuery(ref TableRef, primaryKey []string) string {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(d.QualifiedName(ref))
	b.WriteString(" WHERE ")
	d.writeKeyPredicate(&b, primaryKey, 1)
	return b.String()
}

func (d Dialect) writeKeyPredicate(b *strings.Builder, primaryKey []string, firstArg int) {
	for i, col := range primaryKey {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(d.QuoteIdent(col))
		b.WriteString(" = ")
		b.WriteString(d.Placeholder(firstArg + i))
	}
}
