package sqlclass

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuotedIdent
	tokString
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string
	depth int
}

// is reports whether t is the unquoted keyword kw (case-insensitive).
func (t token) is(kw string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, kw)
}

// ident returns the identifier text with quotes removed.
func (t token) ident() (string, bool) {
	switch t.kind {
	case tokWord:
		return t.text, true
	case tokQuotedIdent:
		q := t.text[0]
		inner := t.text[1 : len(t.text)-1]
		return strings.ReplaceAll(inner, string([]byte{q, q}), string(q)), true
	}
	return "", false
}

// lex splits sql into tokens, dropping whitespace and comments. Tokens
// carry their parenthesis depth. Lexing stops at the first top-level
// semicolon so only the first statement is classified.
func lex(sql string) []token {
	var out []token
	depth := 0
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-', c == '#':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return out
			}
			i += end + 4
		case c == '\'' || c == '"' || c == '`':
			j := scanQuoted(sql, i)
			kind := tokQuotedIdent
			if c == '\'' {
				kind = tokString
			}
			out = append(out, token{kind: kind, text: sql[i:j], depth: depth})
			i = j
		case c == '(':
			out = append(out, token{kind: tokPunct, text: "(", depth: depth})
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			out = append(out, token{kind: tokPunct, text: ")", depth: depth})
			i++
		case c == ';':
			if depth == 0 {
				return out
			}
			i++
		case isWordByte(c):
			j := i
			for j < len(sql) && isWordByte(sql[j]) {
				j++
			}
			out = append(out, token{kind: tokWord, text: sql[i:j], depth: depth})
			i = j
		case unicode.IsSpace(rune(c)):
			i++
		default:
			out = append(out, token{kind: tokPunct, text: string(c), depth: depth})
			i++
		}
	}
	return out
}

// scanQuoted returns the index just past the quoted run starting at i.
// A doubled quote character is an escaped quote.
func scanQuoted(s string, i int) int {
	q := s[i]
	j := i + 1
	for j < len(s) {
		if s[j] == q {
			if j+1 < len(s) && s[j+1] == q {
				j += 2
				continue
			}
			return j + 1
		}
		if q == '\'' && s[j] == '\\' {
			j += 2
			continue
		}
		j++
	}
	return len(s)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
