// Package sexpr implements the compiler's alternate S-expression source
// surface (spec.md §4.4), selected by the ".esx" file extension. It produces
// the same github.com/hassan/esc/internal/ast tree the keyword/emoji parser
// does; internal/codegen never knows which surface built the tree it walks.
//
// The surface is a small parenthesized-prefix grammar: declaration heads
// fn/st/ext/enum/use, statement heads by leading symbol (= : ! += if @ ...),
// and expression heads by operator symbol or, in head position, a function
// call. This file implements the tokenizer; datum.go reads tokens into a
// generic parenthesized tree, and parser.go transduces that tree into ast
// nodes.
package sexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hassan/esc/internal/lexer"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokSymbol
	tokInt
	tokFloat
	tokString
)

type token struct {
	kind  tokenKind
	text  string
	ival  int64
	fval  float64
	sval  []byte
	pos   lexer.Position
}

// tokenize scans src into a flat token stream. Unlike the keyword lexer,
// whitespace (including newlines) is never significant here — the
// parenthesized structure alone determines grouping.
func tokenize(src, filename string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	n := len(runes)
	line, col := 1, 1
	i := 0

	advance := func() rune {
		r := runes[i]
		i++
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		return r
	}

	pos := func() lexer.Position { return lexer.Position{Filename: filename, Line: line, Column: col} }

	for i < n {
		r := runes[i]

		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			advance()
			continue
		}

		if r == '/' && i+1 < n && runes[i+1] == '/' {
			for i < n && runes[i] != '\n' {
				advance()
			}
			continue
		}

		start := pos()

		if r == '(' {
			advance()
			toks = append(toks, token{kind: tokLParen, text: "(", pos: start})
			continue
		}
		if r == ')' {
			advance()
			toks = append(toks, token{kind: tokRParen, text: ")", pos: start})
			continue
		}

		if r == '"' {
			advance()
			var buf []byte
			for i < n && runes[i] != '"' {
				c := advance()
				if c == '\\' && i < n {
					e := advance()
					switch e {
					case 'n':
						buf = append(buf, '\n')
					case 't':
						buf = append(buf, '\t')
					case '\\':
						buf = append(buf, '\\')
					case '"':
						buf = append(buf, '"')
					case '0':
						buf = append(buf, 0)
					case 'r':
						buf = append(buf, '\r')
					default:
						buf = append(buf, byte(e))
					}
					continue
				}
				buf = append(buf, []byte(string(c))...)
			}
			if i >= n {
				return nil, fmt.Errorf("%s: unterminated string literal", start.String())
			}
			advance() // closing quote
			toks = append(toks, token{kind: tokString, sval: buf, pos: start})
			continue
		}

		// Atom: a run of characters up to the next paren, quote, whitespace,
		// or line comment.
		var b strings.Builder
		for i < n {
			c := runes[i]
			if c == '(' || c == ')' || c == '"' || c == ' ' || c == '\t' || c == '\r' || c == '\n' {
				break
			}
			if c == '/' && i+1 < n && runes[i+1] == '/' {
				break
			}
			b.WriteRune(advance())
		}
		text := b.String()
		if text == "" {
			return nil, fmt.Errorf("%s: unexpected character %q", start.String(), r)
		}

		if ival, fval, isFloat, ok := parseNumber(text); ok {
			if isFloat {
				toks = append(toks, token{kind: tokFloat, text: text, fval: fval, pos: start})
			} else {
				toks = append(toks, token{kind: tokInt, text: text, ival: ival, pos: start})
			}
			continue
		}

		toks = append(toks, token{kind: tokSymbol, text: text, pos: start})
	}

	toks = append(toks, token{kind: tokEOF, pos: pos()})
	return toks, nil
}

// parseNumber recognizes integer and float atoms: an optional leading '-',
// an optional "0x" hex prefix (integers only), and a '.'-separated
// fractional part marking a float — the same two literal shapes spec.md
// §4.2 describes for the keyword surface's lexer.
func parseNumber(text string) (ival int64, fval float64, isFloat bool, ok bool) {
	s := text
	if s == "" || s == "-" || s == "+" {
		return 0, 0, false, false
	}
	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, 0, false, false
	}
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		v, err := strconv.ParseInt(s[2:], 16, 64)
		if err != nil {
			return 0, 0, false, false
		}
		if neg {
			v = -v
		}
		return v, 0, false, true
	}

	hasDigit := false
	hasDot := false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case c == '.' && !hasDot:
			hasDot = true
		default:
			return 0, 0, false, false
		}
	}
	if !hasDigit {
		return 0, 0, false, false
	}
	if hasDot {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, 0, false, false
		}
		if neg {
			v = -v
		}
		return 0, v, true, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, 0, false, false
	}
	if neg {
		v = -v
	}
	return v, 0, false, true
}
