/*
Copyright 2026 The Chainboot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package condition

import (
	"fmt"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokIdent
	tokNumber
	tokVersion
	tokString
	tokOp // comparison operator, literal text kept in val
)

type token struct {
	kind tokenKind
	val  string
	pos  int
}

// lexer is a hand-rolled scanner for the bundle condition grammar (spec.md
// §9, original_source/src/burn/engine/condition.cpp). There is no
// off-the-shelf parser in the example pack for this bespoke boolean/compare
// DSL, so the lexer and recursive-descent parser below are written directly
// against the standard library; see DESIGN.md for why this is the one
// component left on stdlib rather than a third-party parsing library.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return errors.Errorf("condition: %s (position %d)", fmt.Sprintf(format, args...), pos)
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// next returns the next token, advancing the lexer.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	b := l.src[l.pos]

	switch b {
	case '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	case '"':
		return l.lexString(start)
	}

	// Comparison operators, optionally prefixed with ~ for case-insensitive.
	if b == '~' || isOperatorStart(b) {
		return l.lexOperator(start)
	}

	if isDigit(b) {
		return l.lexNumber(start)
	}

	if b == 'v' || b == 'V' {
		if tok, ok, err := l.tryLexVersion(start); ok || err != nil {
			return tok, err
		}
	}

	if isIdentStart(b) {
		return l.lexIdentOrKeyword(start)
	}

	return token{}, l.errorf(start, "unexpected character %q", string(b))
}

func isOperatorStart(b byte) bool {
	switch b {
	case '=', '<', '>':
		return true
	}
	return false
}

func (l *lexer) lexOperator(start int) (token, error) {
	caseInsensitive := false
	if l.src[l.pos] == '~' {
		caseInsensitive = true
		l.pos++
		if l.pos >= len(l.src) {
			return token{}, l.errorf(start, "dangling ~")
		}
	}

	rest := l.src[l.pos:]
	candidates := []string{"<>", "<=", ">=", "><", "<<", ">>", "=", "<", ">"}
	for _, c := range candidates {
		if strings.HasPrefix(rest, c) {
			l.pos += len(c)
			val := c
			if caseInsensitive {
				val = "~" + c
			}
			return token{kind: tokOp, val: val, pos: start}, nil
		}
	}
	return token{}, l.errorf(start, "unrecognized operator starting %q", rest)
}

func (l *lexer) lexString(start int) (token, error) {
	l.pos++ // consume opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.errorf(start, "unterminated string literal")
		}
		b := l.src[l.pos]
		if b == '"' {
			// support "" as an escaped embedded quote
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '"' {
				sb.WriteByte('"')
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokString, val: sb.String(), pos: start}, nil
		}
		sb.WriteByte(b)
		l.pos++
	}
}

func (l *lexer) lexNumber(start int) (token, error) {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tokNumber, val: l.src[start:l.pos], pos: start}, nil
}

// tryLexVersion attempts to lex a `v1.2.3.4` version literal. Returns
// ok=false (no error) if the leading 'v' is actually the start of an
// identifier like "visible".
func (l *lexer) tryLexVersion(start int) (token, bool, error) {
	save := l.pos
	l.pos++ // consume 'v'/'V'
	if l.pos >= len(l.src) || !isDigit(l.src[l.pos]) {
		l.pos = save
		return token{}, false, nil
	}
	numStart := l.pos
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	// If what follows is still an identifier character, this was actually an
	// identifier beginning with 'v' followed by digits (e.g. "v1foo"); back
	// out and lex as an identifier instead.
	if l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos = save
		return token{}, false, nil
	}
	return token{kind: tokVersion, val: l.src[numStart:l.pos], pos: start}, true, nil
}

func (l *lexer) lexIdentOrKeyword(start int) (token, error) {
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	word := l.src[start:l.pos]
	switch strings.ToUpper(word) {
	case "AND":
		return token{kind: tokAnd, val: word, pos: start}, nil
	case "OR":
		return token{kind: tokOr, val: word, pos: start}, nil
	case "NOT":
		return token{kind: tokNot, val: word, pos: start}, nil
	}
	return token{kind: tokIdent, val: word, pos: start}, nil
}
