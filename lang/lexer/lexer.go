// Some of the lexer package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lexer implements the Tokenizer described in spec.md §4.1: a lazy
// stream of tokens with source positions and literal payloads, scanned
// directly from UTF-8-ish source bytes.
package lexer

import (
	"fmt"
	"go/scanner"
	gotoken "go/token"
	"strings"
	"unicode/utf8"

	"github.com/pvmlang/pvm/lang/token"
)

type (
	// Error and ErrorList are the diagnostic types produced by the lexer, the
	// compiler, and the emitter. Reusing go/scanner's well-tested
	// position-sorted error list means the core never needs its own
	// diagnostic formatting or sorting code.
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

// PrintError is a utility function that prints a list of errors to w, one
// error per line, if the err parameter is an ErrorList. Otherwise it prints
// the err string.
var PrintError = scanner.PrintError

// TokenAndValue combines a token kind with its literal payload, the unit
// produced by Next.
type TokenAndValue struct {
	Token token.Token
	Value token.Value
	Pos   gotoken.Position
}

// Lexer tokenizes a single source file. It owns two cursors into the source:
// the offset where the current token started, and the current scan offset.
type Lexer struct {
	filename string
	src      []byte

	off, line, lineStart int // current scan position
	startOff              int
	cur                   rune // character at src[off], or -1 at EOF
	curSize               int

	errs ErrorList
}

const eof = -1

// New creates a Lexer over src, identified as filename in diagnostics.
func New(filename string, src []byte) *Lexer {
	l := &Lexer{filename: filename, src: src, line: 1}
	l.off, l.lineStart = 0, 0
	l.readRune()
	return l
}

// Errors returns the accumulated lexical errors, sorted by position.
func (l *Lexer) Errors() ErrorList {
	errs := append(ErrorList(nil), l.errs...)
	errs.Sort()
	return errs
}

func (l *Lexer) readRune() {
	if l.off >= len(l.src) {
		l.cur, l.curSize = eof, 0
		return
	}
	r, sz := utf8.DecodeRune(l.src[l.off:])
	if r == utf8.RuneError && sz <= 1 {
		// treat invalid UTF-8 as a single Latin-1-ish byte, matching the
		// "UTF-8-ish" tolerance required by spec.md §4.1.
		r, sz = rune(l.src[l.off]), 1
	}
	l.cur, l.curSize = r, sz
}

func (l *Lexer) advance() {
	if l.cur == '\n' {
		l.line++
		l.lineStart = l.off + l.curSize
	}
	l.off += l.curSize
	l.readRune()
}

func (l *Lexer) col() int { return l.off - l.lineStart + 1 }

func (l *Lexer) pos(off, line, lineStart int) gotoken.Position {
	return gotoken.Position{Filename: l.filename, Offset: off, Line: line, Column: off - lineStart + 1}
}

func (l *Lexer) errorf(off, line, lineStart int, format string, args ...interface{}) {
	l.errs.Add(l.pos(off, line, lineStart), fmt.Sprintf(format, args...))
}

// skipSpaceAndComments advances past whitespace, line comments ("// ...
// EOL") and block comments ("(* ... *)" and "{ ... }"). Per spec.md §4.1,
// block comments do not nest.
func (l *Lexer) skipSpaceAndComments() {
	for {
		switch l.cur {
		case ' ', '\t', '\r', '\n':
			l.advance()
			continue
		case '/':
			if l.peekByte() == '/' {
				for l.cur != '\n' && l.cur != eof {
					l.advance()
				}
				continue
			}
		case '(':
			if l.peekByte() == '*' {
				l.skipBlockComment("*)")
				continue
			}
		case '{':
			l.skipBlockComment("}")
			continue
		}
		return
	}
}

// peekByte returns the byte following the current rune without consuming
// anything; used only to disambiguate two-character comment openers.
func (l *Lexer) peekByte() byte {
	next := l.off + l.curSize
	if next >= len(l.src) {
		return 0
	}
	return l.src[next]
}

func (l *Lexer) skipBlockComment(closer string) {
	startOff, startLine, startLineStart := l.off, l.line, l.lineStart
	l.advance() // consume opener's first char
	if closer == "*)" {
		l.advance() // consume '*'
	}
	for {
		if l.cur == eof {
			l.errorf(startOff, startLine, startLineStart, "unterminated comment")
			return
		}
		if closer == "*)" && l.cur == '*' && l.peekByte() == ')' {
			l.advance()
			l.advance()
			return
		}
		if closer == "}" && l.cur == '}' {
			l.advance()
			return
		}
		l.advance()
	}
}

// Peek returns the next token without consuming it: spec.md §4.1 names this
// as one of exactly two Tokenizer operations, alongside Next. It snapshots
// the scan cursor, scans one token ahead with Next, then rewinds the cursor
// so the lookahead token is scanned again (and returned) the next time Next
// is actually called. Any diagnostic raised while scanning the lookahead
// token is discarded here; it is re-raised on the real scan.
func (l *Lexer) Peek() TokenAndValue {
	off, line, lineStart, startOff := l.off, l.line, l.lineStart, l.startOff
	cur, curSize := l.cur, l.curSize
	nerrs := len(l.errs)

	tv := l.Next()

	l.off, l.line, l.lineStart, l.startOff = off, line, lineStart, startOff
	l.cur, l.curSize = cur, curSize
	l.errs = l.errs[:nerrs]

	return tv
}

// Next scans and returns the next token, its literal payload, and its
// position.
func (l *Lexer) Next() TokenAndValue {
	l.skipSpaceAndComments()

	startOff, startLine, startLineStart := l.off, l.line, l.lineStart
	l.startOff = startOff
	pos := l.pos(startOff, startLine, startLineStart)

	if l.cur == eof {
		return TokenAndValue{Token: token.EOF, Pos: pos}
	}

	ch := l.cur
	switch {
	case isIdentStart(ch):
		return l.identifier(pos)
	case isDecimal(ch):
		return l.number(pos)
	}

	switch ch {
	case '\'', '#':
		return l.charOrString(pos)
	case '$', '&', '%':
		if ch == '%' && l.peekByte() == '=' {
			l.advance()
			l.advance()
			return TokenAndValue{Token: token.PCT_EQ, Pos: pos}
		}
		if ch == '%' && !isBinDigit(l.peekByte()) {
			// bare '%' is not a valid operator in this dialect
			l.advance()
			l.errorf(startOff, startLine, startLineStart, "unknown character %q", ch)
			return TokenAndValue{Token: token.ILLEGAL, Pos: pos}
		}
		return l.number(pos)
	case '.':
		l.advance()
		if l.cur == '.' {
			l.advance()
			return TokenAndValue{Token: token.DOTDOT, Pos: pos}
		}
		return TokenAndValue{Token: token.DOT, Pos: pos}
	case '+':
		l.advance()
		if l.cur == '=' {
			l.advance()
			return TokenAndValue{Token: token.PLUS_EQ, Pos: pos}
		}
		return TokenAndValue{Token: token.PLUS, Pos: pos}
	case '-':
		l.advance()
		if l.cur == '=' {
			l.advance()
			return TokenAndValue{Token: token.MINUS_EQ, Pos: pos}
		}
		return TokenAndValue{Token: token.MINUS, Pos: pos}
	case '*':
		l.advance()
		if l.cur == '=' {
			l.advance()
			return TokenAndValue{Token: token.STAR_EQ, Pos: pos}
		}
		return TokenAndValue{Token: token.STAR, Pos: pos}
	case '/':
		l.advance()
		if l.cur == '=' {
			l.advance()
			return TokenAndValue{Token: token.SLASH_EQ, Pos: pos}
		}
		return TokenAndValue{Token: token.SLASH, Pos: pos}
	case ':':
		l.advance()
		if l.cur == '=' {
			l.advance()
			return TokenAndValue{Token: token.ASSIGN, Pos: pos}
		}
		return TokenAndValue{Token: token.COLON, Pos: pos}
	case '=':
		l.advance()
		return TokenAndValue{Token: token.EQ, Pos: pos}
	case '<':
		l.advance()
		switch l.cur {
		case '>':
			l.advance()
			return TokenAndValue{Token: token.NEQ, Pos: pos}
		case '=':
			l.advance()
			return TokenAndValue{Token: token.LE, Pos: pos}
		case '<':
			l.advance()
			return TokenAndValue{Token: token.LTLT, Pos: pos}
		}
		return TokenAndValue{Token: token.LT, Pos: pos}
	case '>':
		l.advance()
		switch l.cur {
		case '=':
			l.advance()
			return TokenAndValue{Token: token.GE, Pos: pos}
		case '>':
			l.advance()
			return TokenAndValue{Token: token.GTGT, Pos: pos}
		}
		return TokenAndValue{Token: token.GT, Pos: pos}
	case '^':
		l.advance()
		return TokenAndValue{Token: token.CARET, Pos: pos}
	case '@':
		l.advance()
		return TokenAndValue{Token: token.AT, Pos: pos}
	case ',':
		l.advance()
		return TokenAndValue{Token: token.COMMA, Pos: pos}
	case ';':
		l.advance()
		return TokenAndValue{Token: token.SEMI, Pos: pos}
	case '(':
		l.advance()
		return TokenAndValue{Token: token.LPAREN, Pos: pos}
	case ')':
		l.advance()
		return TokenAndValue{Token: token.RPAREN, Pos: pos}
	case '[':
		l.advance()
		return TokenAndValue{Token: token.LBRACK, Pos: pos}
	case ']':
		l.advance()
		return TokenAndValue{Token: token.RBRACK, Pos: pos}
	}

	l.advance()
	l.errorf(startOff, startLine, startLineStart, "unknown character %q", ch)
	return TokenAndValue{Token: token.ILLEGAL, Pos: pos}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isIdentCont(ch rune) bool {
	return isIdentStart(ch) || isDecimal(ch)
}

func (l *Lexer) identifier(pos gotoken.Position) TokenAndValue {
	start := l.off
	for isIdentCont(l.cur) {
		l.advance()
	}
	lit := string(l.src[start:l.off])
	upper := strings.ToUpper(lit)
	if t, ok := token.Lookup(upper); ok {
		return TokenAndValue{Token: t, Value: token.Value{Str: lit}, Pos: pos}
	}
	return TokenAndValue{Token: token.IDENT, Value: token.Value{Str: lit}, Pos: pos}
}

// Scan tokenizes the entire source into a slice, terminated by an EOF token.
// It is a convenience wrapper for callers (notably the compiler) that prefer
// to pull from a materialized slice rather than call Next repeatedly.
func Scan(filename string, src []byte) ([]TokenAndValue, ErrorList) {
	l := New(filename, src)
	var toks []TokenAndValue
	for {
		tv := l.Next()
		toks = append(toks, tv)
		if tv.Token == token.EOF {
			break
		}
	}
	return toks, l.Errors()
}
