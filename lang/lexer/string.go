package lexer

import (
	gotoken "go/token"
	"unicode/utf8"

	"github.com/pvmlang/pvm/lang/token"
)

// charOrString scans a run of quoted segments ('...') and numeric escape
// groups (#N) concatenated with no separator, per spec.md §4.1. A run that
// yields exactly one byte produces a CHAR token; otherwise it produces a
// STRING token.
func (l *Lexer) charOrString(pos gotoken.Position) TokenAndValue {
	startOff, startLine, startLineStart := l.off, l.line, l.lineStart
	var out []byte

	for l.cur == '\'' || l.cur == '#' {
		switch l.cur {
		case '\'':
			seg, ok := l.quotedSegment()
			if !ok {
				l.errorf(startOff, startLine, startLineStart, "unterminated string")
				return TokenAndValue{Token: token.ILLEGAL, Pos: pos}
			}
			out = append(out, seg...)
		case '#':
			l.advance()
			n, ok := l.numericCharCode()
			if !ok {
				l.errorf(startOff, startLine, startLineStart, "malformed character code after '#'")
				return TokenAndValue{Token: token.ILLEGAL, Pos: pos}
			}
			out = append(out, byte(n))
		}
	}
	if len(out) == 1 {
		return TokenAndValue{Token: token.CHAR, Value: token.Value{Char: out[0]}, Pos: pos}
	}
	return TokenAndValue{Token: token.STRING, Value: token.Value{Str: string(out)}, Pos: pos}
}

// quotedSegment scans a single '...' quoted run, where '' inside the quotes
// is an escaped literal quote character.
func (l *Lexer) quotedSegment() ([]byte, bool) {
	l.advance() // opening quote
	var out []byte
	for {
		if l.cur == eof || l.cur == '\n' {
			return nil, false
		}
		if l.cur == '\'' {
			l.advance()
			if l.cur == '\'' {
				out = append(out, '\'')
				l.advance()
				continue
			}
			return out, true
		}
		if l.cur < 0x80 {
			out = append(out, byte(l.cur))
		} else {
			var buf [utf8.UTFMax]byte
			n := utf8.EncodeRune(buf[:], l.cur)
			out = append(out, buf[:n]...)
		}
		l.advance()
	}
}
