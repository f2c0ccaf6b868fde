package lexer_test

import (
	"testing"

	"github.com/pvmlang/pvm/lang/lexer"
	"github.com/pvmlang/pvm/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanOne(t *testing.T, src string) lexer.TokenAndValue {
	t.Helper()
	toks, errs := lexer.Scan("test.pas", []byte(src))
	require.Empty(t, errs)
	require.NotEmpty(t, toks)
	return toks[0]
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	for _, src := range []string{"begin", "BEGIN", "Begin", "bEgIn"} {
		tv := scanOne(t, src)
		assert.Equal(t, token.BEGIN, tv.Token, src)
	}
}

func TestIdentifier(t *testing.T) {
	tv := scanOne(t, "foo_bar1")
	assert.Equal(t, token.IDENT, tv.Token)
	assert.Equal(t, "foo_bar1", tv.Value.Str)
}

func TestIntegerBases(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"123", 123},
		{"$FF", 255},
		{"&17", 15},
		{"%101", 5},
	}
	for _, c := range cases {
		tv := scanOne(t, c.src)
		require.Equal(t, token.INT, tv.Token, c.src)
		assert.Equal(t, c.want, tv.Value.Int, c.src)
	}
}

func TestRealLiteral(t *testing.T) {
	tv := scanOne(t, "1.5e2")
	require.Equal(t, token.FLOAT, tv.Token)
	assert.InDelta(t, 150.0, tv.Value.Float, 1e-9)
}

func TestDotDotIsNotAFloat(t *testing.T) {
	toks, errs := lexer.Scan("t.pas", []byte("1..5"))
	require.Empty(t, errs)
	require.Equal(t, token.INT, toks[0].Token)
	require.Equal(t, token.DOTDOT, toks[1].Token)
	require.Equal(t, token.INT, toks[2].Token)
}

func TestCharLiteral(t *testing.T) {
	tv := scanOne(t, "'x'")
	require.Equal(t, token.CHAR, tv.Token)
	assert.Equal(t, byte('x'), tv.Value.Char)

	tv = scanOne(t, "#65")
	require.Equal(t, token.CHAR, tv.Token)
	assert.Equal(t, byte('A'), tv.Value.Char)
}

func TestStringLiteralConcatenation(t *testing.T) {
	tv := scanOne(t, "'he said '#39'hi'#39")
	require.Equal(t, token.STRING, tv.Token)
	assert.Equal(t, "he said 'hi'", tv.Value.Str)
}

func TestComments(t *testing.T) {
	toks, errs := lexer.Scan("t.pas", []byte("a (* block *) { brace } // line\nb"))
	require.Empty(t, errs)
	require.Len(t, toks, 3) // a, b, EOF
	assert.Equal(t, "a", toks[0].Value.Str)
	assert.Equal(t, "b", toks[1].Value.Str)
	assert.Equal(t, token.EOF, toks[2].Token)
}

func TestUnterminatedString(t *testing.T) {
	_, errs := lexer.Scan("t.pas", []byte("'abc"))
	require.NotEmpty(t, errs)
}

func TestMalformedNumber(t *testing.T) {
	_, errs := lexer.Scan("t.pas", []byte("123abc"))
	require.NotEmpty(t, errs)
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := lexer.New("t.pas", []byte("foo bar"))
	peeked := l.Peek()
	assert.Equal(t, token.IDENT, peeked.Token)
	assert.Equal(t, "foo", peeked.Value.Str)

	// Peeking again without calling Next must return the same token.
	peeked2 := l.Peek()
	assert.Equal(t, peeked, peeked2)

	next := l.Next()
	assert.Equal(t, "foo", next.Value.Str)

	next2 := l.Next()
	assert.Equal(t, "bar", next2.Value.Str)
}

func TestPeekDiscardsLookaheadErrors(t *testing.T) {
	l := lexer.New("t.pas", []byte("123abc ok"))
	l.Peek()
	_ = l.Next()
	require.Len(t, l.Errors(), 1, "the lookahead's error is dropped by Peek and reported once by the real scan")
}

func TestOperators(t *testing.T) {
	toks, errs := lexer.Scan("t.pas", []byte(":= <> <= >= << >> += -= *= /="))
	require.Empty(t, errs)
	want := []token.Token{
		token.ASSIGN, token.NEQ, token.LE, token.GE, token.LTLT, token.GTGT,
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equal(t, w, toks[i].Token, i)
	}
}
