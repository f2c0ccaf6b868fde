package pstr_test

import (
	"strings"
	"testing"

	"github.com/pvmlang/pvm/lang/pstr"
	"github.com/stretchr/testify/assert"
)

func TestSetAndString(t *testing.T) {
	s := pstr.New("hello")
	assert.Equal(t, "hello", s.String())
	assert.Equal(t, 5, s.Len())
}

func TestInlineVsSpill(t *testing.T) {
	short := pstr.New("short")
	assert.Equal(t, "short", short.String())

	long := pstr.New(strings.Repeat("x", 64))
	assert.Equal(t, 64, long.Len())
	assert.Equal(t, strings.Repeat("x", 64), long.String())
}

func TestAppendSpillsWhenNeeded(t *testing.T) {
	var s pstr.String
	s.Set("0123456789") // 10 bytes, still inline
	s.Append("ABCDE")   // 15 bytes, still inline (inlineCap == 15)
	assert.Equal(t, "0123456789ABCDE", s.String())

	s.Append("FG") // exceeds inline capacity, must spill
	assert.Equal(t, "0123456789ABCDEFG", s.String())
}

func TestConcatDoesNotMutateOperands(t *testing.T) {
	a := pstr.New("foo")
	b := pstr.New("bar")
	c := pstr.Concat(a, b)
	assert.Equal(t, "foobar", c.String())
	assert.Equal(t, "foo", a.String())
	assert.Equal(t, "bar", b.String())
}

func TestCompare(t *testing.T) {
	a, b := pstr.New("abc"), pstr.New("abd")
	assert.Equal(t, -1, a.Compare(&b))
	assert.Equal(t, 1, b.Compare(&a))
	assert.Equal(t, 0, a.Compare(&a))
}
