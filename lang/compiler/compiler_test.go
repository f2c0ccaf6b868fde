package compiler_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/pvmlang/pvm/lang/compiler"
	"github.com/pvmlang/pvm/lang/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSource compiles src and executes it to completion, returning its
// WRITE-syscall stdout. Any compile or runtime failure fails the test
// immediately, since every scenario here is expected to succeed cleanly.
func runSource(t *testing.T, src string) string {
	t.Helper()
	res := compiler.Compile("test.pas", []byte(src))
	require.True(t, res.Success, "%v", res.Errors)

	var out bytes.Buffer
	th := machine.NewThread(&out, &out)
	result := th.Run(context.Background(), res.Chunk)
	require.Nil(t, result.Trap, "%v", result.Trap)
	return out.String()
}

func TestArithmetic(t *testing.T) {
	out := runSource(t, `program p; begin writeln(2 + 3 * 4) end.`)
	assert.Equal(t, "14\n", out)
}

func TestSignedDivisionTruncation(t *testing.T) {
	out := runSource(t, `program p; begin writeln(-7 div 2) end.`)
	assert.Equal(t, "-3\n", out)
}

func TestForLoop(t *testing.T) {
	out := runSource(t, `program p; var i: integer; s: integer; begin s := 0; for i := 1 to 10 do s += i; writeln(s) end.`)
	assert.Equal(t, "55\n", out)
}

func TestShortCircuit(t *testing.T) {
	out := runSource(t, `program p; var i: integer; begin i := 0; if (i <> 0) and (10 div i > 0) then writeln('bad') else writeln('ok') end.`)
	assert.Equal(t, "ok\n", out)
}

func TestRecordAndPointer(t *testing.T) {
	out := runSource(t, `program p; type r = record a, b: integer end; var x: r; p: ^r; begin x.a := 1; x.b := 2; p := @x; writeln(p^.a + p^.b) end.`)
	assert.Equal(t, "3\n", out)
}

func TestForwardSubroutine(t *testing.T) {
	out := runSource(t, `program p; function f(n: integer): integer; forward; function g(n: integer): integer; begin g := f(n) + 1 end; function f(n: integer): integer; begin f := n * 2 end; begin writeln(g(3)) end.`)
	assert.Equal(t, "7\n", out)
}

func TestWhileLoop(t *testing.T) {
	out := runSource(t, `program p; var n: integer; f: integer; begin n := 5; f := 1; while n > 1 do begin f := f * n; n := n - 1 end; writeln(f) end.`)
	assert.Equal(t, "120\n", out)
}

func TestRepeatLoop(t *testing.T) {
	out := runSource(t, `program p; var n: integer; begin n := 0; repeat n := n + 1 until n = 5; writeln(n) end.`)
	assert.Equal(t, "5\n", out)
}

func TestCaseStatement(t *testing.T) {
	out := runSource(t, `program p; var n: integer; begin n := 7; case n of 1, 2: writeln('low'); 3..9: writeln('mid'); else writeln('high') end end.`)
	assert.Equal(t, "mid\n", out)
}

func TestCaseStatementElse(t *testing.T) {
	out := runSource(t, `program p; var n: integer; begin n := 100; case n of 1, 2: writeln('low'); 3..9: writeln('mid'); else writeln('high') end end.`)
	assert.Equal(t, "high\n", out)
}

func TestRecursion(t *testing.T) {
	out := runSource(t, `program p; function fact(n: integer): integer; begin if n <= 1 then fact := 1 else fact := n * fact(n - 1) end; begin writeln(fact(6)) end.`)
	assert.Equal(t, "720\n", out)
}

func TestBreakInLoop(t *testing.T) {
	out := runSource(t, `program p; var i: integer; begin for i := 1 to 10 do begin if i = 4 then break; writeln(i) end end.`)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestIdempotentCompile(t *testing.T) {
	src := []byte(`program p; begin writeln(2 + 3 * 4) end.`)
	r1 := compiler.Compile("test.pas", src)
	r2 := compiler.Compile("test.pas", src)
	require.True(t, r1.Success)
	require.True(t, r2.Success)
	assert.Equal(t, r1.Chunk.Entry, r2.Chunk.Entry)
	assert.Equal(t, r1.Chunk.Code, r2.Chunk.Code)
	assert.Equal(t, r1.Chunk.Globals, r2.Chunk.Globals)
}

func TestConstIfSuppressesDeadArm(t *testing.T) {
	out := runSource(t, `program p; begin if false then writeln('dead') else writeln('live') end.`)
	assert.Equal(t, "live\n", out)
}

func TestConstWhileSuppressesBody(t *testing.T) {
	out := runSource(t, `program p; begin while false do writeln('dead'); writeln('after') end.`)
	assert.Equal(t, "after\n", out)
}

func TestConstCaseSuppressesOtherArms(t *testing.T) {
	out := runSource(t, `program p; const n = 5; begin case n of 1, 2: writeln('low'); 3..9: writeln('mid'); else writeln('high') end end.`)
	assert.Equal(t, "mid\n", out)
}

func TestSizeofAndCast(t *testing.T) {
	out := runSource(t, `program p; type arr = array[0..4] of integer; var a: arr; begin writeln(sizeof(arr) div sizeof(a[0])); writeln(integer(3.9)) end.`)
	assert.Equal(t, "5\n3\n", out)
}

func TestCompileErrorReported(t *testing.T) {
	res := compiler.Compile("test.pas", []byte(`program p; begin writeln(1 + ) end.`))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Errors)
}
