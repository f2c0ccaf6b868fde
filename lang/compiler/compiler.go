// Package compiler implements the single-pass recursive-descent parser of
// spec.md §4.5: there is no explicit AST. Parsing, type-checking, register
// allocation, and bytecode emission all happen inline as the parser
// advances, driving lang/emitter, lang/symtab, lang/types, and lang/chunk
// directly.
package compiler

import (
	"fmt"
	gotoken "go/token"

	"github.com/pvmlang/pvm/lang/chunk"
	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/pvmlang/pvm/lang/lexer"
	"github.com/pvmlang/pvm/lang/symtab"
	"github.com/pvmlang/pvm/lang/token"
	"github.com/pvmlang/pvm/lang/types"
)

// Compiler holds all state for compiling one source file into one Chunk.
// It is not reentrant and not reusable across sources (spec.md §5:
// "compilation... non-reentrant").
type Compiler struct {
	lex *lexer.Lexer
	tok lexer.TokenAndValue

	types *types.Arena
	sym   *symtab.SymbolTable
	chunk *chunk.Chunk
	em    *emitter.Emitter
	fwd   *forwardLedger

	errs      lexer.ErrorList
	errorFlag bool
	panicking bool

	loops      []*loopCtx
	sub        *subroutineCtx // non-nil while compiling a procedure/function body
	nextSubID  int32
	replMode   bool
}

// loopCtx tracks the enclosing loop's break-patch list (spec.md §4.5.3:
// "break records the code offset of its unconditional branch into a
// per-loop patch list; the enclosing loop patches all of them to the loop
// exit on completion").
type loopCtx struct {
	breaks []uint32
}

// subroutineCtx tracks the subroutine currently being compiled, for `exit`
// statements and for the implicit `name := result` return-value convention.
type subroutineCtx struct {
	name       string
	returnType types.ID
	hasReturn  bool
	resultSlot *symtab.Binding // where `name := expr` / `exit(expr)` stores the result
	hiddenRet  *symtab.Binding // record returns only: local slot holding the caller's destination pointer
	exitPatches []uint32       // unconditional branches from `exit` awaiting the epilogue's address
}

// New returns a Compiler reading filename/src, with a fresh Arena, global
// SymbolTable, Chunk, and Emitter.
func New(filename string, src []byte) *Compiler {
	c := &Compiler{
		lex:   lexer.New(filename, src),
		types: types.NewArena(),
		sym:   symtab.New(),
		chunk: chunk.New(),
		fwd:   newForwardLedger(),
	}
	c.em = emitter.New(c.chunk)
	declareBuiltins(c)
	c.next()
	return c
}

// Result is the outcome of Compile: the chunk (always returned, even on
// error, since diagnostics continue past the first failure per spec.md
// §7), whether compilation succeeded, and the accumulated diagnostics.
type Result struct {
	Chunk   *chunk.Chunk
	Success bool
	Errors  lexer.ErrorList
}

// Compile compiles filename/src as a `program ... ; block .` per spec.md
// §4.5.1.
func Compile(filename string, src []byte) Result {
	c := New(filename, src)
	c.compileProgram()
	return c.finish()
}

// CompileREPLChunk compiles a single headless block of declarations and
// statements, for REPL mode (spec.md §4.5.1: "in REPL mode, a headless
// block followed by statements").
func CompileREPLChunk(c *Compiler, src []byte) Result {
	c.replMode = true
	c.lex = lexer.New("<repl>", src)
	c.next()
	c.declarations()
	c.em.Chunk.Entry = c.em.Chunk.Here()
	c.statementList(token.EOF)
	c.em.EmitExit()
	return c.finish()
}

func (c *Compiler) finish() Result {
	c.fwd.resolve(c)
	errs := c.errs
	errs.Sort()
	return Result{Chunk: c.chunk, Success: !c.errorFlag, Errors: errs}
}

// --- token stream ---

func (c *Compiler) next() {
	c.tok = c.lex.Next()
}

// peek exposes the token after c.tok without consuming it. The grammar in
// spec.md §4 is LL(1): every dispatch in statement(), factor(), and the
// declaration parsers resolves on c.tok alone, so nothing here calls peek
// today. It is kept available, backed by Lexer.Peek, because spec.md §4.1
// names peek as a Tokenizer operation in its own right, not a compiler
// convenience derived from next.
func (c *Compiler) peek() lexer.TokenAndValue {
	return c.lex.Peek()
}

func (c *Compiler) at(t token.Token) bool { return c.tok.Token == t }

func (c *Compiler) accept(t token.Token) bool {
	if c.at(t) {
		c.next()
		return true
	}
	return false
}

// expect consumes the current token if it matches t, otherwise reports a
// syntax error and does not advance (so the caller's synchronization still
// sees the offending token).
func (c *Compiler) expect(t token.Token) bool {
	if c.accept(t) {
		return true
	}
	c.errorf("expected %s, found %s", t, c.tok.Token)
	return false
}

func (c *Compiler) expectIdent() (string, bool) {
	if !c.at(token.IDENT) {
		c.errorf("expected identifier, found %s", c.tok.Token)
		return "", false
	}
	name := c.tok.Value.Str
	c.next()
	return name, true
}

// --- diagnostics ---

// errorf records a diagnostic at the current token's position and enters
// panic mode (spec.md §7). Additional errors are not recorded (though they
// still set the error flag) until synchronize clears panic mode.
func (c *Compiler) errorf(format string, args ...interface{}) {
	c.errorFlag = true
	if c.panicking {
		return
	}
	c.panicking = true
	c.errs.Add(c.tok.Pos, fmt.Sprintf(format, args...))
}

func (c *Compiler) errorfAt(pos gotoken.Position, format string, args ...interface{}) {
	c.errorFlag = true
	if c.panicking {
		return
	}
	c.panicking = true
	c.errs.Add(pos, fmt.Sprintf(format, args...))
}

// synchronize skips tokens until a statement separator, a block-introducing
// keyword, or end/until/else — the recovery points of spec.md §7 — then
// clears panic mode. It does not consume the synchronization token itself
// (except SEMI, which is always meant to be consumed).
func (c *Compiler) synchronize() {
	c.panicking = false
	for !c.at(token.EOF) {
		switch c.tok.Token {
		case token.SEMI:
			c.next()
			return
		case token.BEGIN, token.END, token.UNTIL, token.ELSE,
			token.VAR, token.CONST, token.TYPE, token.PROCEDURE, token.FUNCTION:
			return
		}
		c.next()
	}
}

// shouldEmit reports whether code generation is currently live (mirrors
// e.em.Suppress so the compiler can gate its own direct chunk/debug writes
// the same way the emitter gates instruction words).
func (c *Compiler) shouldEmit() bool { return !c.em.Suppress }

// withSuppressed runs fn with code generation turned off (spec.md §7's
// "should-emit flag" for a statically dead arm), restoring the previous
// state afterward so nested suppression (a dead arm inside a dead arm)
// composes correctly.
func (c *Compiler) withSuppressed(suppress bool, fn func()) {
	prev := c.em.Suppress
	c.em.Suppress = prev || suppress
	fn()
	c.em.Suppress = prev
}

// addLine records pc -> line in the chunk's debug index, unless code
// generation is currently suppressed.
func (c *Compiler) addLine(pc uint32, line int32) {
	if c.shouldEmit() {
		c.chunk.AddLine(pc, line)
	}
}
