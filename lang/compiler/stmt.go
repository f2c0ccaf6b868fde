package compiler

import (
	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/pvmlang/pvm/lang/symtab"
	"github.com/pvmlang/pvm/lang/token"
	"github.com/pvmlang/pvm/lang/types"
)

// statementList compiles zero or more statements, separated by `;`, until
// stop (the block's closing keyword: END, UNTIL, or EOF in REPL mode) is
// reached. A bare `;` between two statements, or a trailing one before
// stop, is an empty statement and simply consumed.
func (c *Compiler) statementList(stop token.Token) {
	for !c.at(stop) && !c.at(token.EOF) {
		if c.accept(token.SEMI) {
			continue
		}
		c.statement()
	}
}

func (c *Compiler) compoundStatement() {
	c.expect(token.BEGIN)
	c.statementList(token.END)
	c.expect(token.END)
}

func (c *Compiler) statement() {
	switch c.tok.Token {
	case token.BEGIN:
		c.compoundStatement()
	case token.IF:
		c.ifStatement()
	case token.WHILE:
		c.whileStatement()
	case token.REPEAT:
		c.repeatStatement()
	case token.FOR:
		c.forStatement()
	case token.CASE:
		c.caseStatement()
	case token.BREAK:
		c.breakStatement()
	case token.EXIT:
		c.exitStatement()
	case token.IDENT:
		c.identStatement()
	default:
		c.errorf("unexpected %s at start of statement", c.tok.Token)
		c.next()
	}
}

// branchOnFalse materializes cond (a register or the condition flag) and
// emits a branch taken when it is false/zero, returning the patch site.
func (c *Compiler) branchOnFalse(cond value) uint32 {
	rv := c.load(cond)
	pc := c.em.EmitBEZ(rv.reg)
	c.dropValue(rv)
	return pc
}

// constBool reports whether cond folded to a compile-time boolean literal
// (a literal expression, or a const identifier — both resolve to vLiteral),
// along with its value.
func (c *Compiler) constBool(cond value) (truth bool, ok bool) {
	if cond.kind != vLiteral || c.kindOf(cond) != types.Bool {
		return false, false
	}
	return cond.literal.Bool, true
}

func (c *Compiler) ifStatement() {
	c.expect(token.IF)
	cond := c.parseExpr()
	c.expect(token.THEN)

	if truth, ok := c.constBool(cond); ok {
		// spec.md §4.5.3: "if with a literal condition suppresses emission
		// of the dead arm while continuing to type-check it".
		c.withSuppressed(!truth, c.statement)
		if c.accept(token.ELSE) {
			c.withSuppressed(truth, c.statement)
		}
		return
	}

	skip := c.branchOnFalse(cond)

	c.statement()

	if c.accept(token.ELSE) {
		end := c.em.EmitBR()
		c.em.Patch(skip, c.chunk.Here(), emitter.PatchBEZBNZ)
		c.statement()
		c.em.Patch(end, c.chunk.Here(), emitter.PatchBRFamily)
		return
	}
	c.em.Patch(skip, c.chunk.Here(), emitter.PatchBEZBNZ)
}

func (c *Compiler) whileStatement() {
	c.expect(token.WHILE)
	top := c.chunk.Here()
	cond := c.parseExpr()
	c.expect(token.DO)

	if truth, ok := c.constBool(cond); ok && !truth {
		// spec.md §4.5.3: "while with a constant-false condition suppresses
		// its body". The body is still parsed (and its breaks still
		// tracked, harmlessly, since withSuppressed makes their EmitBR/Patch
		// calls no-ops) so a malformed dead body is still diagnosed.
		c.loops = append(c.loops, &loopCtx{})
		c.withSuppressed(true, c.statement)
		c.loops = c.loops[:len(c.loops)-1]
		return
	}

	exit := c.branchOnFalse(cond)

	c.loops = append(c.loops, &loopCtx{})
	c.statement()
	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	back := c.em.EmitBR()
	c.em.Patch(back, top, emitter.PatchBRFamily)
	c.em.Patch(exit, c.chunk.Here(), emitter.PatchBEZBNZ)
	for _, p := range loop.breaks {
		c.em.Patch(p, c.chunk.Here(), emitter.PatchBRFamily)
	}
}

func (c *Compiler) repeatStatement() {
	c.expect(token.REPEAT)
	top := c.chunk.Here()

	c.loops = append(c.loops, &loopCtx{})
	c.statementList(token.UNTIL)
	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	c.expect(token.UNTIL)
	cond := c.parseExpr()
	rv := c.load(cond)
	back := c.em.EmitBEZ(rv.reg) // loop again while the condition is still false
	c.dropValue(rv)
	c.em.Patch(back, top, emitter.PatchBEZBNZ)
	for _, p := range loop.breaks {
		c.em.Patch(p, c.chunk.Here(), emitter.PatchBRFamily)
	}
}

// forStatement compiles `for v := start to/downto limit do body`. The loop
// variable is temporarily rebound from its real storage to a persistent
// register for the duration of the loop (restoring the original binding
// afterward), so every ordinary read/write of it inside body — including
// one nested for-loop reusing the same name in an enclosing scope — goes
// through the unmodified resolveIdent/assignTo machinery with no special
// casing. The comparison-and-exit test sits at the top of each iteration;
// BRI both increments the variable and branches back in one instruction.
func (c *Compiler) forStatement() {
	c.expect(token.FOR)
	name, ok := c.expectIdent()
	if !ok {
		c.synchronize()
		return
	}
	c.expect(token.ASSIGN)
	start := c.parseExpr()

	down := false
	switch {
	case c.accept(token.TO):
	case c.accept(token.DOWNTO):
		down = true
	default:
		c.errorf("expected 'to' or 'downto'")
	}
	limitExpr := c.parseExpr()
	c.expect(token.DO)

	sym, found := c.sym.Lookup(name)
	if !found {
		c.errorf("undefined identifier %q", name)
		c.synchronize()
		return
	}
	typ := sym.Type
	dst := value{kind: vMemory, typ: typ, memClass: sym.Binding.MemClass, memOffset: sym.Binding.MemOffset}
	c.store(dst, start)
	lim := c.load(c.coerceTo(limitExpr, typ))

	origBinding := sym.Binding
	lv := c.load(dst)
	reg := lv.reg
	c.em.MarkPersistent(reg, lv.float)
	sym.Binding = symtab.Binding{Kind: symtab.BindRegister, Register: reg}

	signed := c.types.Get(typ).Kind.IsSigned()
	var cmpOp emitter.Op
	switch {
	case down && signed:
		cmpOp = emitter.ISLT
	case down:
		cmpOp = emitter.SLT
	case signed:
		cmpOp = emitter.ISGT
	default:
		cmpOp = emitter.SGT
	}

	top := c.chunk.Here()
	c.em.EmitRR(cmpOp, reg, lim.reg)
	exitPC := c.em.EmitBCT()

	c.loops = append(c.loops, &loopCtx{})
	c.statement()
	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	inc := int8(1)
	if down {
		inc = -1
	}
	backPC := c.em.EmitBRI(reg, inc)
	c.em.Patch(backPC, top, emitter.PatchBRI)
	c.em.Patch(exitPC, c.chunk.Here(), emitter.PatchBRFamily)
	for _, p := range loop.breaks {
		c.em.Patch(p, c.chunk.Here(), emitter.PatchBRFamily)
	}

	c.em.ClearPersistent(reg, lv.float)
	sym.Binding = origBinding
	c.store(dst, value{kind: vRegister, typ: typ, reg: reg})
	c.dropValue(lim)
}

// parseCaseLabel parses one case label: a constant, or a constant range
// `lo..hi`.
func (c *Compiler) parseCaseLabel() (lo, hi value, isRange bool) {
	lo = c.parseExpr()
	if lo.kind != vLiteral {
		c.errorf("case label must be a constant")
	}
	if c.accept(token.DOTDOT) {
		hi = c.parseExpr()
		if hi.kind != vLiteral {
			c.errorf("case label must be a constant")
		}
		isRange = true
	}
	return
}

// emitRangeTest sets the condition flag to whether sv falls within
// [lo,hi], by combining two set-condition comparisons with AND32 (both
// operands are always exactly 0 or 1) and SETFLAG.
func (c *Compiler) emitRangeTest(sv value, lo, hi value) {
	signed := c.types.Get(sv.typ).Kind.IsSigned()
	geOp, leOp := emitter.SGE, emitter.SLE
	if signed {
		geOp, leOp = emitter.ISGE, emitter.ISLE
	}

	loV := c.load(c.coerceTo(lo, sv.typ))
	c.em.EmitRR(geOp, sv.reg, loV.reg)
	c.dropValue(loV)
	geReg := c.em.AllocGPR()
	c.em.EmitGetFlag(geReg)

	hiV := c.load(c.coerceTo(hi, sv.typ))
	c.em.EmitRR(leOp, sv.reg, hiV.reg)
	c.dropValue(hiV)
	leReg := c.em.AllocGPR()
	c.em.EmitGetFlag(leReg)

	c.em.EmitRR(emitter.AND32, geReg, leReg)
	c.em.Free(leReg, false)
	c.em.EmitSetFlag(geReg)
	c.em.Free(geReg, false)
}

// literalOrdinal extracts v's compile-time value (already known vLiteral)
// as an int64 comparable across kinds, the same Bool/Char-to-int64 mapping
// expr.go's foldLiteral/loadLiteral use elsewhere.
func (c *Compiler) literalOrdinal(v value) int64 {
	switch c.kindOf(v) {
	case types.Bool:
		if v.literal.Bool {
			return 1
		}
		return 0
	case types.Char:
		return int64(v.literal.Str[0])
	default:
		return v.literal.Int
	}
}

// labelMatches reports whether the constant selector value sel falls under
// case label lo (or [lo,hi] if isRange).
func (c *Compiler) labelMatches(sel int64, lo, hi value, isRange bool) bool {
	loV := c.literalOrdinal(lo)
	if !isRange {
		return sel == loV
	}
	return sel >= loV && sel <= c.literalOrdinal(hi)
}

// caseStatement compiles `case sel of label: stmt; ... [else stmt] end` as
// a sequential chain of equality/range tests against the selector, rather
// than a jump table (spec.md §4.5.3 does not require dense-table dispatch,
// and case labels in practice are sparse enough that a table would often
// waste more than it saves). A constant selector (spec.md §4.5.3: "a
// constant selector suppresses the other arms") is resolved at compile
// time instead: every arm is still parsed so a malformed dead arm is still
// diagnosed, but only the first matching arm (and the else, if none
// matched) actually emits code.
func (c *Compiler) caseStatement() {
	c.expect(token.CASE)
	sel := c.parseExpr()
	c.expect(token.OF)

	constSel, isConst := int64(0), sel.kind == vLiteral
	var sv value
	if isConst {
		constSel = c.literalOrdinal(sel)
	} else {
		sv = c.load(sel)
	}

	matched := false
	var ends []uint32
	for !c.at(token.ELSE) && !c.at(token.END) {
		var matchTargets []uint32
		armMatches := false
		for {
			lo, hi, isRange := c.parseCaseLabel()
			switch {
			case isConst:
				if c.labelMatches(constSel, lo, hi, isRange) {
					armMatches = true
				}
			case isRange:
				c.emitRangeTest(sv, lo, hi)
				matchTargets = append(matchTargets, c.em.EmitBCT())
			default:
				lv := c.load(c.coerceTo(lo, sv.typ))
				c.em.EmitRR(emitter.SEQ, sv.reg, lv.reg)
				c.dropValue(lv)
				matchTargets = append(matchTargets, c.em.EmitBCT())
			}
			if !c.accept(token.COMMA) {
				break
			}
		}

		if isConst {
			c.expect(token.COLON)
			suppress := matched || !armMatches
			c.withSuppressed(suppress, c.statement)
			if armMatches {
				matched = true
			}
		} else {
			skipArm := c.em.EmitBR()
			bodyStart := c.chunk.Here()
			for _, p := range matchTargets {
				c.em.Patch(p, bodyStart, emitter.PatchBRFamily)
			}
			c.expect(token.COLON)
			c.statement()
			ends = append(ends, c.em.EmitBR())
			c.em.Patch(skipArm, c.chunk.Here(), emitter.PatchBRFamily)
		}
		if !c.accept(token.SEMI) {
			break
		}
	}

	if c.accept(token.ELSE) {
		c.withSuppressed(isConst && matched, func() { c.statementList(token.END) })
	}
	c.expect(token.END)

	if !isConst {
		for _, p := range ends {
			c.em.Patch(p, c.chunk.Here(), emitter.PatchBRFamily)
		}
		c.dropValue(sv)
	}
}

func (c *Compiler) breakStatement() {
	c.expect(token.BREAK)
	if len(c.loops) == 0 {
		c.errorf("'break' outside a loop")
		return
	}
	loop := c.loops[len(c.loops)-1]
	loop.breaks = append(loop.breaks, c.em.EmitBR())
}

// exitStatement compiles `exit` / `exit(expr)`: inside a function, the
// optional argument becomes the result; the statement always ends the
// enclosing subroutine immediately via an unconditional branch recorded
// into exitPatches, resolved once to the shared epilogue when the body
// finishes compiling.
func (c *Compiler) exitStatement() {
	c.expect(token.EXIT)
	if c.sub == nil {
		c.errorf("'exit' outside a procedure or function")
		return
	}
	if c.accept(token.LPAREN) {
		if c.sub.hasReturn {
			rhs := c.parseExpr()
			dst := value{kind: vMemory, typ: c.sub.returnType, memClass: c.sub.resultSlot.MemClass, memOffset: c.sub.resultSlot.MemOffset}
			c.assignTo(dst, rhs)
		} else {
			c.errorf("'exit' may only take a value inside a function")
			c.releaseUnused(c.parseExpr())
		}
		c.expect(token.RPAREN)
	}
	c.sub.exitPatches = append(c.sub.exitPatches, c.em.EmitBR())
}

// assignTo stores src into dst, whichever storage class dst names:
// ordinary memory (the common case), or a register (only ever true for a
// for-loop variable, temporarily rebound to its loop counter register by
// forStatement). A function's own-name result slot is always constructed
// directly as vMemory by resultAssign/exitStatement, so it goes through
// the vMemory arm like any other variable.
func (c *Compiler) assignTo(dst value, src value) {
	switch dst.kind {
	case vMemory:
		c.store(dst, src)
	case vRegister:
		rv := c.load(c.coerceTo(src, dst.typ))
		if rv.reg != dst.reg {
			op := emitter.MOV64
			if rv.float {
				op = emitter.MOVF64
			}
			c.em.EmitRR(op, dst.reg, rv.reg)
		}
		c.dropValue(rv)
	default:
		c.errorf("left side of assignment is not assignable")
	}
}

func isAssignOp(t token.Token) bool {
	switch t {
	case token.ASSIGN, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PCT_EQ:
		return true
	}
	return false
}

func compoundOp(t token.Token) token.Token {
	switch t {
	case token.PLUS_EQ:
		return token.PLUS
	case token.MINUS_EQ:
		return token.MINUS
	case token.STAR_EQ:
		return token.STAR
	case token.SLASH_EQ:
		return token.SLASH
	case token.PCT_EQ:
		return token.MOD
	}
	return token.ILLEGAL
}

// resultAssign compiles `name := expr` / `name += expr` / ... where name is
// the enclosing function's own name: spec.md's classic Pascal return-value
// convention. Building dst directly as a vMemory value over resultSlot
// (rather than going through resolveIdent) means a bare read of the same
// name still resolves to an ordinary recursive call — only this exact
// assignment-statement position is special-cased.
func (c *Compiler) resultAssign() {
	op := c.tok.Token
	c.next()
	rhs := c.parseExpr()
	dst := value{kind: vMemory, typ: c.sub.returnType, memClass: c.sub.resultSlot.MemClass, memOffset: c.sub.resultSlot.MemOffset}
	if op == token.ASSIGN {
		c.assignTo(dst, rhs)
		return
	}
	combined := c.applyBinary(dst, compoundOp(op), rhs)
	c.assignTo(dst, combined)
}

// identStatement compiles a statement beginning with an identifier: the
// function's own-name result assignment, an ordinary (possibly compound)
// assignment to a variable/field/element, or an expression statement —
// almost always a bare procedure/function call, parsed exactly as
// expr.go's parseOperand would, minus the leading token it has already
// consumed here.
func (c *Compiler) identStatement() {
	name := c.tok.Value.Str
	c.next()

	if c.sub != nil && name == c.sub.name && isAssignOp(c.tok.Token) {
		c.resultAssign()
		return
	}

	v := c.parsePostfix(c.resolveIdent(name))

	if isAssignOp(c.tok.Token) {
		op := c.tok.Token
		c.next()
		rhs := c.parseExpr()
		if op == token.ASSIGN {
			c.assignTo(v, rhs)
			return
		}
		combined := c.applyBinary(v, compoundOp(op), rhs)
		c.assignTo(v, combined)
		return
	}

	c.releaseUnused(c.autoCall(v))
}
