package compiler

import (
	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/pvmlang/pvm/lang/symtab"
	"github.com/pvmlang/pvm/lang/token"
	"github.com/pvmlang/pvm/lang/types"
)

// precedence is the table spec.md §4.5.4 describes: "the routine for each
// level dispatches to a table keyed by the next token's kind". Comparisons
// are loosest (0); `+ - or xor` sit at 1; `* / div mod and shl shr asr << >>`
// are tightest among the binary operators (2).
var precedence = map[token.Token]int{
	token.EQ: 0, token.NEQ: 0, token.LT: 0, token.GT: 0, token.LE: 0, token.GE: 0,

	token.PLUS: 1, token.MINUS: 1, token.OR: 1, token.XOR: 1,

	token.STAR: 2, token.SLASH: 2, token.DIV: 2, token.MOD: 2, token.AND: 2,
	token.SHL: 2, token.SHR: 2, token.ASR: 2, token.LTLT: 2, token.GTGT: 2,
}

func isComparison(t token.Token) bool {
	switch t {
	case token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE:
		return true
	}
	return false
}

// parseExpr parses a full expression at the loosest precedence tier.
func (c *Compiler) parseExpr() value {
	return c.parseBinary(0)
}

func (c *Compiler) parseBinary(minPrec int) value {
	left := c.parseUnary()
	for {
		prec, ok := precedence[c.tok.Token]
		if !ok || prec < minPrec {
			return left
		}
		op := c.tok.Token
		c.next()

		if (op == token.AND || op == token.OR) && c.isBool(left) {
			left = c.shortCircuit(left, op, prec)
			continue
		}

		right := c.parseBinary(prec + 1)
		left = c.applyBinary(left, op, right)
	}
}

// shortCircuit compiles `left and right` / `left or right` on boolean
// operands without evaluating right unless necessary, per spec.md §8's
// testable scenario `(i<>0) and (10 div i>0)` not trapping when i=0.
func (c *Compiler) shortCircuit(left value, op token.Token, prec int) value {
	lv := c.load(left)
	skip := uint32(0)
	if op == token.AND {
		skip = c.em.EmitBEZ(lv.reg) // false operand short-circuits `and` to false
	} else {
		skip = c.em.EmitBNZ(lv.reg) // true operand short-circuits `or` to true
	}

	right := c.parseBinary(prec + 1)
	rv := c.load(c.coerceTo(right, types.IDBool))
	if rv.reg != lv.reg {
		c.em.EmitRR(emitter.MOV32, lv.reg, rv.reg)
		c.dropValue(rv)
	}
	end := c.em.EmitBR()
	c.em.Patch(skip, c.chunk.Here(), emitter.PatchBEZBNZ)
	c.em.Patch(end, c.chunk.Here(), emitter.PatchBRFamily)
	return value{kind: vRegister, typ: types.IDBool, reg: lv.reg}
}

func (c *Compiler) parseUnary() value {
	switch c.tok.Token {
	case token.MINUS:
		c.next()
		return c.applyNeg(c.parseUnary())
	case token.PLUS:
		c.next()
		return c.parseUnary()
	case token.NOT:
		c.next()
		return c.applyNot(c.parseUnary())
	case token.AT:
		c.next()
		return c.addressOf()
	}
	return c.autoCall(c.parseOperand())
}

// parseOperand parses a primary expression and its postfixes without
// resolving a bare subroutine/builtin reference into a call: the raw
// callable is left alone so `@` and explicit-call parsing can see it.
func (c *Compiler) parseOperand() value {
	return c.parsePostfix(c.parsePrimary())
}

// autoCall invokes a bare subroutine/builtin reference with zero arguments,
// the Pascal convention for a parameterless call written without `()`.
func (c *Compiler) autoCall(v value) value {
	if v.kind == vCallable {
		return c.compileCall(v, nil)
	}
	return v
}

func (c *Compiler) parsePostfix(v value) value {
	for {
		switch c.tok.Token {
		case token.DOT:
			c.next()
			name, ok := c.expectIdent()
			if !ok {
				return invalidValue()
			}
			v = c.fieldAccess(v, name)
		case token.CARET:
			c.next()
			v = c.deref(v)
		case token.LBRACK:
			c.next()
			idx := c.parseExpr()
			c.expect(token.RBRACK)
			v = c.index(v, idx)
		case token.LPAREN:
			args := c.parseCallArgs()
			v = c.compileCall(v, args)
		default:
			return v
		}
	}
}

func (c *Compiler) parseCallArgs() []value {
	c.expect(token.LPAREN)
	var args []value
	if !c.at(token.RPAREN) {
		for {
			args = append(args, c.parseExpr())
			if !c.accept(token.COMMA) {
				break
			}
		}
	}
	c.expect(token.RPAREN)
	return args
}

func (c *Compiler) parsePrimary() value {
	switch c.tok.Token {
	case token.INT:
		v := value{kind: vLiteral, typ: types.IDI32, literal: symtab.LiteralValue{Int: c.tok.Value.Int}}
		if c.tok.Value.Int > 0x7fffffff || c.tok.Value.Int < -0x80000000 {
			v.typ = types.IDI64
		}
		c.next()
		return v
	case token.FLOAT:
		v := value{kind: vLiteral, typ: types.IDF64, literal: symtab.LiteralValue{Float: c.tok.Value.Float}}
		c.next()
		return v
	case token.CHAR:
		v := value{kind: vLiteral, typ: types.IDChar, literal: symtab.LiteralValue{Str: string(c.tok.Value.Char)}}
		c.next()
		return v
	case token.STRING:
		v := value{kind: vLiteral, typ: types.IDString, literal: symtab.LiteralValue{Str: c.tok.Value.Str}}
		c.next()
		return v
	case token.LPAREN:
		c.next()
		v := c.parseExpr()
		c.expect(token.RPAREN)
		return v
	case token.IDENT:
		name := c.tok.Value.Str
		c.next()
		return c.resolveIdent(name)
	}
	c.errorf("unexpected %s in expression", c.tok.Token)
	c.next()
	return invalidValue()
}

func (c *Compiler) resolveIdent(name string) value {
	sym, ok := c.sym.Lookup(name)
	if !ok {
		c.errorf("undefined identifier %q", name)
		return invalidValue()
	}
	switch sym.Binding.Kind {
	case symtab.BindLiteral:
		return value{kind: vLiteral, typ: sym.Type, literal: sym.Binding.Literal}
	case symtab.BindMemory:
		return value{kind: vMemory, typ: sym.Type, memClass: sym.Binding.MemClass, memOffset: sym.Binding.MemOffset, sym: sym}
	case symtab.BindRegister:
		return value{kind: vRegister, typ: sym.Type, reg: sym.Binding.Register, float: c.types.Get(sym.Type).Kind.IsFloat()}
	case symtab.BindFlag:
		return value{kind: vFlag, typ: sym.Type}
	case symtab.BindTypename:
		return value{kind: vTypename, typ: sym.Type, sym: sym}
	case symtab.BindSubroutine, symtab.BindBuiltin:
		return value{kind: vCallable, typ: sym.Type, sym: sym}
	}
	c.errorf("%q cannot be used as a value", name)
	return invalidValue()
}

// addressOf compiles `@operand`: a pointer to a variable's storage, or a
// code pointer to a subroutine (patched immediately if already defined,
// via the forward ledger otherwise).
func (c *Compiler) addressOf() value {
	v := c.parseOperand()
	switch v.kind {
	case vCallable:
		r := c.em.AllocGPR()
		pc := c.em.EmitLDRIP(r, emitter.W64)
		if v.sym.Binding.Kind == symtab.BindSubroutine {
			info := v.sym.Binding.Subroutine
			if info.Defined {
				c.em.Patch(pc, uint32(info.EntryOffset), emitter.PatchLDRIP)
			} else {
				c.fwd.record(pc, info.ID, emitter.PatchLDRIP)
			}
		} else {
			c.errorf("cannot take the address of a builtin")
		}
		return value{kind: vRegister, typ: c.types.NewPointer(v.typ), reg: r}
	case vMemory:
		base, disp := c.resolveBase(v)
		r := c.em.AllocGPR()
		c.em.EmitLEA(r, base, disp)
		if v.hasBaseReg {
			c.em.Free(v.baseReg, false)
		}
		return value{kind: vRegister, typ: c.types.NewPointer(v.typ), reg: r}
	}
	c.errorf("cannot take the address of this expression")
	return invalidValue()
}

// deref compiles `v^`: loads through a pointer value, producing its
// pointee as a memory operand addressed off a freshly LEA'd base.
func (c *Compiler) deref(v value) value {
	k := c.kindOf(v)
	if k != types.Pointer {
		c.errorf("cannot dereference a non-pointer value")
		return invalidValue()
	}
	d := c.types.Get(v.typ)
	if d.Pointee == types.NoPointee {
		c.errorf("cannot dereference an opaque pointer")
		return invalidValue()
	}
	rv := c.load(v)
	return value{kind: vMemory, typ: d.Pointee, hasBaseReg: true, baseReg: rv.reg, memOffset: 0}
}

// fieldAccess compiles `v.name`. When v is a bare type name rather than a
// record value, it returns the field's type as a typename in turn, so a
// chain like `TRecord.field` can still feed sizeof (spec.md §3's
// typename-only binding; grounded on the original's equivalent
// VAR_TYPENAME case in FieldAccess, Compiler/Expr.c:456).
func (c *Compiler) fieldAccess(v value, name string) value {
	if v.kind == vTypename {
		d := c.types.Get(v.typ)
		if d.Kind != types.Record {
			c.errorf("%q is a type name, not a record type", name)
			return invalidValue()
		}
		idx, ok := d.FieldsByName[name]
		if !ok {
			c.errorf("record has no field %q", name)
			return invalidValue()
		}
		return value{kind: vTypename, typ: d.Fields[idx].Type, sym: v.sym}
	}
	base := v
	if c.kindOf(v) == types.Pointer {
		base = c.deref(v)
	}
	if c.kindOf(base) != types.Record {
		c.errorf("%q is not a record", name)
		return invalidValue()
	}
	d := c.types.Get(base.typ)
	idx, ok := d.FieldsByName[name]
	if !ok {
		c.errorf("record has no field %q", name)
		return invalidValue()
	}
	f := d.Fields[idx]
	if base.kind == vMemory {
		return value{
			kind: vMemory, typ: f.Type,
			memClass: base.memClass, memOffset: base.memOffset + f.Offset,
			hasBaseReg: base.hasBaseReg, baseReg: base.baseReg,
		}
	}
	c.errorf("record field access requires a memory operand")
	return invalidValue()
}

// index compiles `v[idx]`. When v is a bare type name for a static-array
// type, it returns the element type as a typename rather than indexing
// anything at runtime: FPC's `sizeof(arr) / sizeof(arr[0])` idiom indexes
// the array's type name, not a value (original_source's ArrayAccess,
// Compiler/Expr.c:489-493).
func (c *Compiler) index(v value, idx value) value {
	if c.kindOf(v) != types.StaticArray {
		c.errorf("cannot index a non-array value")
		return invalidValue()
	}
	d := c.types.Get(v.typ)
	elemSize := c.types.Get(d.Elem).Size
	if v.kind == vTypename {
		c.releaseUnused(idx)
		return value{kind: vTypename, typ: d.Elem, sym: v.sym}
	}
	if v.kind != vMemory {
		c.errorf("array indexing requires a memory operand")
		return invalidValue()
	}
	if idx.kind == vLiteral {
		off := (idx.literal.Int - d.Low) * int64(elemSize)
		return value{
			kind: vMemory, typ: d.Elem,
			memClass: v.memClass, memOffset: v.memOffset + int(off),
			hasBaseReg: v.hasBaseReg, baseReg: v.baseReg,
		}
	}
	// Dynamic index: compute base + (idx-low)*elemSize into a fresh pointer
	// register, then address through it like a dereferenced pointer.
	base, disp := c.resolveBase(v)
	baseReg := c.em.AllocGPR()
	c.em.EmitLEA(baseReg, base, disp)
	if v.hasBaseReg {
		c.em.Free(v.baseReg, false)
	}
	iv := c.load(c.coerceTo(idx, types.IDI64))
	if d.Low != 0 {
		lowReg := c.em.AllocGPR()
		c.em.EmitIntImm(lowReg, d.Low, emitter.W64)
		c.em.EmitRR(emitter.SUB64, iv.reg, lowReg)
		c.em.Free(lowReg, false)
	}
	scaled := c.scaleByConst(iv, int64(elemSize))
	c.em.EmitRR(emitter.ADD64, baseReg, scaled.reg)
	c.dropValue(scaled)
	return value{kind: vMemory, typ: d.Elem, hasBaseReg: true, baseReg: baseReg, memOffset: 0}
}

// scaleByConst multiplies iv (a 64-bit register value) by n, reusing iv's
// register as the destination.
func (c *Compiler) scaleByConst(iv value, n int64) value {
	nReg := c.em.AllocGPR()
	c.em.EmitIntImm(nReg, n, emitter.W64)
	c.em.EmitRR(emitter.IMUL64, iv.reg, nReg)
	c.em.Free(nReg, false)
	return iv
}

func (c *Compiler) applyNeg(v value) value {
	if v.kind == vLiteral {
		k := c.kindOf(v)
		if k.IsFloat() {
			v.literal.Float = -v.literal.Float
		} else {
			v.literal.Int = -v.literal.Int
		}
		return v
	}
	rv := c.load(v)
	k := c.kindOf(rv)
	if k.IsFloat() {
		op := emitter.FNEG32
		if k == types.F64 {
			op = emitter.FNEG64
		}
		c.em.EmitR(op, rv.reg)
		return rv
	}
	op := emitter.NEG32
	if is64Family(k) {
		op = emitter.NEG64
	}
	c.em.EmitR(op, rv.reg)
	return rv
}

func (c *Compiler) applyNot(v value) value {
	if v.kind == vLiteral {
		if c.isBool(v) {
			v.literal.Bool = !v.literal.Bool
			return v
		}
		v.literal.Int = ^v.literal.Int
		return v
	}
	if c.isBool(v) {
		if v.kind == vFlag {
			c.em.EmitNegFlag()
			return v
		}
		rv := c.load(v)
		zero := c.em.AllocGPR()
		c.em.EmitIntImm(zero, 0, emitter.W32)
		c.em.EmitRR(emitter.SEQ, rv.reg, zero)
		c.em.Free(zero, false)
		c.dropValue(rv)
		return value{kind: vFlag, typ: types.IDBool}
	}
	rv := c.load(v)
	op := emitter.NOT32
	if is64Family(c.kindOf(rv)) {
		op = emitter.NOT64
	}
	c.em.EmitR(op, rv.reg)
	return rv
}

// applyBinary compiles every eager (non-short-circuit) binary operator.
func (c *Compiler) applyBinary(left value, op token.Token, right value) value {
	if left.kind == vInvalid || right.kind == vInvalid {
		return invalidValue()
	}

	if left.kind == vLiteral && right.kind == vLiteral {
		if v, ok := c.foldLiteral(left, op, right); ok {
			return v
		}
	}

	ct := c.commonType(left, right)
	if ct == types.InvalidID {
		c.errorf("incompatible operand types in expression")
		return invalidValue()
	}
	ck := c.types.Get(ct).Kind

	if isComparison(op) {
		return c.compileComparison(left, op, right, ck)
	}

	if ck == types.String {
		if op != token.PLUS {
			c.errorf("operator not defined for strings")
			return invalidValue()
		}
		lv := c.load(c.coerceTo(left, ct))
		rv := c.load(c.coerceTo(right, ct))
		c.em.EmitSAdd(lv.reg, rv.reg)
		c.dropValue(rv)
		return value{kind: vRegister, typ: ct, reg: lv.reg}
	}

	lv := c.load(c.coerceTo(left, ct))
	rv := c.load(c.coerceTo(right, ct))

	if ck.IsFloat() {
		fop, ok := floatOpFor(op, ck)
		if !ok {
			c.errorf("operator not defined for real operands")
			return invalidValue()
		}
		c.em.EmitRR(fop, lv.reg, rv.reg)
		c.dropValue(rv)
		return lv
	}

	aop, ok := intOpFor(op, ck)
	if !ok {
		c.errorf("operator not defined for these operand types")
		return invalidValue()
	}
	c.em.EmitRR(aop, lv.reg, rv.reg)
	c.dropValue(rv)
	return lv
}

func floatOpFor(op token.Token, k types.Kind) (emitter.Op, bool) {
	wide := k == types.F64
	switch op {
	case token.PLUS:
		return pick(wide, emitter.FADD32, emitter.FADD64), true
	case token.MINUS:
		return pick(wide, emitter.FSUB32, emitter.FSUB64), true
	case token.STAR:
		return pick(wide, emitter.FMUL32, emitter.FMUL64), true
	case token.SLASH:
		return pick(wide, emitter.FDIV32, emitter.FDIV64), true
	}
	return 0, false
}

func intOpFor(op token.Token, k types.Kind) (emitter.Op, bool) {
	wide := is64Family(k)
	signed := k.IsSigned()
	switch op {
	case token.PLUS:
		return pick(wide, emitter.ADD32, emitter.ADD64), true
	case token.MINUS:
		return pick(wide, emitter.SUB32, emitter.SUB64), true
	case token.STAR:
		if signed {
			return pick(wide, emitter.IMUL32, emitter.IMUL64), true
		}
		return pick(wide, emitter.MUL32, emitter.MUL64), true
	case token.SLASH, token.DIV:
		if signed {
			return pick(wide, emitter.IDIV32, emitter.IDIV64), true
		}
		return pick(wide, emitter.DIV32, emitter.DIV64), true
	case token.MOD:
		if signed {
			return pick(wide, emitter.IMOD32, emitter.IMOD64), true
		}
		return pick(wide, emitter.MOD32, emitter.MOD64), true
	case token.AND:
		return pick(wide, emitter.AND32, emitter.AND64), true
	case token.OR:
		return pick(wide, emitter.OR32, emitter.OR64), true
	case token.XOR:
		return pick(wide, emitter.XOR32, emitter.XOR64), true
	case token.SHL, token.LTLT:
		return pick(wide, emitter.SHL32, emitter.SHL64), true
	case token.SHR, token.GTGT:
		return pick(wide, emitter.SHR32, emitter.SHR64), true
	case token.ASR:
		return pick(wide, emitter.SAR32, emitter.SAR64), true
	}
	return 0, false
}

func pick(wide bool, narrow, broad emitter.Op) emitter.Op {
	if wide {
		return broad
	}
	return narrow
}

// compileComparison emits the matching set-condition-flag instruction for
// op between left and right (already known to share common kind ck),
// producing a vFlag boolean result.
func (c *Compiler) compileComparison(left value, op token.Token, right value, ck types.Kind) value {
	var ct types.ID
	switch ck {
	case types.String, types.Pointer:
		ct = left.typ
	default:
		ct = idForKind(c, ck)
	}

	if ck == types.String {
		return c.compileStringComparison(left, op, right)
	}

	lv := c.load(c.coerceTo(left, ct))
	rv := c.load(c.coerceTo(right, ct))
	defer c.dropValue(rv)
	defer c.dropValue(lv)

	if ck.IsFloat() {
		fop, negate := floatCompareOp(op)
		c.em.EmitRR(fop, lv.reg, rv.reg)
		if negate {
			c.em.EmitNegFlag()
		}
		return value{kind: vFlag, typ: types.IDBool}
	}

	iop, negate := intCompareOp(op, ck)
	c.em.EmitRR(iop, lv.reg, rv.reg)
	if negate {
		c.em.EmitNegFlag()
	}
	return value{kind: vFlag, typ: types.IDBool}
}

func floatCompareOp(op token.Token) (o emitter.Op, negate bool) {
	switch op {
	case token.EQ:
		return emitter.FSEQ, false
	case token.NEQ:
		return emitter.FSNE, false
	case token.LT:
		return emitter.FSLT, false
	case token.GT:
		return emitter.FSGT, false
	case token.LE:
		return emitter.FSLE, false
	case token.GE:
		return emitter.FSGE, false
	}
	return emitter.FSEQ, false
}

// intCompareOp picks between the signed (ISLT/ISLE/ISGT/ISGE) and
// unsigned/equality (SEQ/SNE/SLT/SGT/SLE/SGE) families.
func intCompareOp(op token.Token, k types.Kind) (o emitter.Op, negate bool) {
	signed := k.IsSigned()
	switch op {
	case token.EQ:
		return emitter.SEQ, false
	case token.NEQ:
		return emitter.SNE, false
	case token.LT:
		if signed {
			return emitter.ISLT, false
		}
		return emitter.SLT, false
	case token.GT:
		if signed {
			return emitter.ISGT, false
		}
		return emitter.SGT, false
	case token.LE:
		if signed {
			return emitter.ISLE, false
		}
		return emitter.SLE, false
	case token.GE:
		if signed {
			return emitter.ISGE, false
		}
		return emitter.SGE, false
	}
	return emitter.SEQ, false
}

// compileStringComparison uses the three primitive STREQU/STRLT/STRGT
// instructions, composing <= and >= as a negation of the opposite strict
// comparison (no direct opcodes for those exist).
func (c *Compiler) compileStringComparison(left value, op token.Token, right value) value {
	lv := c.load(left)
	rv := c.load(right)
	defer c.dropValue(rv)
	defer c.dropValue(lv)

	switch op {
	case token.EQ:
		c.em.EmitRR(emitter.STREQU, lv.reg, rv.reg)
	case token.NEQ:
		c.em.EmitRR(emitter.STREQU, lv.reg, rv.reg)
		c.em.EmitNegFlag()
	case token.LT:
		c.em.EmitRR(emitter.STRLT, lv.reg, rv.reg)
	case token.GT:
		c.em.EmitRR(emitter.STRGT, lv.reg, rv.reg)
	case token.LE:
		c.em.EmitRR(emitter.STRGT, lv.reg, rv.reg)
		c.em.EmitNegFlag()
	case token.GE:
		c.em.EmitRR(emitter.STRLT, lv.reg, rv.reg)
		c.em.EmitNegFlag()
	}
	return value{kind: vFlag, typ: types.IDBool}
}

// foldLiteral evaluates op at compile time when both operands are literal,
// per spec.md §7's "non-constant in a constant context" and "division by
// zero at compile time" diagnostics. Returns ok=false to fall back to the
// normal typed/emitting path (e.g. when op isn't supported between these
// literal kinds), in which case no diagnostic has been raised yet.
func (c *Compiler) foldLiteral(left value, op token.Token, right value) (value, bool) {
	lk, rk := c.kindOf(left), c.kindOf(right)

	if lk == types.String || rk == types.String {
		if op == token.PLUS && lk == types.String && rk == types.String {
			return value{kind: vLiteral, typ: types.IDString, literal: symtab.LiteralValue{Str: left.literal.Str + right.literal.Str}}, true
		}
		if isComparison(op) && lk == types.String && rk == types.String {
			return value{kind: vLiteral, typ: types.IDBool, literal: symtab.LiteralValue{Bool: foldStringCompare(left.literal.Str, op, right.literal.Str)}}, true
		}
		return invalidValue(), false
	}

	if lk.IsFloat() || rk.IsFloat() {
		a, b := left.literal.Float, right.literal.Float
		if !lk.IsFloat() {
			a = float64(left.literal.Int)
		}
		if !rk.IsFloat() {
			b = float64(right.literal.Int)
		}
		if isComparison(op) {
			return value{kind: vLiteral, typ: types.IDBool, literal: symtab.LiteralValue{Bool: foldFloatCompare(a, op, b)}}, true
		}
		f, ok := foldFloatArith(a, op, b)
		if !ok {
			return invalidValue(), false
		}
		return value{kind: vLiteral, typ: types.IDF64, literal: symtab.LiteralValue{Float: f}}, true
	}

	if lk == types.Bool && rk == types.Bool {
		switch op {
		case token.AND:
			return value{kind: vLiteral, typ: types.IDBool, literal: symtab.LiteralValue{Bool: left.literal.Bool && right.literal.Bool}}, true
		case token.OR:
			return value{kind: vLiteral, typ: types.IDBool, literal: symtab.LiteralValue{Bool: left.literal.Bool || right.literal.Bool}}, true
		case token.XOR:
			return value{kind: vLiteral, typ: types.IDBool, literal: symtab.LiteralValue{Bool: left.literal.Bool != right.literal.Bool}}, true
		case token.EQ:
			return value{kind: vLiteral, typ: types.IDBool, literal: symtab.LiteralValue{Bool: left.literal.Bool == right.literal.Bool}}, true
		case token.NEQ:
			return value{kind: vLiteral, typ: types.IDBool, literal: symtab.LiteralValue{Bool: left.literal.Bool != right.literal.Bool}}, true
		}
		return invalidValue(), false
	}

	a, b := left.literal.Int, right.literal.Int
	if lk == types.Char {
		a = int64(left.literal.Str[0])
	}
	if rk == types.Char {
		b = int64(right.literal.Str[0])
	}
	if isComparison(op) {
		return value{kind: vLiteral, typ: types.IDBool, literal: symtab.LiteralValue{Bool: foldIntCompare(a, op, b)}}, true
	}
	iv, ok := c.foldIntArith(a, op, b)
	if !ok {
		return invalidValue(), false
	}
	rt := types.IDI32
	if ct := c.commonType(left, right); ct != types.InvalidID {
		rt = ct
	}
	return value{kind: vLiteral, typ: rt, literal: symtab.LiteralValue{Int: iv}}, true
}

func foldStringCompare(a string, op token.Token, b string) bool {
	switch op {
	case token.EQ:
		return a == b
	case token.NEQ:
		return a != b
	case token.LT:
		return a < b
	case token.GT:
		return a > b
	case token.LE:
		return a <= b
	case token.GE:
		return a >= b
	}
	return false
}

func foldFloatCompare(a float64, op token.Token, b float64) bool {
	switch op {
	case token.EQ:
		return a == b
	case token.NEQ:
		return a != b
	case token.LT:
		return a < b
	case token.GT:
		return a > b
	case token.LE:
		return a <= b
	case token.GE:
		return a >= b
	}
	return false
}

func foldFloatArith(a float64, op token.Token, b float64) (float64, bool) {
	switch op {
	case token.PLUS:
		return a + b, true
	case token.MINUS:
		return a - b, true
	case token.STAR:
		return a * b, true
	case token.SLASH:
		return a / b, true
	}
	return 0, false
}

func foldIntCompare(a int64, op token.Token, b int64) bool {
	switch op {
	case token.EQ:
		return a == b
	case token.NEQ:
		return a != b
	case token.LT:
		return a < b
	case token.GT:
		return a > b
	case token.LE:
		return a <= b
	case token.GE:
		return a >= b
	}
	return false
}

func (c *Compiler) foldIntArith(a int64, op token.Token, b int64) (int64, bool) {
	switch op {
	case token.PLUS:
		return a + b, true
	case token.MINUS:
		return a - b, true
	case token.STAR:
		return a * b, true
	case token.SLASH, token.DIV:
		if b == 0 {
			c.errorf("division by zero in constant expression")
			return 0, true
		}
		return a / b, true
	case token.MOD:
		if b == 0 {
			c.errorf("division by zero in constant expression")
			return 0, true
		}
		return a % b, true
	case token.AND:
		return a & b, true
	case token.OR:
		return a | b, true
	case token.XOR:
		return a ^ b, true
	case token.SHL, token.LTLT:
		return a << uint(b), true
	case token.SHR, token.GTGT, token.ASR:
		return a >> uint(b), true
	}
	return 0, false
}
