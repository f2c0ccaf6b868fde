package compiler

import (
	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/pvmlang/pvm/lang/machine"
	"github.com/pvmlang/pvm/lang/symtab"
	"github.com/pvmlang/pvm/lang/types"
)

// compileCall compiles a call expression: callee is whatever parsePrimary/
// parsePostfix already resolved (a bare subroutine/builtin reference, or a
// pointer-to-subroutine value for an indirect call), args are the already
// fully parsed and type-checked argument expressions.
func (c *Compiler) compileCall(callee value, args []value) value {
	if callee.kind == vInvalid {
		return invalidValue()
	}
	if callee.kind == vTypename {
		return c.compileCast(callee, args)
	}
	if callee.kind == vCallable {
		if callee.sym.Binding.Kind == symtab.BindBuiltin {
			return c.compileBuiltinCall(callee.sym.Binding.Builtin, args)
		}
		return c.compileDirectCall(callee, args)
	}
	if c.kindOf(callee) == types.Pointer {
		d := c.types.Get(callee.typ)
		if d.Pointee != types.NoPointee && c.types.Get(d.Pointee).Kind == types.Subroutine {
			return c.compileIndirectCall(callee, d.Pointee, args)
		}
	}
	c.errorf("expression is not callable")
	return invalidValue()
}

// compileCast implements spec.md §3's typename-only binding: a bare type
// name followed by a single parenthesized argument reinterprets/converts
// that argument to the named type, reusing conv.go's implicit widen/
// narrow/convert machinery. Grounded on the original's FactorVariable
// (Compiler/Expr.c:708-712), which dispatches `typename(expr)` to
// ConvertTypeExplicitly before the parse ever reaches ordinary call
// resolution.
func (c *Compiler) compileCast(callee value, args []value) value {
	if len(args) != 1 {
		c.errorf("type cast to %q expects exactly one argument", callee.sym.Name)
		for _, a := range args {
			c.releaseUnused(a)
		}
		return invalidValue()
	}
	return c.coerceTo(args[0], callee.typ)
}

// writeTag maps v's static type to the ValueTag the WRITE syscall uses to
// decode it (lang/machine/format.go), or ok=false if the type cannot be
// written.
func writeTag(c *Compiler, v value) (machine.ValueTag, bool) {
	k := c.kindOf(v)
	switch k {
	case types.I8, types.I16, types.I32:
		return machine.TagInt32, true
	case types.I64:
		return machine.TagInt64, true
	case types.U8, types.U16, types.U32:
		return machine.TagUint32, true
	case types.U64:
		return machine.TagUint64, true
	case types.F32:
		return machine.TagFloat32, true
	case types.F64:
		return machine.TagFloat64, true
	case types.Bool:
		return machine.TagBool, true
	case types.Char:
		return machine.TagChar, true
	case types.String:
		return machine.TagString, true
	}
	return 0, false
}

// compileBuiltinCall implements the predeclared I/O procedures and the
// sizeof intrinsic (builtin.go's declareBuiltins). write/writeln marshal
// their arguments through the WRITE syscall's (value, tag) register-pushed
// convention; read/readln are recognized for source compatibility but
// compile to nothing, since the instruction set has no interactive-input
// opcode (this VM runs single-pass, non-suspending, to completion or trap
// — spec.md §5).
func (c *Compiler) compileBuiltinCall(name string, args []value) value {
	switch name {
	case "write", "writeln":
		c.compileWrite(args, name == "writeln")
		return invalidValue()
	case "read", "readln":
		for _, a := range args {
			c.releaseUnused(a)
		}
		return invalidValue()
	case "sizeof":
		return c.compileSizeof(args)
	}
	c.errorf("unknown builtin %q", name)
	return invalidValue()
}

// compileSizeof resolves to the byte size of its single argument's static
// type as a compile-time I32 literal, never emitting any code — the
// argument may be an ordinary expression (`sizeof(arr[0])`) or a bare
// typename (`sizeof(TArray)`), since both carry the static type this needs
// and neither is evaluated at runtime. Grounded on the original's
// VAR_TYPENAME propagation through FactorVariable/fieldAccess/ArrayAccess
// (Compiler/Expr.c:456,489-493,716), which plumbs a type name through `.`
// and `[]` postfixes for exactly this FPC-style `sizeof(arr)/sizeof(arr[0])`
// idiom.
func (c *Compiler) compileSizeof(args []value) value {
	if len(args) != 1 {
		c.errorf("sizeof expects exactly one argument")
		for _, a := range args {
			c.releaseUnused(a)
		}
		return invalidValue()
	}
	size := c.types.Get(args[0].typ).Size
	c.releaseUnused(args[0])
	return value{kind: vLiteral, typ: types.IDI32, literal: symtab.LiteralValue{Int: int64(size)}}
}

// releaseUnused frees any register a parsed-but-otherwise-discarded
// argument holds (e.g. a dynamic array index's computed base pointer),
// without emitting a load.
func (c *Compiler) releaseUnused(v value) {
	if v.kind == vMemory && v.hasBaseReg {
		c.em.Free(v.baseReg, false)
		return
	}
	c.dropValue(v)
}

// compileWrite marshals args through the WRITE syscall: gpr0/gpr1 (the
// syscall's argc/fd slots) are saved and restored around the whole
// sequence since they may currently hold a live value unrelated to this
// call; each argument pushes its value register then a register holding
// its ValueTag, in source order (lang/machine/format.go); writeln appends
// a trailing newline as a synthesized string argument.
func (c *Compiler) compileWrite(args []value, newline bool) {
	c.em.EmitRegList(emitter.PUSHREGS, 0x3)

	argc := 0
	for _, a := range args {
		tag, ok := writeTag(c, a)
		if !ok {
			c.errorf("value is not writable")
			c.releaseUnused(a)
			continue
		}
		c.pushWriteArg(a, tag)
		argc++
	}
	if newline {
		idx := c.chunk.AddString("\n")
		r := c.em.AllocGPR()
		c.em.EmitSLit(r, idx)
		c.pushWriteArg(value{kind: vRegister, typ: types.IDString, reg: r}, machine.TagString)
		argc++
	}

	c.em.EmitIntImm(0, int64(argc), emitter.W32)
	c.em.EmitIntImm(1, 0, emitter.W32) // fd 0: standard output
	c.em.EmitWrite()

	c.em.EmitRegList(emitter.POPREGS, 0x3)
}

func (c *Compiler) pushWriteArg(a value, tag machine.ValueTag) {
	rv := c.load(a)
	op := emitter.PUSHREGS
	if rv.float {
		op = emitter.PUSHFREGS
	}
	c.em.EmitRegList(op, uint16(1)<<uint(rv.reg))
	c.dropValue(rv)

	tagReg := c.em.AllocGPR()
	c.em.EmitIntImm(tagReg, int64(tag), emitter.W32)
	c.em.EmitRegList(emitter.PUSHREGS, uint16(1)<<uint(tagReg))
	c.em.Free(tagReg, false)
}

// compileDirectCall compiles a call to a user-declared subroutine named by
// callee.sym, applying the default calling convention of spec.md §4.4.4.
func (c *Compiler) compileDirectCall(callee value, args []value) value {
	d := c.types.Get(callee.typ)
	if len(args) != len(d.Params) {
		c.errorf("%q expects %d argument(s), got %d", callee.sym.Name, len(d.Params), len(args))
		return invalidValue()
	}
	returnsRecord := d.HasReturn && c.types.Get(d.Return).Kind == types.Record
	returnsFloat := d.HasReturn && c.types.Get(d.Return).Kind.IsFloat()
	cs := c.em.SaveCallerRegs(returnsFloat)

	var dest value
	if returnsRecord {
		dest = c.allocTempRecord(d.Return)
		dbase, ddisp := c.resolveBase(dest)
		c.em.EmitLEA(emitter.HiddenReturnArgSlot, dbase, ddisp)
	}
	c.emitCallArgs(d, args, returnsRecord)

	sub := callee.sym.Binding.Subroutine
	pc := c.em.EmitCall()
	if sub.Defined {
		c.em.Patch(pc, uint32(sub.EntryOffset), emitter.PatchBRFamily)
	} else {
		c.fwd.record(pc, sub.ID, emitter.PatchBRFamily)
	}

	var result value
	if returnsRecord {
		result = dest
	} else {
		result = c.captureReturn(d)
	}
	c.em.RestoreCallerRegs(cs)
	return result
}

// compileIndirectCall compiles a call through a pointer-to-subroutine
// value, e.g. a variable of type `^procedure(...)`.
func (c *Compiler) compileIndirectCall(callee value, subType types.ID, args []value) value {
	d := c.types.Get(subType)
	if len(args) != len(d.Params) {
		c.errorf("expects %d argument(s), got %d", len(d.Params), len(args))
		return invalidValue()
	}
	returnsRecord := d.HasReturn && c.types.Get(d.Return).Kind == types.Record
	returnsFloat := d.HasReturn && c.types.Get(d.Return).Kind.IsFloat()

	ptr := c.load(callee)
	cs := c.em.SaveCallerRegs(returnsFloat)

	var dest value
	if returnsRecord {
		dest = c.allocTempRecord(d.Return)
		dbase, ddisp := c.resolveBase(dest)
		c.em.EmitLEA(emitter.HiddenReturnArgSlot, dbase, ddisp)
	}
	c.emitCallArgs(d, args, returnsRecord)

	c.em.EmitCallPtr(ptr.reg)
	c.em.Free(ptr.reg, false)

	var result value
	if returnsRecord {
		result = dest
	} else {
		result = c.captureReturn(d)
	}
	c.em.RestoreCallerRegs(cs)
	return result
}

// allocTempRecord reserves a word-aligned slot in the caller's own frame to
// receive a record-valued call's result, addressed through the hidden
// pointer argument (spec.md §4.4.4).
func (c *Compiler) allocTempRecord(typ types.ID) value {
	size := c.types.Get(typ).Size
	off := c.em.GrowFrame(size)
	return value{kind: vMemory, typ: typ, memClass: symtab.MemLocal, memOffset: off}
}

// paramSlot describes where one subroutine parameter lives under the
// default calling convention (spec.md §4.4.4): shared between call-site
// argument placement (emitCallArgs) and the callee's own parameter-binding
// prologue (decl.go's subroutineDecl), so the two sides can never disagree.
type paramSlot struct {
	reg         int  // argument register index, -1 if stack-passed
	float       bool
	stackOffset int // byte offset into the stack-argument area, if reg == -1
	words       int // stack words consumed when reg == -1 (>1 only for a record)
}

// layoutParams assigns every parameter in params to a register or a stack
// slot. When hiddenReturn is set, argument-register 0 is pre-claimed for
// the caller's record-return destination pointer, exactly as the call site
// reserves it in compileDirectCall/compileIndirectCall.
func layoutParams(types_ *types.Arena, params []types.Param, hiddenReturn bool) ([]paramSlot, int) {
	intIdx, floatIdx, stackIdx := 0, 0, 0
	if hiddenReturn {
		intIdx = 1
	}
	slots := make([]paramSlot, len(params))
	for i, p := range params {
		d := types_.Get(p.Type)
		if d.Kind == types.Record {
			words := (d.Size + types.WordSize - 1) / types.WordSize
			slots[i] = paramSlot{reg: -1, stackOffset: stackIdx * types.WordSize, words: words}
			stackIdx += words
			continue
		}
		float := d.Kind.IsFloat()
		idx := argIndexFor(float, &intIdx, &floatIdx)
		if reg, ok := emitter.ArgRegister(idx, float); ok {
			slots[i] = paramSlot{reg: reg, float: float}
			continue
		}
		slots[i] = paramSlot{reg: -1, float: float, stackOffset: stackIdx * types.WordSize, words: 1}
		stackIdx++
	}
	return slots, stackIdx
}

// emitCallArgs evaluates and places every argument per the layout
// layoutParams computes: the first four integer/pointer args and first
// four float args load into their fixed argument registers, the rest are
// written directly into [SP + k*WordSize] for increasing k in left-to-right
// order — the exact region the callee's own ENTER is about to claim as the
// bottom of its frame (see decl.go's parameter layout).
// Record-valued arguments are always passed on the caller's stack by
// value (MEMCPY'd into the reserved slot), regardless of the register
// budget: a record never occupies an argument register.
func (c *Compiler) emitCallArgs(d *types.Descriptor, args []value, hiddenReturn bool) {
	slots, _ := layoutParams(c.types, d.Params, hiddenReturn)
	for i, a := range args {
		p := d.Params[i]
		slot := slots[i]
		if c.types.Get(p.Type).Kind == types.Record {
			c.emitRecordArg(a, p.Type, slot.stackOffset/types.WordSize)
			continue
		}
		rv := c.load(c.coerceTo(a, p.Type))
		if slot.reg >= 0 {
			if rv.float {
				if slot.reg != rv.reg {
					c.em.EmitRR(emitter.MOVF64, slot.reg, rv.reg)
				}
			} else if slot.reg != rv.reg {
				c.em.EmitRR(emitter.MOV64, slot.reg, rv.reg)
			}
			c.dropValue(rv)
			continue
		}
		c.em.EmitLoadStore(true, rv.reg, emitter.RegSP, int32(slot.stackOffset), emitter.W64, false)
		c.dropValue(rv)
	}
}

// emitRecordArg copies a record argument's bytes into the stack-argument
// region starting at slot stackIdx, returning how many WordSize slots it
// consumed.
func (c *Compiler) emitRecordArg(a value, typ types.ID, stackIdx int) int {
	size := c.types.Get(typ).Size
	sbase, sdisp := c.resolveBase(a)
	sptr := c.em.AllocGPR()
	c.em.EmitLEA(sptr, sbase, sdisp)
	dptr := c.em.AllocGPR()
	c.em.EmitLEA(dptr, emitter.RegSP, int32(stackIdx*types.WordSize))
	c.em.EmitMemcpy(dptr, sptr, uint32(size))
	c.em.Free(dptr, false)
	c.em.Free(sptr, false)
	if a.hasBaseReg {
		c.em.Free(a.baseReg, false)
	}
	return (size + types.WordSize - 1) / types.WordSize
}

// argIndexFor advances and returns the per-kind argument-register counter
// (int/pointer args and float args are numbered independently, each against
// their own 4-register budget, per spec.md §4.4.4).
func argIndexFor(float bool, intIdx, floatIdx *int) int {
	if float {
		i := *floatIdx
		*floatIdx++
		return i
	}
	i := *intIdx
	*intIdx++
	return i
}

// captureReturn reads a subroutine's result out of the fixed return
// register. Record returns never reach here: compileDirectCall and
// compileIndirectCall handle them directly, since the result is the
// caller-allocated temp slot itself, not anything the callee leaves in a
// register.
func (c *Compiler) captureReturn(d *types.Descriptor) value {
	if !d.HasReturn {
		return invalidValue()
	}
	rk := c.types.Get(d.Return).Kind
	if rk.IsFloat() {
		r := c.em.AllocFPR()
		if r != emitter.ReturnFPR {
			c.em.EmitRR(emitter.MOVF64, r, emitter.ReturnFPR)
		}
		return value{kind: vRegister, typ: d.Return, reg: r, float: true}
	}
	r := c.em.AllocGPR()
	if r != emitter.ReturnGPR {
		c.em.EmitRR(emitter.MOV64, r, emitter.ReturnGPR)
	}
	return value{kind: vRegister, typ: d.Return, reg: r}
}
