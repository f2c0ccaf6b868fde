package compiler

import (
	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/pvmlang/pvm/lang/symtab"
	"github.com/pvmlang/pvm/lang/types"
)

// valueKind discriminates where an in-flight expression result currently
// lives, mirroring the storage-class cases spec.md §3's Binding union
// describes for symbols, plus two expression-only cases (vFlag, the VM
// condition flag; vTypename, a bare type name used only in cast/sizeof
// position).
type valueKind uint8

const (
	vInvalid valueKind = iota
	vLiteral
	vRegister
	vFlag
	vMemory
	vTypename
	vCallable // names a subroutine or builtin I/O procedure; sym holds which
)

// value is the Pratt parser's synthesized-attribute: every parse function
// in expr.go returns one, describing both the static type and the runtime
// location of the just-compiled (sub)expression.
type value struct {
	kind valueKind
	typ  types.ID

	literal symtab.LiteralValue

	reg   int
	float bool

	memClass  symtab.MemoryClass
	memOffset int

	// hasBaseReg, when set, overrides memClass for addressing: the memory
	// operand lives at [baseReg + memOffset] rather than the FP/GP-relative
	// slot memClass would otherwise name. Produced by pointer dereference
	// and dynamic array indexing, which compute their own base address into
	// a register.
	hasBaseReg bool
	baseReg    int

	sym *symtab.Symbol // set for vTypename and vCallable
}

func invalidValue() value { return value{kind: vInvalid, typ: types.InvalidID} }

func (c *Compiler) kindOf(v value) types.Kind { return c.types.Get(v.typ).Kind }

// isBool reports whether v's static type is boolean.
func (c *Compiler) isBool(v value) bool { return c.kindOf(v) == types.Bool }

// memBaseAndDisp returns the base register a memory slot of class mc is
// addressed from (RegGP for globals, RegFP for locals and arguments), plus
// the displacement from it, per the addressing convention fixed in
// lang/machine: RegGP selects the globals space, any other base register
// selects the unified stack space at that absolute offset.
func (c *Compiler) memBaseAndDisp(mc symtab.MemoryClass, offset int) (base int, disp int32) {
	switch mc {
	case symtab.MemGlobal:
		return emitter.RegGP, int32(offset)
	case symtab.MemLocal, symtab.MemArg:
		return emitter.RegFP, int32(offset)
	}
	return emitter.RegFP, int32(offset)
}

// resolveBase returns the (base register, displacement) pair a vMemory
// value addresses, honoring hasBaseReg's override for dereferenced
// pointers and dynamically indexed arrays.
func (c *Compiler) resolveBase(v value) (base int, disp int32) {
	if v.hasBaseReg {
		return v.baseReg, int32(v.memOffset)
	}
	return c.memBaseAndDisp(v.memClass, v.memOffset)
}

// load materializes v into a register if it is not already in one,
// allocating a fresh register for memory/literal/flag sources. The caller
// owns the returned register and must eventually free it via c.dropValue
// unless it is handed off (e.g. as the destination of an assignment).
func (c *Compiler) load(v value) value {
	switch v.kind {
	case vRegister:
		return v
	case vFlag:
		return c.materializeFlag(v)
	case vLiteral:
		return c.loadLiteral(v)
	case vMemory:
		return c.loadMemory(v)
	}
	return v
}

func (c *Compiler) materializeFlag(v value) value {
	r := c.em.AllocGPR()
	c.em.EmitGetFlag(r)
	return value{kind: vRegister, typ: v.typ, reg: r}
}

func (c *Compiler) loadLiteral(v value) value {
	k := c.kindOf(v)
	if k.IsFloat() {
		r := c.em.AllocFPR()
		w := emitter.WF64
		if k == types.F32 {
			w = emitter.WF32
		}
		c.em.EmitFloatImm(r, v.literal.Float, w)
		return value{kind: vRegister, typ: v.typ, reg: r, float: true}
	}
	if k == types.String {
		r := c.em.AllocGPR()
		idx := c.chunk.AddString(v.literal.Str)
		c.em.EmitSLit(r, idx)
		return value{kind: vRegister, typ: v.typ, reg: r}
	}
	r := c.em.AllocGPR()
	iv := v.literal.Int
	if k == types.Bool {
		iv = 0
		if v.literal.Bool {
			iv = 1
		}
	} else if k == types.Char {
		iv = int64(v.literal.Str[0])
	}
	w := emitter.W32
	if k == types.I64 || k == types.U64 {
		w = emitter.W64
	}
	c.em.EmitIntImm(r, iv, w)
	return value{kind: vRegister, typ: v.typ, reg: r}
}

func (c *Compiler) loadMemory(v value) value {
	base, disp := c.resolveBase(v)
	k := c.kindOf(v)
	var result value
	if k.IsFloat() {
		r := c.em.AllocFPR()
		c.em.EmitLoadStore(false, r, base, disp, kindWidth(k), false)
		result = value{kind: vRegister, typ: v.typ, reg: r, float: true}
	} else {
		r := c.em.AllocGPR()
		c.em.EmitLoadStore(false, r, base, disp, kindWidth(k), k.IsSigned())
		result = value{kind: vRegister, typ: v.typ, reg: r}
	}
	if v.hasBaseReg {
		c.em.Free(v.baseReg, false)
	}
	return result
}

// store writes src into dst's memory slot. Used by assignment and by
// initializers.
func (c *Compiler) store(dst value, src value) {
	base, disp := c.resolveBase(dst)
	k := c.kindOf(dst)

	if k == types.Record {
		size := c.types.Get(dst.typ).Size
		dptr := c.em.AllocGPR()
		c.em.EmitLEA(dptr, base, disp)
		sbase, sdisp := c.resolveBase(src)
		sptr := c.em.AllocGPR()
		c.em.EmitLEA(sptr, sbase, sdisp)
		c.em.EmitMemcpy(dptr, sptr, uint32(size))
		c.em.Free(dptr, false)
		c.em.Free(sptr, false)
		if dst.hasBaseReg {
			c.em.Free(dst.baseReg, false)
		}
		if src.hasBaseReg {
			c.em.Free(src.baseReg, false)
		}
		return
	}

	rv := c.load(c.coerceTo(src, dst.typ))
	c.em.EmitLoadStore(true, rv.reg, base, disp, kindWidth(k), false)
	c.dropValue(rv)
	if dst.hasBaseReg {
		c.em.Free(dst.baseReg, false)
	}
}

// dropValue frees a value's register, if it owns one. Literal, memory, and
// flag values own no register and are no-ops.
func (c *Compiler) dropValue(v value) {
	if v.kind == vRegister {
		c.em.Free(v.reg, v.float)
	}
}

// kindWidth maps a scalar Kind to the Width tag LOAD/STORE/MOVI use to pick
// 8/16/32/64-bit or float register-machine family.
func kindWidth(k types.Kind) emitter.Width {
	switch k {
	case types.I8, types.U8, types.Bool, types.Char:
		return emitter.W8
	case types.I16, types.U16:
		return emitter.W16
	case types.I32, types.U32:
		return emitter.W32
	case types.F32:
		return emitter.WF32
	case types.F64:
		return emitter.WF64
	default:
		return emitter.W64
	}
}

// is64Family reports whether k's arithmetic instructions come from the
// 64-bit opcode half (ADD64 vs ADD32 etc).
func is64Family(k types.Kind) bool {
	switch k {
	case types.I64, types.U64, types.F64, types.Pointer, types.String:
		return true
	}
	return false
}
