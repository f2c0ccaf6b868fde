package compiler

import (
	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/pvmlang/pvm/lang/types"
)

// coerceTo converts v (already a fully parsed expression) to target, per
// spec.md §4.3's widening/narrowing rules. Literal values emit no
// instructions: an integer literal converted to a float kind keeps its
// numeric value, a real literal converted to an integer kind is truncated
// toward zero, and any other literal is retagged. Register values emit the
// matching conversion opcode.
func (c *Compiler) coerceTo(v value, target types.ID) value {
	if v.kind == vInvalid || target == types.InvalidID {
		return v
	}
	if c.types.Equal(v.typ, target) {
		return v
	}
	srcKind, dstKind := c.kindOf(v), c.types.Get(target).Kind

	if v.kind == vLiteral {
		switch {
		case srcKind.IsFloat() && dstKind.IsInteger():
			v.literal.Int = int64(v.literal.Float)
		case srcKind.IsInteger() && dstKind.IsFloat():
			v.literal.Float = float64(v.literal.Int)
		}
		v.typ = target
		return v
	}

	rv := c.load(v)

	if dstKind == types.Pointer && srcKind == types.Pointer {
		rv.typ = target
		return rv
	}

	if srcKind == dstKind {
		rv.typ = target
		return rv
	}

	switch {
	case srcKind.IsFloat() && dstKind.IsFloat():
		r := c.em.AllocFPR()
		if srcKind == types.F32 {
			c.em.EmitRR(emitter.F32_TO_F64, r, rv.reg)
		} else {
			c.em.EmitRR(emitter.F64_TO_F32, r, rv.reg)
		}
		c.dropValue(rv)
		return value{kind: vRegister, typ: target, reg: r, float: true}

	case srcKind.IsFloat() && dstKind.IsInteger():
		r := c.em.AllocGPR()
		if is64Family(dstKind) {
			c.em.EmitRR(emitter.F64_TO_I64, r, rv.reg)
		} else {
			c.em.EmitRR(emitter.F32_TO_I32, r, rv.reg)
		}
		c.dropValue(rv)
		return value{kind: vRegister, typ: target, reg: r}

	case srcKind.IsInteger() && dstKind.IsFloat():
		r := c.em.AllocFPR()
		op := emitter.I32_TO_F32
		switch {
		case is64Family(srcKind) && dstKind == types.F64:
			op = emitter.I64_TO_F64
		case is64Family(srcKind):
			op = emitter.I64_TO_F32
		case dstKind == types.F64:
			op = emitter.I32_TO_F64
		}
		c.em.EmitRR(op, r, rv.reg)
		c.dropValue(rv)
		return value{kind: vRegister, typ: target, reg: r, float: true}

	default:
		// integer-to-integer width change: widen with sign/zero extend, or
		// narrow with a plain register move (the low bits already hold the
		// truncated value; spec.md §4.3 does not require masking on narrowing).
		r := c.em.AllocGPR()
		if op, ok := widenOp(srcKind, dstKind); ok {
			c.em.EmitRR(op, r, rv.reg)
		} else if is64Family(dstKind) && !is64Family(srcKind) {
			c.em.EmitRR(emitter.SX32_64, r, rv.reg)
		} else if is64Family(srcKind) && !is64Family(dstKind) {
			c.em.EmitRR(emitter.MOV32, r, rv.reg)
		} else {
			c.em.EmitRR(emitter.MOV32, r, rv.reg)
		}
		c.dropValue(rv)
		return value{kind: vRegister, typ: target, reg: r}
	}
}

// widenOp picks the explicit zero/sign-extend opcode for a sub-word
// widening, or reports ok=false when a plain MOV handles it (same-width or
// narrowing moves).
func widenOp(src, dst types.Kind) (emitter.Op, bool) {
	to64 := is64Family(dst)
	switch src {
	case types.I8:
		if to64 {
			return emitter.SX8_64, true
		}
		return emitter.SX8_32, true
	case types.U8, types.Bool, types.Char:
		if to64 {
			return emitter.ZX8_64, true
		}
		return emitter.ZX8_32, true
	case types.I16:
		if to64 {
			return emitter.SX16_64, true
		}
		return emitter.SX16_32, true
	case types.U16:
		if to64 {
			return emitter.ZX16_64, true
		}
		return emitter.ZX16_32, true
	}
	return 0, false
}

// commonType computes the coercion target for a binary operation between a
// and b per spec.md §4.3, resolving the pointer/string/record cases the
// Kind-only types.Coerce table defers to the compiler.
func (c *Compiler) commonType(a, b value) types.ID {
	ak, bk := c.kindOf(a), c.kindOf(b)
	if ak == types.String || bk == types.String {
		if ak == types.String && bk == types.String {
			return a.typ
		}
		return types.InvalidID
	}
	if ak == types.Pointer && bk == types.Pointer {
		return a.typ
	}
	ck := types.Coerce(ak, bk)
	if ck == types.Invalid {
		return types.InvalidID
	}
	if ck == ak {
		return a.typ
	}
	if ck == bk {
		return b.typ
	}
	return idForKind(c, ck)
}

func idForKind(c *Compiler, k types.Kind) types.ID {
	switch k {
	case types.I8:
		return types.IDI8
	case types.U8:
		return types.IDU8
	case types.I16:
		return types.IDI16
	case types.U16:
		return types.IDU16
	case types.I32:
		return types.IDI32
	case types.U32:
		return types.IDU32
	case types.I64:
		return types.IDI64
	case types.U64:
		return types.IDU64
	case types.F32:
		return types.IDF32
	case types.F64:
		return types.IDF64
	case types.Bool:
		return types.IDBool
	case types.Char:
		return types.IDChar
	case types.String:
		return types.IDString
	}
	return types.InvalidID
}
