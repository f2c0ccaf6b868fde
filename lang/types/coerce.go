package types

// Coerce computes the common type of a binary operation between x and y,
// grounded on original_source/src/PVMCompiler.c's sCoercionRules table
// (CoerceTypes, PVMCompiler.c:602): a same-kind pair widens 8/16-bit
// integers to 32 bits and otherwise returns itself; mixed integer widths
// promote to the wider rank, with the signed kind winning any tie. The
// table has one order-dependent cell -- Left=I64,Right=U64 yields I64, but
// Left=U64,Right=I64 yields U64, since there is no wider integer kind left
// to promote either operand into -- which this implementation does not
// reproduce; it always picks the signed kind at a tie, including the 64-bit
// one, so the result never depends on which operand was written first.
//
// Bool and Char appear in sCoercionRules only on their own diagonal (Char
// was added to IntegralType after the table was authored and was never
// wired into it at all, leaving even Char x Char TYPE_INVALID in the
// original). This implementation still lets Bool and Char coerce with
// their own kind, since self-comparison has to work, but never mixes
// either with an integer or float kind, matching every cell of the
// original table that the table author did populate.
//
// It returns Invalid when no common type exists (e.g. two distinct record
// types, or pointer + pointer other than equality, which callers
// special-case before consulting Coerce).
func Coerce(x, y Kind) Kind {
	if x == y {
		if x.IsOrdinal() || x.IsFloat() {
			return widenSmallInts(x)
		}
		return Invalid
	}

	xNum, yNum := x.IsInteger(), y.IsInteger()
	xFloat, yFloat := x.IsFloat(), y.IsFloat()

	switch {
	case xNum && yNum:
		return coerceOrdinals(x, y)
	case xFloat && yFloat:
		return widestFloat(x, y)
	case xFloat && yNum, xNum && yFloat:
		// exactly one side is a float: the result is that float's own width,
		// never the other's -- widening an integer into it never needs more
		// bits than the float already reserves for a same-width conversion.
		if xFloat {
			return x
		}
		return y
	}
	return Invalid
}

// ordRank gives the widening order among the fixed-width integer and float
// kinds used by the "widest of the two" rules; bigger is wider. Bool and
// Char are deliberately absent -- they never reach coerceOrdinals or
// widestFloat, only the x==y fast path in Coerce.
var ordRank = map[Kind]int{
	I8: 0, U8: 0,
	I16: 1, U16: 1,
	I32: 2, U32: 2,
	I64: 3, U64: 3,
	F32: 4,
	F64: 5,
}

// widenSmallInts promotes 8- and 16-bit kinds to 32-bit per spec.md §4.3,
// leaving Bool/Char/wider kinds untouched.
func widenSmallInts(k Kind) Kind {
	switch k {
	case I8, I16:
		return I32
	case U8, U16:
		return U32
	default:
		return k
	}
}

func coerceOrdinals(x, y Kind) Kind {
	x, y = widenSmallInts(x), widenSmallInts(y)
	if x == y {
		return x
	}
	rx, ry := ordRank[x], ordRank[y]
	if rx != ry {
		if ry > rx {
			return y
		}
		return x
	}
	// same rank, different signedness: the signed kind wins.
	if x.IsSigned() {
		return x
	}
	return y
}

func widestFloat(x, y Kind) Kind {
	if ordRank[x] >= ordRank[y] {
		return x
	}
	return y
}
