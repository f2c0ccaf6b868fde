package machine

import (
	"fmt"
	"math"
)

// ValueTag selects how the WRITE syscall decodes and formats one argument
// (spec.md §4.6's "write runtime formatting routine"). For each argument,
// in left-to-right source order, the compiler pushes a register holding the
// value (via PUSHREGS/PUSHFREGS, zero/sign-extended to a full word) and
// then a register holding the tag; the VM pops them back in reverse (see
// Thread.execWrite).
type ValueTag uint8

const (
	TagInt32 ValueTag = iota
	TagInt64
	TagUint32
	TagUint64
	TagFloat32
	TagFloat64
	TagBool
	TagChar
	TagString
)

// formatTagged pops this argument's value word (pushed immediately before
// its tag) and renders it the way a Pascal WRITE statement would: integers
// plain, booleans as TRUE/FALSE, characters as a single rune, strings
// verbatim, floats in a fixed decimal form.
func (t *Thread) formatTagged(tag ValueTag) string {
	v := t.stack.PopU64()
	switch tag {
	case TagInt32:
		return fmt.Sprintf("%d", int32(uint32(v)))
	case TagInt64:
		return fmt.Sprintf("%d", int64(v))
	case TagUint32:
		return fmt.Sprintf("%d", uint32(v))
	case TagUint64:
		return fmt.Sprintf("%d", v)
	case TagFloat32:
		// PUSHFREGS pushes float64 bits for every FPR, single or double.
		return formatFloat(float64(float32(math.Float64frombits(v))))
	case TagFloat64:
		return formatFloat(math.Float64frombits(v))
	case TagBool:
		if v != 0 {
			return "TRUE"
		}
		return "FALSE"
	case TagChar:
		return string(rune(uint32(v)))
	case TagString:
		return t.strAt(v).String()
	default:
		panic(Trap{Kind: TrapIllegalInstruction})
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
