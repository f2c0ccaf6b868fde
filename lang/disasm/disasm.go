// Package disasm renders a Chunk's code vector back to mnemonic text, the
// round-trip half of spec.md §8's testable property ("disassembling a
// compiled chunk and re-assembling the mnemonics recovers the same branch
// targets").
package disasm

import (
	"fmt"
	"math"
	"strings"

	"github.com/pvmlang/pvm/lang/chunk"
	"github.com/pvmlang/pvm/lang/emitter"
)

// Line is one disassembled instruction: its code offset, mnemonic text, and
// the number of 16-bit words it occupies.
type Line struct {
	PC     uint32
	Text   string
	Words  uint32
	Source int32 // -1 if the chunk carries no debug info at this PC
}

// Decode disassembles the entirety of c.Code into a sequence of Lines.
func Decode(c *chunk.Chunk) []Line {
	var lines []Line
	pc := uint32(0)
	for pc < uint32(len(c.Code)) {
		l := decodeOne(c, pc)
		lines = append(lines, l)
		pc += l.Words
	}
	return lines
}

// Text joins Decode's output into a multi-line listing, one instruction per
// line, in the textual form a human reader (or the teacher's repo's asm
// dumps) would expect: "<pc>: <mnemonic> <operands>".
func Text(c *chunk.Chunk) string {
	var b strings.Builder
	for _, l := range Decode(c) {
		fmt.Fprintf(&b, "%6d: %s\n", l.PC, l.Text)
	}
	return b.String()
}

func decodeOne(c *chunk.Chunk, pc uint32) Line {
	w := c.Code[pc]
	op := emitter.Op(w >> 8)
	rd := int((w >> 4) & 0xf)
	rs := int(w & 0xf)
	line, ok := c.LineFor(pc)
	src := int32(-1)
	if ok {
		src = line
	}

	switch op {
	case emitter.BEZ, emitter.BNZ:
		off := emitter.DecodeOffset(c.Code, pc, emitter.PatchBEZBNZ)
		target := int64(pc) + 2 + off
		return Line{pc, fmt.Sprintf("%s r%d, %d", op, rd, target), 2, src}

	case emitter.BR, emitter.BCT, emitter.BCF, emitter.CALL:
		off := emitter.DecodeOffset(c.Code, pc, emitter.PatchBRFamily)
		target := int64(pc) + 2 + off
		return Line{pc, fmt.Sprintf("%s %d", op, target), 2, src}

	case emitter.BRI:
		off := emitter.DecodeOffset(c.Code, pc, emitter.PatchBRI)
		target := int64(pc) + 2 + off
		inc := int8(rs << 4) >> 4
		return Line{pc, fmt.Sprintf("%s r%d, %d, %d", op, rd, inc, target), 2, src}

	case emitter.LDRIP:
		off := emitter.DecodeOffset(c.Code, pc, emitter.PatchLDRIP)
		target := int64(pc) + 3 + off
		return Line{pc, fmt.Sprintf("%s r%d, %d", op, rd, target), 3, src}

	case emitter.LOAD, emitter.STORE:
		disp := int16(c.Code[pc+1])
		return Line{pc, fmt.Sprintf("%s r%d, [r%d%+d]", op, rd, rs, disp), 2, src}

	case emitter.LOADL, emitter.STOREL:
		disp := int32(uint32(c.Code[pc+1]) | uint32(c.Code[pc+2])<<16)
		return Line{pc, fmt.Sprintf("%s r%d, [r%d%+d]", op, rd, rs, disp), 3, src}

	case emitter.LEA:
		disp := int16(c.Code[pc+1])
		return Line{pc, fmt.Sprintf("%s r%d, [r%d%+d]", op, rd, rs, disp), 2, src}
	case emitter.LEAL:
		disp := int32(uint32(c.Code[pc+1]) | uint32(c.Code[pc+2])<<16)
		return Line{pc, fmt.Sprintf("%s r%d, [r%d%+d]", op, rd, rs, disp), 3, src}

	case emitter.MEMCPY:
		n := uint32(c.Code[pc+1]) | uint32(c.Code[pc+2])<<16
		return Line{pc, fmt.Sprintf("%s r%d, r%d, %d", op, rd, rs, n), 3, src}

	case emitter.ENTER:
		size := uint32(c.Code[pc+1]) | uint32(c.Code[pc+2])<<16
		return Line{pc, fmt.Sprintf("%s %d", op, size), 3, src}

	case emitter.MOVI:
		width := emitter.Width(rs)
		n := width.ImmWords()
		var bits uint64
		for i := 0; i < n; i++ {
			bits |= uint64(c.Code[pc+1+uint32(i)]) << (16 * i)
		}
		return Line{pc, fmt.Sprintf("%s r%d, %s", op, rd, formatImm(width, bits)), 1 + uint32(n), src}

	case emitter.MOVQI:
		imm := int8(rs << 4) >> 4
		return Line{pc, fmt.Sprintf("%s r%d, %d", op, rd, imm), 1, src}

	case emitter.SLIT:
		idx := c.Code[pc+1]
		text := "?"
		if int(idx) < len(c.Strings) {
			text = fmt.Sprintf("%q", c.Strings[idx])
		}
		return Line{pc, fmt.Sprintf("%s r%d, %s", op, rd, text), 2, src}

	case emitter.PUSHREGS, emitter.POPREGS, emitter.PUSHFREGS, emitter.POPFREGS:
		bitmap := c.Code[pc+1]
		return Line{pc, fmt.Sprintf("%s %s", op, regListText(bitmap)), 2, src}

	case emitter.NOP, emitter.EXIT, emitter.WRITE, emitter.NEGFLAG:
		return Line{pc, op.String(), 1, src}

	case emitter.GETFLAG, emitter.SETFLAG, emitter.NEG32, emitter.NEG64,
		emitter.NOT32, emitter.NOT64, emitter.FNEG32, emitter.FNEG64,
		emitter.CALLPTR:
		return Line{pc, fmt.Sprintf("%s r%d", op, rd), 1, src}

	default:
		return Line{pc, fmt.Sprintf("%s r%d, r%d", op, rd, rs), 1, src}
	}
}

func formatImm(w emitter.Width, bits uint64) string {
	switch w {
	case emitter.WF32:
		return fmt.Sprintf("%g", math.Float32frombits(uint32(bits)))
	case emitter.WF64:
		return fmt.Sprintf("%g", math.Float64frombits(bits))
	default:
		return fmt.Sprintf("%#x", bits)
	}
}

func regListText(bitmap uint16) string {
	bank := 0
	lo := bitmap & 0xff
	if hi := bitmap >> 8; hi != 0 {
		bank = 8
		lo = hi
	}
	var regs []string
	for i := 0; i < 8; i++ {
		if lo&(1<<uint(i)) != 0 {
			regs = append(regs, fmt.Sprintf("r%d", bank+i))
		}
	}
	return "{" + strings.Join(regs, ", ") + "}"
}
