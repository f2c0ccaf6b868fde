// Package machine implements the VM of spec.md §4.6: a fetch/decode/
// dispatch loop over a Chunk, a byte stack, a bounded return stack, GPRs,
// FPRs, and a single condition flag.
package machine

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/pvmlang/pvm/lang/chunk"
	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/pvmlang/pvm/lang/pstr"
)

const (
	maxReturnDepth = 4096
	initialStack   = 1 << 16
)

type retFrame struct {
	ip uint32
	fp uint64
}

// Thread is one VM execution context: registers, flag, stacks, and the
// string scratch slot (TmpStr) named in spec.md §9.
type Thread struct {
	gpr [emitter.NumGPR]uint64
	fpr [emitter.NumFPR]float64
	flag bool

	stack *Stack
	ret   []retFrame

	tmpStr pstr.String

	strings     map[uint64]*pstr.String
	nextHandle  uint64

	chunk *chunk.Chunk
	ip    uint32

	Stdout io.Writer
	Stderr io.Writer

	exitCode int64
	exited   bool
}

// NewThread returns a Thread ready to Run a Chunk.
func NewThread(stdout, stderr io.Writer) *Thread {
	return &Thread{
		stack:   NewStack(initialStack),
		strings: make(map[uint64]*pstr.String),
		Stdout:  stdout,
		Stderr:  stderr,
	}
}

func (t *Thread) newStringHandle(v pstr.String) uint64 {
	t.nextHandle++
	h := t.nextHandle
	sv := v
	t.strings[h] = &sv
	return h
}

func (t *Thread) strAt(handle uint64) *pstr.String {
	if handle == 0 {
		return &pstr.String{}
	}
	s, ok := t.strings[handle]
	if !ok {
		return &pstr.String{}
	}
	return s
}

// RunResult is returned by Run: ExitCode is the program's WRITE-independent
// exit status (0 on a normal EXIT from the outermost frame), Trap holds
// the trap that stopped execution, if any.
type RunResult struct {
	ExitCode int64
	Trap     *Trap
}

// Run executes c from its recorded entry point until it falls off the
// outermost frame (a graceful exit) or traps. Per spec.md §5, Run does not
// suspend: it either runs to completion or traps.
func (t *Thread) Run(ctx context.Context, c *chunk.Chunk) (res RunResult) {
	t.chunk = c
	t.ip = c.Entry
	t.gpr[emitter.RegFP] = 0
	t.gpr[emitter.RegSP] = 0
	t.gpr[emitter.RegGP] = 0

	defer func() {
		if r := recover(); r != nil {
			if tr, ok := r.(Trap); ok {
				tr.PC = t.ip
				res.Trap = &tr
				return
			}
			panic(r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return RunResult{Trap: &Trap{Kind: TrapIllegalInstruction, PC: t.ip}}
		default:
		}

		if t.exited {
			return RunResult{ExitCode: t.exitCode}
		}
		if int(t.ip) >= len(c.Code) {
			return RunResult{ExitCode: 0}
		}
		t.step()
	}
}

func (t *Thread) fetch() uint16 {
	w := t.chunk.Code[t.ip]
	t.ip++
	return w
}

func (t *Thread) step() {
	pc0 := t.ip
	w := t.fetch()
	op := emitter.Op(w >> 8)
	rd := int((w >> 4) & 0xf)
	rs := int(w & 0xf)

	switch op {
	case emitter.NOP:

	case emitter.ADD32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) + uint32(t.gpr[rs]))
	case emitter.ADD64:
		t.gpr[rd] = t.gpr[rd] + t.gpr[rs]
	case emitter.SUB32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) - uint32(t.gpr[rs]))
	case emitter.SUB64:
		t.gpr[rd] = t.gpr[rd] - t.gpr[rs]
	case emitter.MUL32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) * uint32(t.gpr[rs]))
	case emitter.MUL64:
		t.gpr[rd] = t.gpr[rd] * t.gpr[rs]
	case emitter.IMUL32:
		t.gpr[rd] = uint64(uint32(int32(t.gpr[rd]) * int32(t.gpr[rs])))
	case emitter.IMUL64:
		t.gpr[rd] = uint64(int64(t.gpr[rd]) * int64(t.gpr[rs]))

	case emitter.DIV32:
		if uint32(t.gpr[rs]) == 0 {
			panic(Trap{Kind: TrapDivisionByZero})
		}
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) / uint32(t.gpr[rs]))
	case emitter.DIV64:
		if t.gpr[rs] == 0 {
			panic(Trap{Kind: TrapDivisionByZero})
		}
		t.gpr[rd] = t.gpr[rd] / t.gpr[rs]
	case emitter.IDIV32:
		if int32(t.gpr[rs]) == 0 {
			panic(Trap{Kind: TrapDivisionByZero})
		}
		t.gpr[rd] = uint64(uint32(truncDiv32(int32(t.gpr[rd]), int32(t.gpr[rs]))))
	case emitter.IDIV64:
		if int64(t.gpr[rs]) == 0 {
			panic(Trap{Kind: TrapDivisionByZero})
		}
		t.gpr[rd] = uint64(truncDiv64(int64(t.gpr[rd]), int64(t.gpr[rs])))
	case emitter.MOD32:
		if uint32(t.gpr[rs]) == 0 {
			panic(Trap{Kind: TrapDivisionByZero})
		}
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) % uint32(t.gpr[rs]))
	case emitter.MOD64:
		if t.gpr[rs] == 0 {
			panic(Trap{Kind: TrapDivisionByZero})
		}
		t.gpr[rd] = t.gpr[rd] % t.gpr[rs]
	case emitter.IMOD32:
		if int32(t.gpr[rs]) == 0 {
			panic(Trap{Kind: TrapDivisionByZero})
		}
		t.gpr[rd] = uint64(uint32(truncMod32(int32(t.gpr[rd]), int32(t.gpr[rs]))))
	case emitter.IMOD64:
		if int64(t.gpr[rs]) == 0 {
			panic(Trap{Kind: TrapDivisionByZero})
		}
		t.gpr[rd] = uint64(truncMod64(int64(t.gpr[rd]), int64(t.gpr[rs])))

	case emitter.NEG32:
		t.gpr[rd] = uint64(uint32(-int32(t.gpr[rd])))
	case emitter.NEG64:
		t.gpr[rd] = uint64(-int64(t.gpr[rd]))
	case emitter.NOT32:
		t.gpr[rd] = uint64(uint32(^uint32(t.gpr[rd])))
	case emitter.NOT64:
		t.gpr[rd] = ^t.gpr[rd]
	case emitter.AND32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) & uint32(t.gpr[rs]))
	case emitter.AND64:
		t.gpr[rd] = t.gpr[rd] & t.gpr[rs]
	case emitter.OR32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) | uint32(t.gpr[rs]))
	case emitter.OR64:
		t.gpr[rd] = t.gpr[rd] | t.gpr[rs]
	case emitter.XOR32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) ^ uint32(t.gpr[rs]))
	case emitter.XOR64:
		t.gpr[rd] = t.gpr[rd] ^ t.gpr[rs]

	case emitter.SHL32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) << (t.gpr[rs] & 31))
	case emitter.SHL64:
		t.gpr[rd] = t.gpr[rd] << (t.gpr[rs] & 63)
	case emitter.SHR32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) >> (t.gpr[rs] & 31))
	case emitter.SHR64:
		t.gpr[rd] = t.gpr[rd] >> (t.gpr[rs] & 63)
	case emitter.SAR32:
		t.gpr[rd] = uint64(uint32(int32(t.gpr[rd]) >> (t.gpr[rs] & 31)))
	case emitter.SAR64:
		t.gpr[rd] = uint64(int64(t.gpr[rd]) >> (t.gpr[rs] & 63))

	case emitter.ADDI32:
		t.gpr[rd] = uint64(uint32(int32(t.gpr[rd]) + int32(signExtend4(rs))))
	case emitter.ADDI64:
		t.gpr[rd] = uint64(int64(t.gpr[rd]) + int64(signExtend4(rs)))
	case emitter.SHLI32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) << uint(rs))
	case emitter.SHLI64:
		t.gpr[rd] = t.gpr[rd] << uint(rs)
	case emitter.SHRI32:
		t.gpr[rd] = uint64(uint32(t.gpr[rd]) >> uint(rs))
	case emitter.SHRI64:
		t.gpr[rd] = t.gpr[rd] >> uint(rs)
	case emitter.SARI32:
		t.gpr[rd] = uint64(uint32(int32(t.gpr[rd]) >> uint(rs)))
	case emitter.SARI64:
		t.gpr[rd] = uint64(int64(t.gpr[rd]) >> uint(rs))

	case emitter.FADD32:
		t.fpr[rd] = float64(float32(t.fpr[rd]) + float32(t.fpr[rs]))
	case emitter.FADD64:
		t.fpr[rd] = t.fpr[rd] + t.fpr[rs]
	case emitter.FSUB32:
		t.fpr[rd] = float64(float32(t.fpr[rd]) - float32(t.fpr[rs]))
	case emitter.FSUB64:
		t.fpr[rd] = t.fpr[rd] - t.fpr[rs]
	case emitter.FMUL32:
		t.fpr[rd] = float64(float32(t.fpr[rd]) * float32(t.fpr[rs]))
	case emitter.FMUL64:
		t.fpr[rd] = t.fpr[rd] * t.fpr[rs]
	case emitter.FDIV32:
		t.fpr[rd] = float64(float32(t.fpr[rd]) / float32(t.fpr[rs]))
	case emitter.FDIV64:
		t.fpr[rd] = t.fpr[rd] / t.fpr[rs]
	case emitter.FNEG32:
		t.fpr[rd] = float64(-float32(t.fpr[rd]))
	case emitter.FNEG64:
		t.fpr[rd] = -t.fpr[rd]

	case emitter.SEQ:
		t.flag = t.gpr[rd] == t.gpr[rs]
	case emitter.SNE:
		t.flag = t.gpr[rd] != t.gpr[rs]
	case emitter.SLT:
		t.flag = t.gpr[rd] < t.gpr[rs]
	case emitter.SGT:
		t.flag = t.gpr[rd] > t.gpr[rs]
	case emitter.SLE:
		t.flag = t.gpr[rd] <= t.gpr[rs]
	case emitter.SGE:
		t.flag = t.gpr[rd] >= t.gpr[rs]
	case emitter.ISLT:
		t.flag = int64(t.gpr[rd]) < int64(t.gpr[rs])
	case emitter.ISLE:
		t.flag = int64(t.gpr[rd]) <= int64(t.gpr[rs])
	case emitter.ISGT:
		t.flag = int64(t.gpr[rd]) > int64(t.gpr[rs])
	case emitter.ISGE:
		t.flag = int64(t.gpr[rd]) >= int64(t.gpr[rs])
	case emitter.FSEQ:
		t.flag = t.fpr[rd] == t.fpr[rs]
	case emitter.FSNE:
		t.flag = t.fpr[rd] != t.fpr[rs]
	case emitter.FSLT:
		t.flag = t.fpr[rd] < t.fpr[rs]
	case emitter.FSLE:
		t.flag = t.fpr[rd] <= t.fpr[rs]
	case emitter.FSGT:
		t.flag = t.fpr[rd] > t.fpr[rs]
	case emitter.FSGE:
		t.flag = t.fpr[rd] >= t.fpr[rs]
	case emitter.STRLT:
		t.flag = t.strAt(t.gpr[rd]).Compare(t.strAt(t.gpr[rs])) < 0
	case emitter.STRGT:
		t.flag = t.strAt(t.gpr[rd]).Compare(t.strAt(t.gpr[rs])) > 0
	case emitter.STREQU:
		t.flag = t.strAt(t.gpr[rd]).Equal(t.strAt(t.gpr[rs]))

	case emitter.LOAD, emitter.LOADL, emitter.STORE, emitter.STOREL:
		t.execLoadStore(op, rd, rs)

	case emitter.LEA, emitter.LEAL:
		disp := t.readDisp(op == emitter.LEAL)
		t.gpr[rd] = t.gpr[rs] + uint64(int64(disp))

	case emitter.MEMCPY:
		lo := t.fetch()
		hi := t.fetch()
		n := uint32(lo) | uint32(hi)<<16
		dst := t.memSlice(rd, 0, int(n))
		src := t.memSlice(rs, 0, int(n))
		copy(dst, src)

	case emitter.BEZ, emitter.BNZ:
		t.execCondBranch(op, pc0, rd)
	case emitter.BCT:
		t.execFlagBranch(pc0, true)
	case emitter.BCF:
		t.execFlagBranch(pc0, false)
	case emitter.BR:
		off := t.readBRFamilyOffset(pc0)
		t.ip = uint32(int64(pc0) + 2 + off)
	case emitter.BRI:
		t.execBRI(pc0, rd, rs)
	case emitter.CALL:
		off := t.readBRFamilyOffset(pc0)
		target := uint32(int64(pc0) + 2 + off)
		t.pushRet(t.ip, target)
	case emitter.CALLPTR:
		target := uint32(t.gpr[rd])
		t.pushRet(t.ip, target)
	case emitter.LDRIP:
		lo := t.fetch()
		hi := t.fetch()
		disp := int32(uint32(lo) | uint32(hi)<<16)
		t.gpr[rd] = uint64(int64(pc0) + 3 + int64(disp))

	case emitter.MOV32:
		t.gpr[rd] = uint64(uint32(t.gpr[rs]))
	case emitter.MOV64:
		t.gpr[rd] = t.gpr[rs]
	case emitter.MOVF32:
		t.fpr[rd] = float64(float32(t.fpr[rs]))
	case emitter.MOVF64:
		t.fpr[rd] = t.fpr[rs]
	case emitter.ZX8_32:
		t.gpr[rd] = uint64(uint8(t.gpr[rs]))
	case emitter.SX8_32:
		t.gpr[rd] = uint64(uint32(int32(int8(t.gpr[rs]))))
	case emitter.ZX16_32:
		t.gpr[rd] = uint64(uint16(t.gpr[rs]))
	case emitter.SX16_32:
		t.gpr[rd] = uint64(uint32(int32(int16(t.gpr[rs]))))
	case emitter.ZX8_64:
		t.gpr[rd] = uint64(uint8(t.gpr[rs]))
	case emitter.SX8_64:
		t.gpr[rd] = uint64(int64(int8(t.gpr[rs])))
	case emitter.ZX16_64:
		t.gpr[rd] = uint64(uint16(t.gpr[rs]))
	case emitter.SX16_64:
		t.gpr[rd] = uint64(int64(int16(t.gpr[rs])))
	case emitter.ZX32_64:
		t.gpr[rd] = uint64(uint32(t.gpr[rs]))
	case emitter.SX32_64:
		t.gpr[rd] = uint64(int64(int32(t.gpr[rs])))
	case emitter.I32_TO_F32:
		t.fpr[rd] = float64(float32(int32(t.gpr[rs])))
	case emitter.I32_TO_F64:
		t.fpr[rd] = float64(int32(t.gpr[rs]))
	case emitter.I64_TO_F32:
		t.fpr[rd] = float64(float32(int64(t.gpr[rs])))
	case emitter.I64_TO_F64:
		t.fpr[rd] = float64(int64(t.gpr[rs]))
	case emitter.F32_TO_I32:
		t.gpr[rd] = uint64(uint32(int32(float32(t.fpr[rs]))))
	case emitter.F64_TO_I64:
		t.gpr[rd] = uint64(int64(t.fpr[rs]))
	case emitter.F32_TO_F64:
		t.fpr[rd] = float64(float32(t.fpr[rs]))
	case emitter.F64_TO_F32:
		t.fpr[rd] = float64(float32(t.fpr[rs]))

	case emitter.MOVI:
		t.execMovi(rd, emitter.Width(rs))
	case emitter.MOVQI:
		t.gpr[rd] = uint64(int64(signExtend4(rs)))
	case emitter.GETFLAG:
		if t.flag {
			t.gpr[rd] = 1
		} else {
			t.gpr[rd] = 0
		}
	case emitter.SETFLAG:
		t.flag = t.gpr[rd] != 0
	case emitter.NEGFLAG:
		t.flag = !t.flag

	case emitter.PUSHREGS:
		t.execPushRegs(false)
	case emitter.POPREGS:
		t.execPopRegs(false)
	case emitter.PUSHFREGS:
		t.execPushRegs(true)
	case emitter.POPFREGS:
		t.execPopRegs(true)

	case emitter.SADD:
		a, b := t.strAt(t.gpr[rd]), t.strAt(t.gpr[rs])
		t.tmpStr = pstr.Concat(*a, *b)
		t.gpr[rd] = t.newStringHandle(t.tmpStr)
	case emitter.SCOPY:
		t.gpr[rd] = t.newStringHandle(*t.strAt(t.gpr[rs]))
	case emitter.SLIT:
		idx := t.fetch()
		t.gpr[rd] = t.newStringHandle(pstr.New(t.chunk.Strings[idx]))

	case emitter.ENTER:
		lo := t.fetch()
		hi := t.fetch()
		size := uint32(lo) | uint32(hi)<<16
		t.gpr[emitter.RegFP] = t.gpr[emitter.RegSP]
		t.gpr[emitter.RegSP] += uint64(size)
	case emitter.EXIT:
		t.execExit()
	case emitter.WRITE:
		t.execWrite()

	default:
		panic(Trap{Kind: TrapIllegalInstruction})
	}
}

func (t *Thread) readDisp(long bool) int32 {
	if long {
		lo := t.fetch()
		hi := t.fetch()
		return int32(uint32(lo) | uint32(hi)<<16)
	}
	return int32(int16(t.fetch()))
}

// execLoadStore resolves [Rs + disp] against one of two address spaces: the
// Globals blob when Rs is RegGP (the compiler always materializes a global
// reference through GP), otherwise the unified Stack buffer addressed by
// whatever absolute offset Rs holds (FP for locals, SP for temporaries, or
// a pointer a prior LEA computed).
func (t *Thread) execLoadStore(op emitter.Op, rd, rs int) {
	long := op == emitter.LOADL || op == emitter.STOREL
	disp := t.readDisp(long)
	store := op == emitter.STORE || op == emitter.STOREL

	base := t.gpr[rs]
	addr := int64(base) + int64(disp)
	if rs == emitter.RegGP {
		if store {
			putU64(t.chunk.Globals, int(addr), t.gpr[rd])
		} else {
			t.gpr[rd] = getU64(t.chunk.Globals, int(addr))
		}
		return
	}
	if store {
		t.stack.putU64At(int(addr), t.gpr[rd])
	} else {
		t.gpr[rd] = t.stack.getU64At(int(addr))
	}
}

func (t *Thread) memSlice(baseReg int, disp, n int) []byte {
	base := t.gpr[baseReg]
	addr := int(base) + disp
	if baseReg == emitter.RegGP {
		return t.chunk.Globals[addr : addr+n]
	}
	return t.stack.sliceAt(addr, n)
}

func (t *Thread) readBRFamilyOffset(pc0 uint32) int64 {
	return emitter.DecodeOffset(t.chunk.Code, pc0, emitter.PatchBRFamily)
}

func (t *Thread) execCondBranch(op emitter.Op, pc0 uint32, rd int) {
	off := emitter.DecodeOffset(t.chunk.Code, pc0, emitter.PatchBEZBNZ)
	zero := t.gpr[rd] == 0
	take := (op == emitter.BEZ && zero) || (op == emitter.BNZ && !zero)
	if take {
		t.ip = uint32(int64(pc0) + 2 + off)
	}
}

func (t *Thread) execFlagBranch(pc0 uint32, onTrue bool) {
	off := emitter.DecodeOffset(t.chunk.Code, pc0, emitter.PatchBRFamily)
	if t.flag == onTrue {
		t.ip = uint32(int64(pc0) + 2 + off)
	}
}

func (t *Thread) execBRI(pc0 uint32, rd, rsImm int) {
	inc := int64(signExtend4(rsImm))
	t.gpr[rd] = uint64(int64(t.gpr[rd]) + inc)
	off := emitter.DecodeOffset(t.chunk.Code, pc0, emitter.PatchBRI)
	t.ip = uint32(int64(pc0) + 2 + off)
}

func (t *Thread) execMovi(rd int, w emitter.Width) {
	n := w.ImmWords()
	var bits uint64
	for i := 0; i < n; i++ {
		bits |= uint64(t.fetch()) << (16 * i)
	}
	switch w {
	case emitter.WF32:
		t.fpr[rd] = float64(math.Float32frombits(uint32(bits)))
	case emitter.WF64:
		t.fpr[rd] = math.Float64frombits(bits)
	default:
		t.gpr[rd] = bits
	}
}

func (t *Thread) execPushRegs(float bool) {
	bitmap := t.fetch()
	// A high-bank word encodes its bitmap in the upper byte with bit 0 of
	// the low byte set as a marker (Emitter.emitRegListBitmap); a low-bank
	// word carries its bitmap directly in the low byte with the upper byte
	// zero.
	bank := uint(0)
	lo := bitmap & 0xff
	hi := bitmap >> 8
	if hi != 0 {
		bank = 8
		lo = hi
	}
	for i := 0; i < 8; i++ {
		if lo&(1<<uint(i)) == 0 {
			continue
		}
		idx := int(bank) + i
		if float {
			t.stack.PushU64(math.Float64bits(t.fpr[idx]))
		} else {
			t.stack.PushU64(t.gpr[idx])
		}
	}
}

func (t *Thread) execPopRegs(float bool) {
	bitmap := t.fetch()
	bank := uint(0)
	lo := bitmap & 0xff
	hi := bitmap >> 8
	if hi != 0 {
		bank = 8
		lo = hi
	}
	for i := 7; i >= 0; i-- {
		if lo&(1<<uint(i)) == 0 {
			continue
		}
		idx := int(bank) + i
		v := t.stack.PopU64()
		if float {
			t.fpr[idx] = math.Float64frombits(v)
		} else {
			t.gpr[idx] = v
		}
	}
}

func (t *Thread) pushRet(returnIP, targetIP uint32) {
	if len(t.ret) >= maxReturnDepth {
		panic(Trap{Kind: TrapCallStackOverflow})
	}
	t.ret = append(t.ret, retFrame{ip: returnIP, fp: t.gpr[emitter.RegFP]})
	t.ip = targetIP
}

func (t *Thread) execExit() {
	if len(t.ret) == 0 {
		// Returning from the outermost frame exits gracefully rather than
		// trapping (spec.md §4.6).
		t.exited = true
		t.exitCode = int64(t.gpr[emitter.ReturnGPR])
		return
	}
	top := t.ret[len(t.ret)-1]
	t.ret = t.ret[:len(t.ret)-1]
	t.ip = top.ip
	t.gpr[emitter.RegFP] = top.fp
}

// execWrite implements the WRITE syscall of spec.md §4.6: pops (argc, file
// descriptor) from the argument registers, then argc (tag, value) word
// pairs from the stack, converts each by kind, and writes the result.
func (t *Thread) execWrite() {
	argc := int(t.gpr[0])
	fd := int(t.gpr[1])

	parts := make([]string, argc)
	for i := argc - 1; i >= 0; i-- {
		tag := ValueTag(t.stack.PopU64())
		parts[i] = t.formatTagged(tag)
	}

	w := t.Stdout
	if fd == 1 {
		w = t.Stderr
	}
	if w != nil {
		for _, p := range parts {
			fmt.Fprint(w, p)
		}
	}
}

func putU64(buf []byte, off int, v uint64) {
	for i := 0; i < 8 && off+i < len(buf); i++ {
		buf[off+i] = byte(v >> (8 * i))
	}
}
func getU64(buf []byte, off int) uint64 {
	var v uint64
	for i := 0; i < 8 && off+i < len(buf); i++ {
		v |= uint64(buf[off+i]) << (8 * i)
	}
	return v
}

func truncDiv32(a, b int32) int32 { return a / b }
func truncDiv64(a, b int64) int64 { return a / b }
func truncMod32(a, b int32) int32 { return a % b }
func truncMod64(a, b int64) int64 { return a % b }

func signExtend4(v int) int8 {
	v &= 0xf
	if v >= 8 {
		v -= 16
	}
	return int8(v)
}
