package emitter

import (
	"math"

	"github.com/pvmlang/pvm/lang/chunk"
)

// Emitter drives a Chunk's code vector: it owns the register allocator, the
// instruction encoder, and the branch/forward-reference patcher (spec.md
// §4.4).
type Emitter struct {
	Chunk *chunk.Chunk
	alloc *allocator

	frameSize int // current stack-frame byte size (spec.md §3)
	argArea   int // current argument-area byte size

	// Suppress gates every write to Chunk.Code/PatchWord to a no-op without
	// touching the allocator or type-checking side of compilation. The
	// compiler sets it around a statically dead arm (spec.md §7: "a
	// should-emit flag short-circuits writes to the code vector in dead
	// arms... so dead code does not grow the chunk but is still parsed").
	Suppress bool
}

// New returns an Emitter writing into chunk c.
func New(c *chunk.Chunk) *Emitter {
	return &Emitter{Chunk: c, alloc: newAllocator()}
}

func word(op Op, rd, rs uint8) uint16 {
	return uint16(op)<<8 | uint16(rd&0xf)<<4 | uint16(rs&0xf)
}

// EmitWord appends w to the chunk and returns its code index, unless
// Suppress is set, in which case nothing is written and the chunk's
// length-derived offsets (Chunk.Here) are left untouched.
func (e *Emitter) EmitWord(w uint16) uint32 {
	if e.Suppress {
		return e.Chunk.Here()
	}
	return e.Chunk.EmitWord(w)
}

// PatchWord rewrites the word at pc, unless Suppress is set (a dead arm's
// captured patch sites never correspond to real code, so patching them
// would otherwise corrupt whatever real instruction happens to sit at that
// now-stale index).
func (e *Emitter) PatchWord(pc uint32, w uint16) {
	if e.Suppress {
		return
	}
	e.Chunk.PatchWord(pc, w)
}

// emit writes a single opcode word and returns its code index.
func (e *Emitter) emit(op Op, rd, rs uint8) uint32 {
	return e.EmitWord(word(op, rd, rs))
}

// EmitRR emits a two-register instruction (Rd, Rs), e.g. ADD32 Rd, Rs (the
// accumulator form RD := RD op RS used throughout spec.md §4.4.2's
// arithmetic family).
func (e *Emitter) EmitRR(op Op, rd, rs int) uint32 {
	return e.emit(op, uint8(rd), uint8(rs))
}

// EmitR emits a single-register instruction (unary ops, NEG/NOT/FNEG,
// GETFLAG/SETFLAG/...).
func (e *Emitter) EmitR(op Op, rd int) uint32 {
	return e.emit(op, uint8(rd), 0)
}

func (e *Emitter) emitPushReg(reg int, float bool) {
	op := PUSHREGS
	if float {
		op = PUSHFREGS
	}
	e.emit(op, 0, 0)
	e.EmitWord(uint16(1) << uint(reg%8))
}

func (e *Emitter) emitPopReg(reg int, float bool) {
	op := POPREGS
	if float {
		op = POPFREGS
	}
	e.emit(op, 0, 0)
	e.EmitWord(uint16(1) << uint(reg%8))
}

// EmitRegList emits a PUSHREGS/POPREGS/PUSHFREGS/POPFREGS of an arbitrary
// register bitmap (bit i set means register i participates), used by the
// calling convention's caller-saved snapshot/restore.
func (e *Emitter) EmitRegList(op Op, bitmap uint16) uint32 {
	pc := e.emit(op, 0, 0)
	e.EmitWord(bitmap)
	return pc
}

// EmitMOVI loads an immediate value of the given width into rd. bits holds
// the raw bit pattern (the float bit patterns via math.Float32/64bits).
func (e *Emitter) EmitMOVI(rd int, w Width, bits uint64) uint32 {
	pc := e.emit(MOVI, uint8(rd), uint8(w))
	switch w.immWords() {
	case 1:
		e.EmitWord(uint16(bits))
	case 2:
		e.EmitWord(uint16(bits))
		e.EmitWord(uint16(bits >> 16))
	case 4:
		for i := 0; i < 4; i++ {
			e.EmitWord(uint16(bits >> (16 * i)))
		}
	}
	return pc
}

// EmitMOVQI emits the 4-bit-immediate fast move, MOVQI Rd, imm4 (sign
// extended), used for small literal loads (part of spec.md §4.4.5's
// strength reduction: e.g. multiply-by-0 folds to this).
func (e *Emitter) EmitMOVQI(rd int, imm4 int8) uint32 {
	return e.emit(MOVQI, uint8(rd), uint8(imm4)&0xf)
}

// EmitIntImm loads a signed 64-bit integer constant into rd: MOVQI when v
// fits a signed 4-bit immediate, otherwise MOVI with a W32 immediate (the
// low 32 bits of v) for W8/W16/W32 and a W64 immediate for any other width.
// The destination register's logical width is tracked by the compiler, not
// the emitter.
func (e *Emitter) EmitIntImm(rd int, v int64, w Width) uint32 {
	if v >= -8 && v <= 7 {
		return e.EmitMOVQI(rd, int8(v))
	}
	switch w {
	case W8, W16, W32:
		return e.EmitMOVI(rd, W32, uint64(uint32(v)))
	default:
		return e.EmitMOVI(rd, W64, uint64(v))
	}
}

// EmitFloatImm loads a floating-point constant into rd.
func (e *Emitter) EmitFloatImm(rd int, v float64, w Width) uint32 {
	if w == WF32 {
		return e.EmitMOVI(rd, WF32, uint64(math.Float32bits(float32(v))))
	}
	return e.EmitMOVI(rd, WF64, math.Float64bits(v))
}

// --- load/store ---

// EmitLoadStore emits LOAD/STORE (or their L long-displacement variants if
// disp does not fit in 16 bits), addressing [base + disp].
func (e *Emitter) EmitLoadStore(store bool, rd, base int, disp int32, w Width, signExtend bool) uint32 {
	op := LOAD
	if store {
		op = STORE
	}
	rs := uint8(base)
	_ = signExtend // width/signedness is carried by the compiler's typed register bookkeeping

	if disp >= -32768 && disp <= 32767 {
		pc := e.emit(op, uint8(rd), rs)
		e.EmitWord(uint16(int16(disp)))
		return pc
	}
	if store {
		op = STOREL
	} else {
		op = LOADL
	}
	pc := e.emit(op, uint8(rd), rs)
	e.EmitWord(uint16(uint32(disp)))
	e.EmitWord(uint16(uint32(disp) >> 16))
	return pc
}

// EmitLEA emits LEA/LEAL: Rd := base + disp (an address, not a load).
func (e *Emitter) EmitLEA(rd, base int, disp int32) uint32 {
	if disp >= -32768 && disp <= 32767 {
		pc := e.emit(LEA, uint8(rd), uint8(base))
		e.EmitWord(uint16(int16(disp)))
		return pc
	}
	pc := e.emit(LEAL, uint8(rd), uint8(base))
	e.EmitWord(uint16(uint32(disp)))
	e.EmitWord(uint16(uint32(disp) >> 16))
	return pc
}

// EmitMemcpy emits MEMCPY dst, src, n (byte count as a 32-bit immediate
// following the opcode word), used for record assignment.
func (e *Emitter) EmitMemcpy(dst, src int, n uint32) uint32 {
	pc := e.emit(MEMCPY, uint8(dst), uint8(src))
	e.EmitWord(uint16(n))
	e.EmitWord(uint16(n >> 16))
	return pc
}

// --- frame bookkeeping ---

func (e *Emitter) GrowFrame(bytes int) int {
	off := e.frameSize
	e.frameSize += bytes
	return off
}

func (e *Emitter) FrameSize() int { return e.frameSize }

func (e *Emitter) ResetFrame() { e.frameSize, e.argArea = 0, 0 }

func (e *Emitter) GrowArgArea(bytes int) int {
	off := e.argArea
	e.argArea += bytes
	return off
}

func (e *Emitter) ArgAreaSize() int { return e.argArea }

func (e *Emitter) ResetArgArea() { e.argArea = 0 }

// EmitEnter emits ENTER with a placeholder frame size, to be patched once
// the function body's locals are fully sized (spec.md §4.4.2: "ENTER
// (frame prologue with a 32-bit stack size to be patched by the
// Compiler)"). Returns the code index to pass to PatchEnter.
func (e *Emitter) EmitEnter() uint32 {
	pc := e.emit(ENTER, 0, 0)
	e.EmitWord(0)
	e.EmitWord(0)
	return pc
}

// PatchEnter rewrites a previously emitted ENTER's frame-size operand.
func (e *Emitter) PatchEnter(pc uint32, frameSize uint32) {
	e.PatchWord(pc+1, uint16(frameSize))
	e.PatchWord(pc+2, uint16(frameSize>>16))
}

// EmitExit emits EXIT (return-or-program-exit per spec.md §4.4.2).
func (e *Emitter) EmitExit() uint32 { return e.emit(EXIT, 0, 0) }

// EmitWrite emits the WRITE syscall instruction.
func (e *Emitter) EmitWrite() uint32 { return e.emit(WRITE, 0, 0) }

// EmitString ops
func (e *Emitter) EmitSAdd(rd, rs int) uint32  { return e.emit(SADD, uint8(rd), uint8(rs)) }
func (e *Emitter) EmitSCopy(rd, rs int) uint32 { return e.emit(SCOPY, uint8(rd), uint8(rs)) }

// EmitSLit emits SLIT Rd, idx: Rd receives a fresh string handle over the
// chunk's string constant pool entry idx.
func (e *Emitter) EmitSLit(rd int, idx uint16) uint32 {
	pc := e.emit(SLIT, uint8(rd), 0)
	e.EmitWord(idx)
	return pc
}

// EmitFlag ops
func (e *Emitter) EmitGetFlag(rd int) uint32  { return e.emit(GETFLAG, uint8(rd), 0) }
func (e *Emitter) EmitSetFlag(rd int) uint32  { return e.emit(SETFLAG, uint8(rd), 0) }
func (e *Emitter) EmitNegFlag() uint32        { return e.emit(NEGFLAG, 0, 0) }

// EmitCallPtr emits CALLPTR Rd (indirect call through a register holding a
// function-pointer value).
func (e *Emitter) EmitCallPtr(rd int) uint32 { return e.emit(CALLPTR, uint8(rd), 0) }
