// Package emitter implements the register allocator, instruction encoder,
// and branch/forward-reference patcher of spec.md §4.4.
package emitter

// Op is the 8-bit primary opcode packed into bits 15..8 of an instruction
// word, per spec.md §6.
type Op uint8

//nolint:revive
const (
	NOP Op = iota

	// integer arithmetic/logic, 32- and 64-bit
	ADD32
	ADD64
	SUB32
	SUB64
	MUL32
	MUL64
	IMUL32
	IMUL64
	DIV32
	DIV64
	IDIV32
	IDIV64
	MOD32
	MOD64
	IMOD32
	IMOD64
	NEG32
	NEG64
	NOT32
	NOT64
	AND32
	AND64
	OR32
	OR64
	XOR32
	XOR64
	SHL32
	SHL64
	SHR32 // logical
	SHR64
	SAR32 // arithmetic (signed)
	SAR64

	// 4-bit-immediate fast paths for the peephole strength-reduction rules
	// of spec.md §4.4.5 (add of a small constant, shift by a small constant)
	ADDI32
	ADDI64
	SHLI32
	SHLI64
	SHRI32
	SHRI64
	SARI32
	SARI64

	// floating arithmetic
	FADD32
	FADD64
	FSUB32
	FSUB64
	FMUL32
	FMUL64
	FDIV32
	FDIV64
	FNEG32
	FNEG64

	// set-condition-flag family
	SEQ
	SNE
	SLT
	SGT
	SLE
	SGE
	ISLT
	ISLE
	ISGT
	ISGE
	FSEQ
	FSNE
	FSLT
	FSLE
	FSGT
	FSGE
	STRLT
	STRGT
	STREQU

	// memory load/store (word-granular; Rs nibble is the base register, no
	// width is encoded and every access moves a full 64-bit word). Short
	// forms carry a 16-bit signed displacement in
	// the second word; Long forms carry a 32-bit signed displacement in the
	// second+third words.
	LOAD
	LOADL
	STORE
	STOREL
	LEA
	LEAL
	MEMCPY // Rd=dst base reg, Rs=src base reg, 32-bit byte count follows

	// branches
	BEZ  // Rd, off20 (split 4-bit/16-bit)
	BNZ  // Rd, off20
	BCT  // off24, branch if flag true
	BCF  // off24, branch if flag false
	BR   // off24, unconditional
	BRI  // Rd += imm4 signed; branch off16 (loop back-edge)
	CALL // off24
	CALLPTR
	LDRIP // Rd, off32 (function-pointer materialization)

	// moves and conversions
	MOV32
	MOV64
	MOVF32
	MOVF64
	ZX8_32
	SX8_32
	ZX16_32
	SX16_32
	ZX8_64
	SX8_64
	ZX16_64
	SX16_64
	ZX32_64
	SX32_64
	I32_TO_F32
	I32_TO_F64
	I64_TO_F32
	I64_TO_F64
	F32_TO_I32
	F64_TO_I64
	F32_TO_F64
	F64_TO_F32
	MOVI   // Rd, width tag in Rs; 1-4 immediate words follow
	MOVQI  // Rd, 4-bit immediate in Rs
	GETFLAG
	SETFLAG
	NEGFLAG

	// register-list push/pop (8-register bank bitmap in low byte)
	PUSHREGS
	POPREGS
	PUSHFREGS
	POPFREGS

	// strings
	SADD  // Rd := Rs + Rd as strings, through the VM's TmpStr slot
	SCOPY // Rd := Rs (deep copy of string handle)
	SLIT  // Rd := a fresh handle over Chunk.Strings[idx16]

	// system
	ENTER // 32-bit frame size follows, patched by the compiler
	EXIT
	WRITE

	maxOp
)

// Width tags used in the Rs nibble of MOVI. LOAD/STORE carry no width tag.
type Width uint8

const (
	W8 Width = iota
	W16
	W32
	W64
	WF32
	WF64
)

// ImmWords reports how many additional 16-bit words follow a MOVI with this
// width tag.
func (w Width) ImmWords() int { return w.immWords() }

// immWords reports how many additional 16-bit words follow a MOVI with this
// width tag.
func (w Width) immWords() int {
	switch w {
	case W8, W16:
		return 1
	case W32, WF32:
		return 2
	case W64, WF64:
		return 4
	}
	return 1
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "?"
}

var opNames = [...]string{
	NOP: "nop", ADD32: "add32", ADD64: "add64", SUB32: "sub32", SUB64: "sub64",
	MUL32: "mul32", MUL64: "mul64", IMUL32: "imul32", IMUL64: "imul64",
	DIV32: "div32", DIV64: "div64", IDIV32: "idiv32", IDIV64: "idiv64",
	MOD32: "mod32", MOD64: "mod64", IMOD32: "imod32", IMOD64: "imod64",
	NEG32: "neg32", NEG64: "neg64", NOT32: "not32", NOT64: "not64",
	AND32: "and32", AND64: "and64", OR32: "or32", OR64: "or64",
	XOR32: "xor32", XOR64: "xor64", SHL32: "shl32", SHL64: "shl64",
	SHR32: "shr32", SHR64: "shr64", SAR32: "sar32", SAR64: "sar64",
	ADDI32: "addi32", ADDI64: "addi64", SHLI32: "shli32", SHLI64: "shli64",
	SHRI32: "shri32", SHRI64: "shri64", SARI32: "sari32", SARI64: "sari64",
	FADD32: "fadd32", FADD64: "fadd64", FSUB32: "fsub32", FSUB64: "fsub64",
	FMUL32: "fmul32", FMUL64: "fmul64", FDIV32: "fdiv32", FDIV64: "fdiv64",
	FNEG32: "fneg32", FNEG64: "fneg64",
	SEQ: "seq", SNE: "sne", SLT: "slt", SGT: "sgt", SLE: "sle", SGE: "sge",
	ISLT: "islt", ISLE: "isle", ISGT: "isgt", ISGE: "isge",
	FSEQ: "fseq", FSNE: "fsne", FSLT: "fslt", FSLE: "fsle", FSGT: "fsgt", FSGE: "fsge",
	STRLT: "strlt", STRGT: "strgt", STREQU: "strequ",
	LOAD: "load", LOADL: "loadl", STORE: "store", STOREL: "storel",
	LEA: "lea", LEAL: "leal", MEMCPY: "memcpy",
	BEZ: "bez", BNZ: "bnz", BCT: "bct", BCF: "bcf", BR: "br", BRI: "bri",
	CALL: "call", CALLPTR: "callptr", LDRIP: "ldrip",
	MOV32: "mov32", MOV64: "mov64", MOVF32: "movf32", MOVF64: "movf64",
	ZX8_32: "zx8_32", SX8_32: "sx8_32", ZX16_32: "zx16_32", SX16_32: "sx16_32",
	ZX8_64: "zx8_64", SX8_64: "sx8_64", ZX16_64: "zx16_64", SX16_64: "sx16_64",
	ZX32_64: "zx32_64", SX32_64: "sx32_64",
	I32_TO_F32: "i32_to_f32", I32_TO_F64: "i32_to_f64",
	I64_TO_F32: "i64_to_f32", I64_TO_F64: "i64_to_f64",
	F32_TO_I32: "f32_to_i32", F64_TO_I64: "f64_to_i64",
	F32_TO_F64: "f32_to_f64", F64_TO_F32: "f64_to_f32",
	MOVI: "movi", MOVQI: "movqi", GETFLAG: "getflag", SETFLAG: "setflag", NEGFLAG: "negflag",
	PUSHREGS: "pushregs", POPREGS: "popregs", PUSHFREGS: "pushfregs", POPFREGS: "popfregs",
	SADD: "sadd", SCOPY: "scopy", SLIT: "slit",
	ENTER: "enter", EXIT: "exit", WRITE: "write",
}

// Reg indices. SP, FP and GP are reserved (spec.md §3) and never handed out
// as scratch registers.
const (
	RegSP = 13
	RegFP = 14
	RegGP = 15
	NumGPR = 16
	NumFPR = 16
)
