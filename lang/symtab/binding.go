package symtab

import "github.com/pvmlang/pvm/lang/types"

// BindingKind discriminates the tagged union described in spec.md §3: "A
// binding is a tagged union of {literal value, register, memory slot,
// flag, subroutine-descriptor, builtin-function-handle, invalid,
// typename-only}."
type BindingKind uint8

const (
	BindInvalid BindingKind = iota
	BindLiteral
	BindRegister
	BindMemory
	BindFlag
	BindSubroutine
	BindBuiltin
	BindTypename
)

// LiteralValue holds a compile-time-known scalar, discriminated by the
// symbol's Type kind (integer kinds use Int, float kinds use Float, Bool
// uses Bool, Char/String use Str).
type LiteralValue struct {
	Int   int64
	Float float64
	Bool  bool
	Str   string
}

// SubroutineInfo is the subroutine descriptor of spec.md §3. Per the
// re-architecture note in spec.md §9, it carries only its entry offset and
// defined flag once known; the mutable list of pending forward-reference
// call sites that the original implementation hung off each subroutine
// lives instead in a single per-compilation ledger (see
// lang/compiler/forward.go), keyed by this struct's ID.
type SubroutineInfo struct {
	ID           int32 // unique key into the compiler's forward-reference ledger
	EntryOffset  int32 // code index of the subroutine's ENTER instruction
	Defined      bool
	Type         types.ID // the Subroutine type descriptor (params, return, etc.)
}

// MemoryClass distinguishes where a BindMemory binding's slot lives.
type MemoryClass uint8

const (
	MemGlobal MemoryClass = iota // offset into the chunk's globals blob
	MemLocal                     // offset from FP, in the current stack frame
	MemArg                       // offset from FP into the caller's stack-arg area
)

// Binding is the storage/value representation attached to a Symbol.
type Binding struct {
	Kind BindingKind

	Literal LiteralValue

	Register int // BindRegister: allocated GPR/FPR index

	MemClass  MemoryClass // BindMemory
	MemOffset int         // BindMemory: byte offset within MemClass's space

	Subroutine SubroutineInfo // BindSubroutine

	Builtin string // BindBuiltin: builtin function name (e.g. "writeln")
}
