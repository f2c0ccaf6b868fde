// Package types implements the type descriptor model of spec.md §3: a
// discriminated union over ordinal/float/pointer/record/string/subroutine/
// array kinds, with structural (not nominal) equality.
//
// Per the re-architecture note in spec.md §9, descriptors do not form a
// graph of live Go pointers (which would make `^T` self-referential record
// types a reference cycle). Instead every descriptor lives in an Arena and
// is addressed by ID, an arena index; a pointer descriptor names its
// pointee by ID, so cycles are just integers.
package types

// Kind discriminates the descriptor union.
type Kind uint8

const (
	Invalid Kind = iota
	I8
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
	Bool
	Char
	Pointer
	String
	Record
	Subroutine
	StaticArray
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case I8:
		return "int8"
	case U8:
		return "uint8"
	case I16:
		return "int16"
	case U16:
		return "uint16"
	case I32:
		return "int32"
	case U32:
		return "uint32"
	case I64:
		return "int64"
	case U64:
		return "uint64"
	case F32:
		return "single"
	case F64:
		return "double"
	case Bool:
		return "boolean"
	case Char:
		return "char"
	case Pointer:
		return "pointer"
	case String:
		return "string"
	case Record:
		return "record"
	case Subroutine:
		return "subroutine"
	case StaticArray:
		return "array"
	}
	return "unknown"
}

// ID addresses a Descriptor inside an Arena. The zero ID always refers to
// the preloaded Invalid descriptor.
type ID int32

// InvalidID is the arena slot for the Invalid kind; every Arena preloads it
// at construction so a zero-value ID is always safely resolvable.
const InvalidID ID = 0

// NoPointee marks a Pointer descriptor as opaque: it names no specific
// pointee type and is assignment-compatible with any pointer type, per
// spec.md §4.3 ("opaque pointer is compatible with any pointer").
const NoPointee ID = -1

// Field describes one member of a Record descriptor.
type Field struct {
	Name   string
	Type   ID
	Offset int // byte offset within the record, packed (spec.md §4.5.2)
}

// Param describes one parameter of a Subroutine descriptor.
type Param struct {
	Name string
	Type ID
	// ByRef marks a `var`/`const`-mode parameter. Per spec.md §4.5.2 and the
	// open question in §9, by-reference parameters are parsed and recorded
	// but not yet lowered to pointer-passing in the emitter; see
	// DESIGN.md for the resolution of this open question.
	ByRef bool
}

// Descriptor is the tagged union of type shapes described in spec.md §3.
// Only the fields relevant to Kind are meaningful.
type Descriptor struct {
	Kind Kind
	Size int // byte size of a value of this type

	Pointee ID // Pointer: pointee type, or NoPointee if opaque

	RecordName   string
	Fields       []Field // Record
	FieldsByName map[string]int

	Params          []Param // Subroutine
	HasReturn       bool
	Return          ID
	StackArgSize    int // bytes of arguments passed on the caller's stack
	HiddenParams    int // 1 if returning a record by hidden pointer, else 0

	Low, High int64 // StaticArray bounds (inclusive)
	Elem      ID    // StaticArray element type
}

// WordSize is the machine word size in bytes, used for scalar register
// widths, FP/SP/GP arithmetic, and local alignment (spec.md §4.5.2: "locals
// is to machine-word size").
const WordSize = 8

// Arena owns all Descriptors created during a compilation session. Index 0
// is always the Invalid descriptor.
type Arena struct {
	descs []Descriptor
}

// NewArena returns an Arena preloaded with the built-in scalar kinds at
// fixed, well-known IDs, plus the Invalid descriptor at ID 0.
func NewArena() *Arena {
	a := &Arena{}
	a.descs = append(a.descs, Descriptor{Kind: Invalid})
	for _, k := range []Kind{I8, U8, I16, U16, I32, U32, I64, U64, F32, F64, Bool, Char, String} {
		a.descs = append(a.descs, Descriptor{Kind: k, Size: builtinSize(k)})
	}
	return a
}

func builtinSize(k Kind) int {
	switch k {
	case I8, U8, Bool:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	case Char:
		return 1
	case String:
		return WordSize // SSO header passed/stored as one pointer-sized handle
	}
	return 0
}

// Well-known IDs for the builtin scalar kinds, matching NewArena's fixed
// insertion order.
const (
	IDI8 ID = iota + 1
	IDU8
	IDI16
	IDU16
	IDI32
	IDU32
	IDI64
	IDU64
	IDF32
	IDF64
	IDBool
	IDChar
	IDString
)

// Get returns the Descriptor for id. Panics on an out-of-range id, which
// indicates a compiler bug (every ID handed to a caller must have been
// returned by this same Arena).
func (a *Arena) Get(id ID) *Descriptor {
	return &a.descs[id]
}

// Add appends d to the arena and returns its new ID.
func (a *Arena) Add(d Descriptor) ID {
	a.descs = append(a.descs, d)
	return ID(len(a.descs) - 1)
}

// NewPointer returns the ID of a pointer-to-pointee descriptor. Pointers
// are not interned: `^integer` used twice yields two descriptors, matching
// the reference compiler's straightforward allocate-on-parse approach
// (structural Equal, not identity, defines assignability).
func (a *Arena) NewPointer(pointee ID) ID {
	return a.Add(Descriptor{Kind: Pointer, Size: WordSize, Pointee: pointee})
}

// NewRecord reserves a Record descriptor and returns its ID; callers fill
// in Fields/Size via Get after computing packed offsets (needed because
// field types may reference the record's own ID for `^RecordName`, the
// pointer-to-self pattern record declarations allow).
func (a *Arena) NewRecord(name string) ID {
	return a.Add(Descriptor{Kind: Record, RecordName: name, FieldsByName: map[string]int{}})
}

// NewArray returns the ID of a static-array descriptor.
func (a *Arena) NewArray(low, high int64, elem ID) ID {
	count := high - low + 1
	size := 0
	if count > 0 {
		size = int(count) * a.Get(elem).Size
	}
	return a.Add(Descriptor{Kind: StaticArray, Low: low, High: high, Elem: elem, Size: size})
}

// NewSubroutine reserves a Subroutine descriptor, to be filled in by the
// compiler as parameters and return type are parsed.
func (a *Arena) NewSubroutine() ID {
	return a.Add(Descriptor{Kind: Subroutine, Size: WordSize})
}

// IsOrdinal reports whether k is one of the fixed-width signed/unsigned
// integer kinds or Bool/Char (all of which share the integer ALU family).
func (k Kind) IsOrdinal() bool {
	switch k {
	case I8, U8, I16, U16, I32, U32, I64, U64, Bool, Char:
		return true
	}
	return false
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	switch k {
	case I8, I16, I32, I64:
		return true
	}
	return false
}

// IsFloat reports whether k is a floating-point kind.
func (k Kind) IsFloat() bool { return k == F32 || k == F64 }

// IsInteger reports whether k is a plain (non-Bool, non-Char) integer kind.
func (k Kind) IsInteger() bool {
	switch k {
	case I8, U8, I16, U16, I32, U32, I64, U64:
		return true
	}
	return false
}

// Equal reports whether a and b (IDs into the same Arena) are structurally
// equal per spec.md §3: pointers compare by pointee equality, with an
// opaque pointer equal to any pointer; records compare by field-table
// identity (same ID), not by name.
func (a *Arena) Equal(x, y ID) bool {
	if x == y {
		return true
	}
	dx, dy := a.Get(x), a.Get(y)
	if dx.Kind != dy.Kind {
		return false
	}
	switch dx.Kind {
	case Pointer:
		if dx.Pointee == NoPointee || dy.Pointee == NoPointee {
			return true
		}
		return a.Equal(dx.Pointee, dy.Pointee)
	case Record:
		// Different IDs but same Kind means a different field table: records
		// are nominal-by-declaration-site, not structurally comparable beyond
		// identity (spec.md §3: "records compare by field-table identity, not
		// by name").
		return false
	case StaticArray:
		return dx.Low == dy.Low && dx.High == dy.High && a.Equal(dx.Elem, dy.Elem)
	case Subroutine:
		if len(dx.Params) != len(dy.Params) || dx.HasReturn != dy.HasReturn {
			return false
		}
		if dx.HasReturn && !a.Equal(dx.Return, dy.Return) {
			return false
		}
		for i := range dx.Params {
			if !a.Equal(dx.Params[i].Type, dy.Params[i].Type) {
				return false
			}
		}
		return true
	default:
		return false // distinct IDs of the same scalar Kind never happens (scalars are interned)
	}
}
