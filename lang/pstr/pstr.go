// Package pstr implements String, the small-string-optimized mutable string
// value used both at compile time (for literals and constant folding) and at
// runtime (by the VM, notably as the destination of the SADD instruction —
// see spec.md §9 "Operator overloading of + on strings").
package pstr

// inlineCap is the number of bytes a String can hold without a heap
// allocation. Chosen so the 15 inline bytes plus the length byte fill two
// machine words on a 64-bit host (the heap slice header adds three more),
// matching the kind of budget a systems implementation would give a
// small-string buffer.
const inlineCap = 15

// String is a small-string-optimized, mutable string value. Strings of
// length <= inlineCap live entirely in the struct; longer strings spill to
// a heap-allocated byte slice. String is a value type: copying it copies
// the inline bytes (or the slice header for the spilled case, which is why
// Append and Set always reassign through a pointer receiver rather than
// mutating shared backing arrays in place).
type String struct {
	inline [inlineCap]byte
	n      uint8 // length when not spilled; 0xff sentinel is never produced
	heap   []byte
}

// New returns a String holding a copy of s.
func New(s string) String {
	var v String
	v.Set(s)
	return v
}

// Len returns the number of bytes in the string.
func (v *String) Len() int {
	if v.heap != nil {
		return len(v.heap)
	}
	return int(v.n)
}

// Bytes returns the string's bytes. The returned slice aliases the
// String's storage and must not be retained past the next mutation.
func (v *String) Bytes() []byte {
	if v.heap != nil {
		return v.heap
	}
	return v.inline[:v.n]
}

// String returns the content as a Go string (always a copy).
func (v *String) String() string {
	return string(v.Bytes())
}

// Set replaces the content of v with a copy of s.
func (v *String) Set(s string) {
	if len(s) <= inlineCap {
		v.heap = nil
		v.n = uint8(copy(v.inline[:], s))
		return
	}
	v.heap = append([]byte(nil), s...)
	v.n = 0
}

// Append concatenates s onto v in place, spilling to the heap if the
// combined length exceeds inlineCap. This is the mutation performed by the
// SADD instruction's destination operand (the VM's TmpStr slot): Pascal's
// "+" on strings always yields a value the compiler can target
// unambiguously, modeled here as append into an owned String rather than an
// allocation of a fresh immutable value per concatenation.
func (v *String) Append(s string) {
	cur := v.Len()
	total := cur + len(s)
	if total <= inlineCap {
		copy(v.inline[cur:], s)
		v.n = uint8(total)
		return
	}
	if v.heap == nil {
		v.heap = append([]byte(nil), v.inline[:v.n]...)
	}
	v.heap = append(v.heap, s...)
	v.n = 0
}

// Concat returns a new String holding a+b, without mutating either operand.
func Concat(a, b String) String {
	var out String
	out.Set(a.String())
	out.Append(b.String())
	return out
}

// Equal reports whether v and other hold the same bytes.
func (v *String) Equal(other *String) bool {
	return v.String() == other.String()
}

// Compare returns -1, 0 or +1 as v is less than, equal to, or greater than
// other, by byte-wise lexicographic order (backs the STRLT/STRGT/STREQU VM
// instruction family).
func (v *String) Compare(other *String) int {
	a, b := v.String(), other.String()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
