// Package chunk implements Chunk, the compilation unit described in
// spec.md §3 and §6: a growable u16 opcode stream, a byte blob for global
// data, an entry-point code index, and a line-debug index.
package chunk

import (
	"sort"

	"github.com/dolthub/swiss"
)

// maxLinesPerRecord bounds how many source lines a single debug-index
// record may fold together ("a debug index mapping code offsets to ≤8
// source-line records each", spec.md §3).
const maxLinesPerRecord = 8

// LineRecord maps a contiguous run of code starting at PC to up to
// maxLinesPerRecord source lines (more than one when several statements on
// distinct physical lines compile to a single straight-line run with no
// intervening record, e.g. a multi-clause case arm).
type LineRecord struct {
	PC    uint32
	Lines [maxLinesPerRecord]int32
	N     uint8
}

// Chunk is the compiled program: code, globals, the entry point, and debug
// info. It is read-only once handed to the VM (spec.md §5).
type Chunk struct {
	Code    []uint16
	Globals []byte
	Entry   uint32

	debug []LineRecord // sorted by PC, built via AddLine

	// GlobalNames maps a global variable's name to its byte offset in
	// Globals, for REPL/driver introspection (spec.md §6 "REPL mode").
	// Backed by the teacher's own runtime map type (dolthub/swiss) since no
	// spec invariant pins its probing behavior, unlike the Scope table.
	GlobalNames *swiss.Map[string, uint32]

	// Strings is the string-literal constant pool SLIT indexes into. Pooled
	// and deduplicated at compile time; materialized into a runtime string
	// handle by the VM only when control actually reaches the SLIT.
	Strings []string
	strIdx  map[string]uint16
}

// New returns an empty Chunk ready for emission.
func New() *Chunk {
	return &Chunk{GlobalNames: swiss.NewMap[string, uint32](8), strIdx: map[string]uint16{}}
}

// AddString interns s into the string constant pool, returning its index.
func (c *Chunk) AddString(s string) uint16 {
	if idx, ok := c.strIdx[s]; ok {
		return idx
	}
	idx := uint16(len(c.Strings))
	c.Strings = append(c.Strings, s)
	c.strIdx[s] = idx
	return idx
}

// EmitWord appends a u16 to the code vector and returns its index.
func (c *Chunk) EmitWord(w uint16) uint32 {
	c.Code = append(c.Code, w)
	return uint32(len(c.Code) - 1)
}

// PatchWord overwrites the word at index pc.
func (c *Chunk) PatchWord(pc uint32, w uint16) {
	c.Code[pc] = w
}

// Here returns the index the next EmitWord call will use.
func (c *Chunk) Here() uint32 { return uint32(len(c.Code)) }

// AddLine records that code starting at pc maps to line. Consecutive calls
// at the same pc accumulate into one record (up to maxLinesPerRecord
// lines); a call at a new pc starts a fresh record.
func (c *Chunk) AddLine(pc uint32, line int32) {
	if n := len(c.debug); n > 0 && c.debug[n-1].PC == pc {
		rec := &c.debug[n-1]
		if rec.N < maxLinesPerRecord {
			rec.Lines[rec.N] = line
			rec.N++
		}
		return
	}
	var rec LineRecord
	rec.PC = pc
	rec.Lines[0] = line
	rec.N = 1
	c.debug = append(c.debug, rec)
}

// LineFor returns the primary source line recorded for the instruction at
// or before pc, and whether any debug info exists at all.
func (c *Chunk) LineFor(pc uint32) (int32, bool) {
	if len(c.debug) == 0 {
		return 0, false
	}
	i := sort.Search(len(c.debug), func(i int) bool { return c.debug[i].PC > pc })
	if i == 0 {
		return 0, false
	}
	rec := c.debug[i-1]
	return rec.Lines[rec.N-1], true
}

// WriteGlobal appends n zero bytes to the globals blob and returns the
// offset at which they start; used for var declarations with no constant
// initializer to fold.
func (c *Chunk) WriteGlobal(n int) int {
	off := len(c.Globals)
	c.Globals = append(c.Globals, make([]byte, n)...)
	return off
}
