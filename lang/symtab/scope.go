// Package symtab implements the hashed scope and scope stack of spec.md
// §4.2: an open-addressing (linear probing) hash table per scope, chained
// into a stack of scopes plus one global scope, grounded on the reference
// compiler's Vartab (original_source/src/Vartab.c).
package symtab

import "github.com/pvmlang/pvm/lang/types"

const (
	initialCap = 8
	maxLoad    = 0.75
	growFactor = 2
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotTomb
	slotLive
)

// Symbol is a named binding together with its declaration metadata, per
// spec.md §3.
type Symbol struct {
	Name    string
	Line    int // 0 for predeclared/builtin identifiers
	Hash    uint32
	Type    types.ID
	Binding Binding
}

type slot struct {
	state slotState
	sym   Symbol
}

// Scope is one hashed, open-addressed level of bindings: a single scope's
// table, without knowledge of any enclosing scope. Higher-level lookup
// across nested scopes is SymbolTable's job.
type Scope struct {
	slots []slot
	count int // live entries, used for load-factor checks (tombstones excluded)
}

// NewScope returns an empty Scope with room for at least initialCap
// entries.
func NewScope() *Scope {
	return &Scope{slots: make([]slot, initialCap)}
}

// Find returns the Symbol named name in this scope only, and whether it
// was found.
func (s *Scope) Find(name string) (*Symbol, bool) {
	idx, found := s.probe(name, hashStr(name))
	if !found {
		return nil, false
	}
	return &s.slots[idx].sym, true
}

// Set inserts or overwrites the binding for name in this scope, growing the
// table first if doing so would exceed the load factor. It returns the
// previous Symbol and true if name was already present (a conflict the
// caller — SymbolTable.Define — turns into a redefinition diagnostic).
func (s *Scope) Set(sym Symbol) (old Symbol, existed bool) {
	if float64(s.count+1) > float64(len(s.slots))*maxLoad {
		s.grow(len(s.slots) * growFactor)
	}
	sym.Hash = hashStr(sym.Name)
	idx, found := s.probe(sym.Name, sym.Hash)
	if found {
		old = s.slots[idx].sym
		s.slots[idx].sym = sym
		return old, true
	}
	if s.slots[idx].state != slotLive {
		s.count++
	}
	s.slots[idx] = slot{state: slotLive, sym: sym}
	return Symbol{}, false
}

// Delete removes name from the scope, leaving a tombstone so later probes
// for colliding keys still terminate correctly. Reports whether name was
// present.
func (s *Scope) Delete(name string) bool {
	idx, found := s.probe(name, hashStr(name))
	if !found {
		return false
	}
	s.slots[idx] = slot{state: slotTomb}
	s.count--
	return true
}

// probe runs the find-valid-slot walk of Vartab.c: it returns the index of
// the matching live slot (found == true), or the first empty-or-tombstoned
// slot where name would be inserted (found == false).
func (s *Scope) probe(name string, hash uint32) (idx int, found bool) {
	capacity := len(s.slots)
	tomb := -1
	i := int(hash) & (capacity - 1)
	for n := 0; n < capacity; n++ {
		sl := &s.slots[i]
		switch sl.state {
		case slotTomb:
			if tomb < 0 {
				tomb = i
			}
		case slotEmpty:
			if tomb >= 0 {
				return tomb, false
			}
			return i, false
		case slotLive:
			if sl.sym.Hash == hash && sl.sym.Name == name {
				return i, true
			}
		}
		i = (i + 1) & (capacity - 1)
	}
	// Table full of tombstones/collisions with no match and no empty slot:
	// Set always grows before this can happen, so this is unreachable for
	// Set; for a pure Find/Delete miss on a saturated table we still need a
	// slot to report "not found" against.
	if tomb >= 0 {
		return tomb, false
	}
	return 0, false
}

func (s *Scope) grow(newCap int) {
	old := s.slots
	s.slots = make([]slot, newCap)
	s.count = 0
	for _, sl := range old {
		if sl.state != slotLive {
			continue
		}
		idx, _ := s.probe(sl.sym.Name, sl.sym.Hash)
		s.slots[idx] = slot{state: slotLive, sym: sl.sym}
		s.count++
	}
}

// Len returns the number of live entries.
func (s *Scope) Len() int { return s.count }
