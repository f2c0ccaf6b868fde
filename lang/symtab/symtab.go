package symtab

import "fmt"

// SymbolTable is the stack of Scopes described in spec.md §3: a chain of
// block/function scopes plus one global scope at the bottom. Lookup walks
// the stack innermost-first, then consults the global scope.
type SymbolTable struct {
	global *Scope
	stack  []*Scope // innermost last
}

// New returns a SymbolTable with only the global scope open.
func New() *SymbolTable {
	return &SymbolTable{global: NewScope()}
}

// Push opens a new nested scope.
func (t *SymbolTable) Push() {
	t.stack = append(t.stack, NewScope())
}

// Pop closes the innermost scope, returning its bindings to the caller (the
// session allocator reclaims any registers/slots they held — spec.md §3
// "popping a scope frees its symbols' bindings back to the allocator").
// Popping with no open nested scope is a programming error in the
// compiler, not a user-facing one, so it panics.
func (t *SymbolTable) Pop() *Scope {
	n := len(t.stack)
	top := t.stack[n-1]
	t.stack = t.stack[:n-1]
	return top
}

// Depth reports the number of currently open nested scopes (excluding
// global).
func (t *SymbolTable) Depth() int { return len(t.stack) }

// current returns the innermost open scope, or global if none is open.
func (t *SymbolTable) current() *Scope {
	if len(t.stack) == 0 {
		return t.global
	}
	return t.stack[len(t.stack)-1]
}

// Global returns the global scope directly, for definitions the compiler
// explicitly wants at global scope (e.g. top-level var/const/type/routine
// declarations) regardless of current nesting.
func (t *SymbolTable) Global() *Scope { return t.global }

// Lookup searches innermost-first, then the global scope, per spec.md
// §4.2.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if sym, ok := t.stack[i].Find(name); ok {
			return sym, true
		}
	}
	return t.global.Find(name)
}

// Define binds name in the current scope (current(), i.e. the innermost
// open scope, or global if none is open). It reports an error if name is
// already present in that exact scope; shadowing a predeclared (Line == 0)
// entry at global scope is diagnosed with a distinct message, per spec.md
// §4.2.
func (t *SymbolTable) Define(sym Symbol) error {
	scope := t.current()
	old, existed := scope.Set(sym)
	if !existed {
		return nil
	}
	// Set already overwrote the slot; restore the previous binding since a
	// conflict must not silently replace it.
	scope.Set(old)
	if old.Line == 0 {
		return fmt.Errorf("%q shadows a predefined identifier", sym.Name)
	}
	return fmt.Errorf("%q is already defined at line %d", sym.Name, old.Line)
}

// DefineGlobal is Define, but always targets the global scope regardless of
// currently open nested scopes.
func (t *SymbolTable) DefineGlobal(sym Symbol) error {
	old, existed := t.global.Set(sym)
	if !existed {
		return nil
	}
	t.global.Set(old)
	if old.Line == 0 {
		return fmt.Errorf("%q shadows a predefined identifier", sym.Name)
	}
	return fmt.Errorf("%q is already defined at line %d", sym.Name, old.Line)
}
