package symtab_test

import (
	"fmt"
	"testing"

	"github.com/pvmlang/pvm/lang/symtab"
	"github.com/pvmlang/pvm/lang/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindWithinAndOutsideScope(t *testing.T) {
	st := symtab.New()
	st.Push()
	require.NoError(t, st.Define(symtab.Symbol{Name: "x", Line: 1, Type: types.IDI32}))

	sym, ok := st.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "x", sym.Name)

	st.Pop()
	_, ok = st.Lookup("x")
	assert.False(t, ok, "x must not be visible outside the scope that defined it")
}

func TestInnerShadowsOuter(t *testing.T) {
	st := symtab.New()
	require.NoError(t, st.DefineGlobal(symtab.Symbol{Name: "n", Line: 1, Type: types.IDI32}))
	st.Push()
	require.NoError(t, st.Define(symtab.Symbol{Name: "n", Line: 5, Type: types.IDBool}))

	sym, ok := st.Lookup("n")
	require.True(t, ok)
	assert.Equal(t, 5, sym.Line, "inner scope's binding must win")

	st.Pop()
	sym, ok = st.Lookup("n")
	require.True(t, ok)
	assert.Equal(t, 1, sym.Line)
}

func TestRedefinitionInSameScopeErrors(t *testing.T) {
	st := symtab.New()
	require.NoError(t, st.DefineGlobal(symtab.Symbol{Name: "x", Line: 1}))
	err := st.DefineGlobal(symtab.Symbol{Name: "x", Line: 2})
	require.Error(t, err)

	sym, _ := st.Lookup("x")
	assert.Equal(t, 1, sym.Line, "conflicting define must not overwrite the original")
}

func TestShadowingPredefinedIsDistinctMessage(t *testing.T) {
	st := symtab.New()
	require.NoError(t, st.DefineGlobal(symtab.Symbol{Name: "writeln", Line: 0}))
	err := st.DefineGlobal(symtab.Symbol{Name: "writeln", Line: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predefined")
}

func TestDeleteTombstoneDoesNotBreakProbing(t *testing.T) {
	sc := symtab.NewScope()
	// force collisions onto the same bucket by using many entries in a tiny
	// table, then delete the middle one and ensure lookups for later
	// entries still succeed (tombstone must not terminate the probe early).
	names := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, n := range names {
		_, existed := sc.Set(symtab.Symbol{Name: n, Line: i + 1})
		require.False(t, existed)
	}
	require.True(t, sc.Delete("c"))
	for _, n := range names {
		if n == "c" {
			continue
		}
		_, ok := sc.Find(n)
		assert.True(t, ok, n)
	}
	_, ok := sc.Find("c")
	assert.False(t, ok)
}

func TestGrowPreservesEntries(t *testing.T) {
	sc := symtab.NewScope()
	for i := 0; i < 100; i++ {
		sc.Set(symtab.Symbol{Name: fmt.Sprintf("sym%d", i), Line: i})
	}
	assert.Equal(t, 100, sc.Len())
}
