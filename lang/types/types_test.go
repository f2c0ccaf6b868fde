package types_test

import (
	"testing"

	"github.com/pvmlang/pvm/lang/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceSmallIntsWiden(t *testing.T) {
	assert.Equal(t, types.I32, types.Coerce(types.I8, types.I8))
	assert.Equal(t, types.U32, types.Coerce(types.U16, types.U16))
}

func TestCoerceIntFloat(t *testing.T) {
	assert.Equal(t, types.F64, types.Coerce(types.F64, types.I32))
	assert.Equal(t, types.F32, types.Coerce(types.I32, types.F32))
}

func TestCoerceFloats(t *testing.T) {
	assert.Equal(t, types.F64, types.Coerce(types.F32, types.F64))
}

func TestCoerceIncompatible(t *testing.T) {
	assert.Equal(t, types.Invalid, types.Coerce(types.Bool, types.F64))
}

func TestArenaOpaquePointerEquality(t *testing.T) {
	a := types.NewArena()
	p1 := a.NewPointer(types.IDI32)
	p2 := a.NewPointer(types.NoPointee)
	assert.True(t, a.Equal(p1, p2), "opaque pointer must be compatible with any pointer")
}

func TestArenaPointerCycle(t *testing.T) {
	a := types.NewArena()
	rec := a.NewRecord("node")
	self := a.NewPointer(rec)
	d := a.Get(rec)
	d.Fields = append(d.Fields, types.Field{Name: "next", Type: self, Offset: 0})
	d.Size = types.WordSize
	require.Equal(t, "node", a.Get(rec).RecordName)
	assert.Equal(t, rec, a.Get(a.Get(rec).Fields[0].Type).Pointee)
}

func TestArenaRecordsCompareByIdentity(t *testing.T) {
	a := types.NewArena()
	r1 := a.NewRecord("r")
	r2 := a.NewRecord("r")
	assert.False(t, a.Equal(r1, r2))
	assert.True(t, a.Equal(r1, r1))
}
