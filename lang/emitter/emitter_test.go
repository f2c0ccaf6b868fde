package emitter_test

import (
	"testing"

	"github.com/pvmlang/pvm/lang/chunk"
	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorReservesSPFPGP(t *testing.T) {
	e := emitter.New(chunk.New())
	for i := 0; i < emitter.NumGPR-3; i++ {
		r := e.AllocGPR()
		assert.NotEqual(t, emitter.RegSP, r)
		assert.NotEqual(t, emitter.RegFP, r)
		assert.NotEqual(t, emitter.RegGP, r)
	}
}

func TestAllocatorFreeRestoresBitset(t *testing.T) {
	e := emitter.New(chunk.New())
	before := e.Snapshot()
	r1 := e.AllocGPR()
	r2 := e.AllocGPR()
	e.Free(r2, false)
	e.Free(r1, false)
	after := e.Snapshot()
	assert.Equal(t, before, after)
}

func TestPersistentFreeIsNoop(t *testing.T) {
	e := emitter.New(chunk.New())
	r := e.AllocGPR()
	e.MarkPersistent(r, false)
	before := e.Snapshot()
	e.Free(r, false)
	after := e.Snapshot()
	assert.Equal(t, before, after, "freeing a persistent register must be a no-op")
}

func TestBranchPatchRoundTrip(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)

	site := e.EmitBEZ(1)
	for i := 0; i < 10; i++ {
		e.EmitR(emitter.NOP, 0)
	}
	target := c.Here()
	e.Patch(site, target, emitter.PatchBEZBNZ)

	got := emitter.DecodeOffset(c.Code, site, emitter.PatchBEZBNZ)
	want := int64(target) - int64(site) - 2
	assert.Equal(t, want, got)
}

func TestBRFamilyPatchRoundTrip(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)

	site := e.EmitCall()
	for i := 0; i < 5; i++ {
		e.EmitR(emitter.NOP, 0)
	}
	target := c.Here()
	e.Patch(site, target, emitter.PatchBRFamily)

	got := emitter.DecodeOffset(c.Code, site, emitter.PatchBRFamily)
	want := int64(target) - int64(site) - 2
	assert.Equal(t, want, got)
}

func TestLDRIPPatchRoundTrip(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)
	site := e.EmitLDRIP(2, emitter.W64)
	target := c.Here() + 100
	e.Patch(site, target, emitter.PatchLDRIP)
	got := emitter.DecodeOffset(c.Code, site, emitter.PatchLDRIP)
	want := int64(target) - int64(site) - 3
	assert.Equal(t, want, got)
}

func TestMulByZeroFoldsToMoveImmediateZero(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)
	r := e.AllocGPR()
	start := c.Here()
	handled := e.TryMulConst(r, 0, false, true)
	require.True(t, handled)
	assert.Equal(t, emitter.MOVQI, emitter.Op(c.Code[start]>>8))
}

func TestMulByPowerOfTwoFoldsToShift(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)
	r := e.AllocGPR()
	start := c.Here()
	handled := e.TryMulConst(r, 8, false, true)
	require.True(t, handled)
	assert.Equal(t, emitter.SHLI32, emitter.Op(c.Code[start]>>8))
}

func TestDivByOneIsElided(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)
	r := e.AllocGPR()
	start := c.Here()
	handled := e.TryDivConst(r, 1, false, true)
	require.True(t, handled)
	assert.Equal(t, start, c.Here(), "divide by 1 must emit nothing")
}

func TestAddSmallConstUsesImmediateForm(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)
	r := e.AllocGPR()
	start := c.Here()
	handled := e.TryAddConst(r, 3, false)
	require.True(t, handled)
	assert.Equal(t, emitter.ADDI32, emitter.Op(c.Code[start]>>8))
}
