package disasm_test

import (
	"strings"
	"testing"

	"github.com/pvmlang/pvm/lang/chunk"
	"github.com/pvmlang/pvm/lang/disasm"
	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecoversBranchTarget(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)

	site := e.EmitBEZ(1)
	for i := 0; i < 3; i++ {
		e.EmitR(emitter.NOP, 0)
	}
	target := c.Here()
	e.Patch(site, target, emitter.PatchBEZBNZ)

	lines := disasm.Decode(c)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0].Text, "bez")
	assert.Contains(t, lines[0].Text, "5") // target pc
}

func TestDecodeCoversWholeChunk(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)
	e.EmitMOVQI(0, 5)
	e.EmitR(emitter.NEG32, 0)
	e.EmitExit()

	lines := disasm.Decode(c)
	var totalWords uint32
	for _, l := range lines {
		totalWords += l.Words
	}
	assert.Equal(t, uint32(len(c.Code)), totalWords)
}

func TestTextListsEveryLine(t *testing.T) {
	c := chunk.New()
	e := emitter.New(c)
	e.EmitMOVQI(0, 1)
	e.EmitExit()
	out := disasm.Text(c)
	assert.True(t, strings.Contains(out, "movqi"))
	assert.True(t, strings.Contains(out, "exit"))
}
