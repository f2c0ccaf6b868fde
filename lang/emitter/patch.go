package emitter

// PatchKind selects which branch-offset encoding pattern Patch rewrites, per
// spec.md §4.4.3. Patch does not inspect the opcode at the patch site; the
// kind passed in alone selects which offset bits are rewritten.
type PatchKind uint8

const (
	PatchBEZBNZ  PatchKind = iota // 4-bit/16-bit split, 20-bit signed total
	PatchBRFamily                 // BR/CALL/BCT/BCF: 8-bit/16-bit split, 24-bit signed total
	PatchBRI                      // BRI: plain 16-bit signed offset, second word only
	PatchLDRIP                    // LDRIP: 32-bit signed displacement across two words
)

// instrWords returns how many 16-bit words the instruction occupies,
// needed to compute a PC-relative offset from the start of the next
// instruction.
func (k PatchKind) instrWords() uint32 {
	if k == PatchLDRIP {
		return 3
	}
	return 2
}

// EmitBEZ/EmitBNZ emit a conditional-on-register branch with a placeholder
// offset and return its code index (the "branch emitters return the code
// offset of their first opcode word" contract of spec.md §4.4.3).
func (e *Emitter) EmitBEZ(rd int) uint32 { return e.emitBranchPlaceholder(BEZ, uint8(rd)) }
func (e *Emitter) EmitBNZ(rd int) uint32 { return e.emitBranchPlaceholder(BNZ, uint8(rd)) }

func (e *Emitter) emitBranchPlaceholder(op Op, rd uint8) uint32 {
	pc := e.emit(op, rd, 0)
	e.EmitWord(0)
	return pc
}

// EmitBR/EmitBCT/EmitBCF/EmitCall emit the BR-family branches with a
// placeholder offset.
func (e *Emitter) EmitBR() uint32   { return e.emitBRFamily(BR) }
func (e *Emitter) EmitBCT() uint32  { return e.emitBRFamily(BCT) }
func (e *Emitter) EmitBCF() uint32  { return e.emitBRFamily(BCF) }
func (e *Emitter) EmitCall() uint32 { return e.emitBRFamily(CALL) }

func (e *Emitter) emitBRFamily(op Op) uint32 {
	pc := e.emit(op, 0, 0)
	e.EmitWord(0)
	return pc
}

// EmitBRI emits the increment-and-branch loop back-edge: Rd += inc, then
// branch by the (to-be-patched) 16-bit signed offset.
func (e *Emitter) EmitBRI(rd int, inc int8) uint32 {
	pc := e.emit(BRI, uint8(rd), uint8(inc)&0xf)
	e.EmitWord(0)
	return pc
}

// EmitLDRIP emits a function-pointer materialization with a placeholder
// 32-bit displacement; widthTag is typically W64 (a code pointer is
// pointer-width) but is kept generic per spec.md §6.
func (e *Emitter) EmitLDRIP(rd int, widthTag Width) uint32 {
	pc := e.emit(LDRIP, uint8(rd), uint8(widthTag))
	e.EmitWord(0)
	e.EmitWord(0)
	return pc
}

// Patch rewrites the branch/call/LDRIP at code index from so that it
// targets code index to, per the encoding pattern kind names. The
// relative offset is computed as (to - (from + instruction size)), i.e.
// relative to the address of the instruction following the patched one,
// matching a PC that has already advanced past the branch at decode time.
func (e *Emitter) Patch(from, to uint32, kind PatchKind) {
	if e.Suppress {
		// Patch sites captured while suppressed don't name real instructions
		// (EmitWord returned Chunk.Here() without appending); touching
		// Chunk.Code at that stale index would corrupt whatever real
		// instruction now occupies it.
		return
	}
	rel := int64(to) - int64(from) - int64(kind.instrWords())

	switch kind {
	case PatchBEZBNZ:
		if rel < -(1<<19) || rel >= (1<<19) {
			panic("emitter: BEZ/BNZ offset out of 20-bit range")
		}
		u := uint32(rel) & 0xfffff // 20 bits
		w0 := e.Chunk.Code[from]
		w0 = (w0 &^ 0xf) | uint16(u&0xf)
		e.PatchWord(from, w0)
		e.PatchWord(from+1, uint16(u>>4))

	case PatchBRFamily:
		if rel < -(1<<23) || rel >= (1<<23) {
			panic("emitter: BR-family offset out of 24-bit range")
		}
		u := uint32(rel) & 0xffffff // 24 bits
		w0 := e.Chunk.Code[from]
		w0 = (w0 &^ 0xff) | uint16(u&0xff)
		e.PatchWord(from, w0)
		e.PatchWord(from+1, uint16(u>>8))

	case PatchBRI:
		if rel < -(1<<15) || rel >= (1<<15) {
			panic("emitter: BRI offset out of 16-bit range")
		}
		e.PatchWord(from+1, uint16(int16(rel)))

	case PatchLDRIP:
		if rel < -(1<<31) || rel >= (1<<31) {
			panic("emitter: LDRIP displacement out of 32-bit range")
		}
		u := uint32(rel)
		e.PatchWord(from+1, uint16(u))
		e.PatchWord(from+2, uint16(u>>16))
	}
}

// DecodeOffset recovers the signed relative offset a prior Patch call wrote,
// for the round-trip testable property of spec.md §8.
func DecodeOffset(code []uint16, from uint32, kind PatchKind) int64 {
	switch kind {
	case PatchBEZBNZ:
		u := uint32(code[from]&0xf) | uint32(code[from+1])<<4
		return signExtend(u, 20)
	case PatchBRFamily:
		u := uint32(code[from]&0xff) | uint32(code[from+1])<<8
		return signExtend(u, 24)
	case PatchBRI:
		return int64(int16(code[from+1]))
	case PatchLDRIP:
		u := uint32(code[from+1]) | uint32(code[from+2])<<16
		return int64(int32(u))
	}
	return 0
}

func signExtend(u uint32, bits uint) int64 {
	shift := 32 - bits
	return int64(int32(u<<shift)) >> shift
}
