package emitter

// allocator implements spec.md §4.4.1: a bitset of in-use GPRs/FPRs (three
// GPRs always reserved: SP, FP, GP), a stack-spill mechanism for
// allocate() when the bitset is full, and a persistent-bit per register
// used to pin loop counters and live call arguments across free().
type allocator struct {
	gprInUse       [NumGPR]bool
	fprInUse       [NumFPR]bool
	gprPersistent  [NumGPR]bool
	fprPersistent  [NumFPR]bool
	spills         []spillEntry
}

type spillEntry struct {
	reg   int
	float bool
}

func newAllocator() *allocator {
	a := &allocator{}
	a.gprInUse[RegSP] = true
	a.gprInUse[RegFP] = true
	a.gprInUse[RegGP] = true
	a.gprPersistent[RegSP] = true
	a.gprPersistent[RegFP] = true
	a.gprPersistent[RegGP] = true
	return a
}

// firstFree scans a bitset for the first false entry, returning -1 if none.
func firstFree(inUse *[NumGPR]bool) int {
	for i, used := range inUse {
		if !used {
			return i
		}
	}
	return -1
}
func firstFreeF(inUse *[NumFPR]bool) int {
	for i, used := range inUse {
		if !used {
			return i
		}
	}
	return -1
}

// allocGPR returns a free GPR index, spilling one to the emitted code if the
// bitset is full (emitting a PUSHREGS for the chosen victim). The spilled
// register is recorded so a matching Free pops it back instead of merely
// clearing its bit.
func (e *Emitter) allocGPR() int {
	if r := firstFree(&e.alloc.gprInUse); r >= 0 {
		e.alloc.gprInUse[r] = true
		return r
	}
	victim := e.chooseSpillVictim(false)
	e.emitPushReg(victim, false)
	e.alloc.spills = append(e.alloc.spills, spillEntry{reg: victim, float: false})
	return victim
}

func (e *Emitter) allocFPR() int {
	if r := firstFreeF(&e.alloc.fprInUse); r >= 0 {
		e.alloc.fprInUse[r] = true
		return r
	}
	victim := e.chooseSpillVictim(true)
	e.emitPushReg(victim, true)
	e.alloc.spills = append(e.alloc.spills, spillEntry{reg: victim, float: true})
	return victim
}

// chooseSpillVictim picks a GPR/FPR "modulo the set" of non-reserved,
// non-persistent registers, per spec.md §4.4.1.
func (e *Emitter) chooseSpillVictim(float bool) int {
	n := NumGPR
	persistent := &e.alloc.gprPersistent
	if float {
		persistent = &e.alloc.fprPersistent
	}
	for i := 0; i < n; i++ {
		if !persistent[i] {
			return i % n
		}
	}
	return 0
}

// Free releases reg (a GPR index unless float is true). Reserved registers
// and registers currently marked persistent are a no-op, per spec.md
// §4.4.1. Otherwise either the matching spill is popped back (if reg is the
// most recent spill) or its in-use bit is simply cleared.
func (e *Emitter) Free(reg int, float bool) {
	persistent := &e.alloc.gprPersistent
	inUse := &e.alloc.gprInUse
	if float {
		persistent = &e.alloc.fprPersistent
		inUse = &e.alloc.fprInUse
	}
	if isReserved(reg, float) || persistent[reg] {
		return
	}
	if n := len(e.alloc.spills); n > 0 {
		top := e.alloc.spills[n-1]
		if top.reg == reg && top.float == float {
			e.alloc.spills = e.alloc.spills[:n-1]
			e.emitPopReg(reg, float)
			return
		}
	}
	inUse[reg] = false
}

func isReserved(reg int, float bool) bool {
	return !float && (reg == RegSP || reg == RegFP || reg == RegGP)
}

// AllocGPR/AllocFPR are the public entry points used by the compiler.
func (e *Emitter) AllocGPR() int { return e.allocGPR() }
func (e *Emitter) AllocFPR() int { return e.allocFPR() }

// MarkPersistent pins reg so Free becomes a no-op until ClearPersistent,
// used for loop counters and callee-saved live arguments (spec.md glossary
// "Persistent register").
func (e *Emitter) MarkPersistent(reg int, float bool) {
	if float {
		e.alloc.fprPersistent[reg] = true
	} else {
		e.alloc.gprPersistent[reg] = true
	}
}

// ClearPersistent unpins reg; the caller is responsible for freeing it
// afterward if it is no longer live.
func (e *Emitter) ClearPersistent(reg int, float bool) {
	if float {
		e.alloc.fprPersistent[reg] = false
	} else {
		e.alloc.gprPersistent[reg] = false
	}
}

// InUseSnapshot captures the allocator's bitsets, for the register
// allocator testable property in spec.md §8 ("after every statement's
// emission, the in-use bitset equals its value before the statement, minus
// any registers marked persistent").
type InUseSnapshot struct {
	GPR [NumGPR]bool
	FPR [NumFPR]bool
}

func (e *Emitter) Snapshot() InUseSnapshot {
	return InUseSnapshot{GPR: e.alloc.gprInUse, FPR: e.alloc.fprInUse}
}
