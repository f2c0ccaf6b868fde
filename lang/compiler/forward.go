package compiler

import "github.com/pvmlang/pvm/lang/emitter"

// forwardEntry is one pending call-site awaiting its subroutine's entry
// offset, per the re-architecture note in spec.md §9: "model as a
// per-compilation ledger of (call_site, subroutine_id, patch_kind) entries
// resolved in one pass at finalization" rather than a mutable list hung off
// each subroutine descriptor.
type forwardEntry struct {
	callSite uint32
	subID    int32
	kind     emitter.PatchKind
}

// forwardLedger collects every call/LDRIP site that named a not-yet-defined
// subroutine, keyed by SubroutineInfo.ID, and the entry offset each
// subroutine resolves to once known.
type forwardLedger struct {
	entries []forwardEntry
	offsets map[int32]uint32
}

func newForwardLedger() *forwardLedger {
	return &forwardLedger{offsets: map[int32]uint32{}}
}

// record adds a pending patch for subID, to be resolved once subID's entry
// offset is known.
func (f *forwardLedger) record(callSite uint32, subID int32, kind emitter.PatchKind) {
	f.entries = append(f.entries, forwardEntry{callSite, subID, kind})
}

// define records that subID's subroutine body begins at entryOffset.
func (f *forwardLedger) define(subID int32, entryOffset uint32) {
	f.offsets[subID] = entryOffset
}

// resolve patches every pending entry against its now-known target offset.
// An entry whose subroutine was never defined is reported as a compile
// error and left unpatched. Called once at compile finalization (spec.md
// §4.4.3).
func (f *forwardLedger) resolve(c *Compiler) {
	for _, e := range f.entries {
		target, ok := f.offsets[e.subID]
		if !ok {
			c.errorf("forward-declared subroutine is never defined")
			continue
		}
		c.em.Patch(e.callSite, target, e.kind)
	}
}
