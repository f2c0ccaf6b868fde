package compiler

import (
	"math"

	"github.com/pvmlang/pvm/lang/emitter"
	"github.com/pvmlang/pvm/lang/symtab"
	"github.com/pvmlang/pvm/lang/token"
	"github.com/pvmlang/pvm/lang/types"
)

// compileProgram compiles a full `program Name; block .` per spec.md
// §4.5.1. The top-level statement block is wrapped in its own ENTER/EXIT
// frame, exactly like a parameterless procedure, so that a record-returning
// call at the outermost level has a caller frame to allocate its hidden
// return slot in. Declarations compile first so every procedure/function
// body and global initializer is emitted before Entry is fixed: Entry
// names the first instruction of the top-level block, leaving every
// declared subroutine's body as code that only ever runs when CALLed.
func (c *Compiler) compileProgram() {
	c.expect(token.PROGRAM)
	c.expectIdent()
	c.expect(token.SEMI)

	c.declarations()

	c.chunk.Entry = c.chunk.Here()
	enterPC := c.em.EmitEnter()
	c.em.ResetFrame()
	c.sym.Push()

	c.compoundStatement()

	c.em.EmitExit()
	c.em.PatchEnter(enterPC, uint32(c.em.FrameSize()))

	c.sym.Pop()
	c.expect(token.DOT)
}

// declarations dispatches a run of const/type/var sections and
// procedure/function declarations, in any order and any number of times —
// used both at program scope and inside a subroutine body before its
// `begin`.
func (c *Compiler) declarations() {
	for {
		switch c.tok.Token {
		case token.CONST:
			c.constDecls()
		case token.TYPE:
			c.typeDecls()
		case token.VAR:
			c.varDecls()
		case token.PROCEDURE:
			c.next()
			c.subroutineDecl(false)
		case token.FUNCTION:
			c.next()
			c.subroutineDecl(true)
		default:
			return
		}
	}
}

// --- const ---

func (c *Compiler) constDecls() {
	c.expect(token.CONST)
	for c.at(token.IDENT) {
		line := c.tok.Pos.Line
		name, _ := c.expectIdent()
		c.expect(token.EQ)
		v := c.parseExpr()
		c.expect(token.SEMI)
		if v.kind != vLiteral {
			c.errorf("%q's value is not a compile-time constant", name)
			continue
		}
		c.defineSymbol(symtab.Symbol{
			Name: name, Line: line, Type: v.typ,
			Binding: symtab.Binding{Kind: symtab.BindLiteral, Literal: v.literal},
		})
	}
}

// --- type ---

func (c *Compiler) typeDecls() {
	c.expect(token.TYPE)
	for c.at(token.IDENT) {
		line := c.tok.Pos.Line
		name, _ := c.expectIdent()
		c.expect(token.EQ)

		// A named record is reserved and bound before its fields are parsed,
		// so `^Name` inside the record's own fields (the classic linked-list
		// self-reference) resolves to this type.
		if c.at(token.RECORD) {
			id := c.types.NewRecord(name)
			c.defineSymbol(symtab.Symbol{Name: name, Line: line, Type: id, Binding: symtab.Binding{Kind: symtab.BindTypename}})
			c.next()
			c.recordFields(id)
			c.expect(token.END)
			c.expect(token.SEMI)
			continue
		}

		id := c.parseTypeExpr()
		c.expect(token.SEMI)
		c.defineSymbol(symtab.Symbol{Name: name, Line: line, Type: id, Binding: symtab.Binding{Kind: symtab.BindTypename}})
	}
}

// parseTypeExpr parses a type denoter: a named type, `^T`, `array [lo..hi]
// of T`, or an inline `record ... end`.
func (c *Compiler) parseTypeExpr() types.ID {
	switch c.tok.Token {
	case token.CARET:
		c.next()
		if c.at(token.PROCEDURE) || c.at(token.FUNCTION) {
			return c.types.NewPointer(c.parseSubroutineType())
		}
		return c.types.NewPointer(c.parseTypeExpr())
	case token.ARRAY:
		c.next()
		c.expect(token.LBRACK)
		low := c.parseConstIntExpr()
		c.expect(token.DOTDOT)
		high := c.parseConstIntExpr()
		c.expect(token.RBRACK)
		c.expect(token.OF)
		elem := c.parseTypeExpr()
		return c.types.NewArray(low, high, elem)
	case token.RECORD:
		c.next()
		id := c.types.NewRecord("")
		c.recordFields(id)
		c.expect(token.END)
		return id
	case token.IDENT:
		return c.lookupTypeName()
	}
	c.errorf("expected a type, found %s", c.tok.Token)
	return types.InvalidID
}

// parseSubroutineType parses a bare `procedure(...)` / `function(...):T`
// signature used as a type denoter, e.g. inside `^procedure(integer)`. It
// never parses a body: only the signature, for a pointer-to-subroutine
// variable's static type.
func (c *Compiler) parseSubroutineType() types.ID {
	isFunc := c.at(token.FUNCTION)
	c.next()
	params := c.parseParamList()
	id := c.types.NewSubroutine()
	d := c.types.Get(id)
	d.Params = params
	if isFunc {
		c.expect(token.COLON)
		d.Return = c.parseTypeExpr()
		d.HasReturn = true
	}
	return id
}

func (c *Compiler) lookupTypeName() types.ID {
	name, ok := c.expectIdent()
	if !ok {
		return types.InvalidID
	}
	sym, found := c.sym.Lookup(name)
	if !found || sym.Binding.Kind != symtab.BindTypename {
		c.errorf("%q is not a type", name)
		return types.InvalidID
	}
	return sym.Type
}

// parseConstIntExpr parses a compile-time-constant ordinal expression, for
// array bounds.
func (c *Compiler) parseConstIntExpr() int64 {
	v := c.parseExpr()
	if v.kind != vLiteral {
		c.errorf("expected a constant expression")
		return 0
	}
	k := c.kindOf(v)
	if k == types.Char {
		return int64(v.literal.Str[0])
	}
	if !k.IsInteger() {
		c.errorf("expected a constant integer expression")
		return 0
	}
	return v.literal.Int
}

// recordFields parses `name, name: T; ...` member declarations into id's
// descriptor, packing fields at increasing byte offsets with no padding
// (spec.md §4.5.2). Field data accumulates in local slices/maps and is
// written into the arena's Descriptor only once, at the end: parseTypeExpr
// for a later field's type may itself grow the same Arena (e.g. a nested
// `^OtherRecord` or `array ... of` elaboration), which can reallocate the
// Arena's backing slice and invalidate any *Descriptor held across that
// call — so this function never holds one while parsing.
func (c *Compiler) recordFields(id types.ID) {
	var fields []types.Field
	byName := map[string]int{}
	offset := 0
	for c.at(token.IDENT) {
		var names []string
		for {
			name, ok := c.expectIdent()
			if !ok {
				break
			}
			names = append(names, name)
			if !c.accept(token.COMMA) {
				break
			}
		}
		c.expect(token.COLON)
		typ := c.parseTypeExpr()
		size := c.types.Get(typ).Size
		for _, n := range names {
			if _, dup := byName[n]; dup {
				c.errorf("duplicate field %q", n)
				continue
			}
			byName[n] = len(fields)
			fields = append(fields, types.Field{Name: n, Type: typ, Offset: offset})
			offset += size
		}
		if !c.accept(token.SEMI) {
			break
		}
	}
	d := c.types.Get(id)
	d.Fields = fields
	d.FieldsByName = byName
	d.Size = offset
}

// --- var ---

func (c *Compiler) varDecls() {
	c.expect(token.VAR)
	for c.at(token.IDENT) {
		var names []string
		for {
			name, ok := c.expectIdent()
			if !ok {
				break
			}
			names = append(names, name)
			if !c.accept(token.COMMA) {
				break
			}
		}
		c.expect(token.COLON)
		typ := c.parseTypeExpr()

		var init value
		hasInit := false
		if c.accept(token.EQ) {
			init = c.parseExpr()
			hasInit = true
		}
		c.expect(token.SEMI)

		for _, n := range names {
			c.declareVar(n, typ, init, hasInit)
		}
	}
}

// declareVar binds one variable, global or local depending on whether a
// subroutine body is currently being compiled. A global initializer must
// fold to a compile-time-constant scalar: its bytes are written straight
// into Chunk.Globals (no code runs to produce them — the VM's globals
// segment is simply loaded as-is), since string and record values need
// runtime machinery (SLIT, MEMCPY) that has nowhere to run before the
// top-level block's own ENTER exists. A local initializer always compiles
// to an ordinary store, run every time its declaring frame is entered.
func (c *Compiler) declareVar(name string, typ types.ID, init value, hasInit bool) {
	line := c.tok.Pos.Line
	global := c.sub == nil
	size := c.types.Get(typ).Size

	var binding symtab.Binding
	if global {
		off := c.chunk.WriteGlobal(size)
		binding = symtab.Binding{Kind: symtab.BindMemory, MemClass: symtab.MemGlobal, MemOffset: off}
		c.chunk.GlobalNames.Put(name, uint32(off))
	} else {
		off := c.em.GrowFrame(wordAlign(size))
		binding = symtab.Binding{Kind: symtab.BindMemory, MemClass: symtab.MemLocal, MemOffset: off}
	}
	c.defineSymbol(symtab.Symbol{Name: name, Line: line, Type: typ, Binding: binding})

	if !hasInit {
		return
	}
	if !global {
		dst := value{kind: vMemory, typ: typ, memClass: binding.MemClass, memOffset: binding.MemOffset}
		c.store(dst, init)
		return
	}
	k := c.types.Get(typ).Kind
	if init.kind != vLiteral || k == types.String || k == types.Record {
		c.errorf("%q's initializer is not a compile-time constant", name)
		return
	}
	b := encodeLiteralBytes(k, init.literal)
	copy(c.chunk.Globals[binding.MemOffset:], b)
}

func encodeLiteralBytes(k types.Kind, lit symtab.LiteralValue) []byte {
	switch k {
	case types.Bool:
		if lit.Bool {
			return []byte{1}
		}
		return []byte{0}
	case types.Char:
		return []byte{lit.Str[0]}
	case types.I8, types.U8:
		return []byte{byte(lit.Int)}
	case types.I16, types.U16:
		return leBytes(uint64(lit.Int), 2)
	case types.I32, types.U32:
		return leBytes(uint64(uint32(lit.Int)), 4)
	case types.I64, types.U64:
		return leBytes(uint64(lit.Int), 8)
	case types.F32:
		return leBytes(uint64(math.Float32bits(float32(lit.Float))), 4)
	case types.F64:
		return leBytes(math.Float64bits(lit.Float), 8)
	}
	return nil
}

func leBytes(v uint64, n int) []byte {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func wordAlign(n int) int {
	if r := n % types.WordSize; r != 0 {
		n += types.WordSize - r
	}
	return n
}

// defineSymbol binds sym in the current scope, surfacing a redefinition or
// predeclared-shadow conflict as a compiler diagnostic.
func (c *Compiler) defineSymbol(sym symtab.Symbol) {
	if err := c.sym.Define(sym); err != nil {
		c.errorf("%s", err)
	}
}

// --- procedure / function ---

// parseParamList parses a parenthesized formal-parameter list, or none at
// all if no `(` follows (a parameterless procedure/function).
func (c *Compiler) parseParamList() []types.Param {
	var params []types.Param
	if !c.accept(token.LPAREN) {
		return params
	}
	if !c.at(token.RPAREN) {
		for {
			byRef := c.accept(token.VAR) || c.accept(token.CONST)
			var names []string
			for {
				name, ok := c.expectIdent()
				if !ok {
					break
				}
				names = append(names, name)
				if !c.accept(token.COMMA) {
					break
				}
			}
			c.expect(token.COLON)
			typ := c.parseTypeExpr()
			for _, n := range names {
				params = append(params, types.Param{Name: n, Type: typ, ByRef: byRef})
			}
			if !c.accept(token.SEMI) {
				break
			}
		}
	}
	c.expect(token.RPAREN)
	return params
}

// subroutineDecl compiles one `procedure`/`function` declaration: its
// signature (recorded as a Subroutine descriptor so `^procedure(...)`
// values and recursive/forward calls can reference it structurally), and,
// unless it is a `forward;` stub, its body.
//
// Forward declarations are resolved by name at global scope only: a nested
// procedure's own forward declaration (rare, and unsupported here) would
// need scope-aware matching this compiler does not attempt — see
// DESIGN.md.
func (c *Compiler) subroutineDecl(isFunction bool) {
	line := c.tok.Pos.Line
	name, ok := c.expectIdent()
	if !ok {
		c.synchronize()
		return
	}

	params := c.parseParamList()

	var returnType types.ID
	hasReturn := false
	if isFunction {
		c.expect(token.COLON)
		returnType = c.parseTypeExpr()
		hasReturn = true
	}
	c.expect(token.SEMI)

	returnsRecord := hasReturn && c.types.Get(returnType).Kind == types.Record

	subType := c.types.NewSubroutine()
	_, stackWords := layoutParams(c.types, params, returnsRecord)
	d := c.types.Get(subType)
	d.Params = params
	d.HasReturn = hasReturn
	d.Return = returnType
	d.StackArgSize = stackWords * types.WordSize
	if returnsRecord {
		d.HiddenParams = 1
	}

	isForward := c.accept(token.FORWARD)
	if isForward {
		c.expect(token.SEMI)
	}

	existing, hasExisting := c.sym.Global().Find(name)
	reuse := hasExisting && existing.Binding.Kind == symtab.BindSubroutine && !existing.Binding.Subroutine.Defined
	var subID int32
	if reuse {
		if !c.types.Equal(existing.Type, subType) {
			c.errorf("%q's definition does not match its earlier forward declaration", name)
		}
		subID = existing.Binding.Subroutine.ID
	} else {
		subID = c.nextSubID
		c.nextSubID++
	}

	if isForward {
		if reuse {
			c.errorf("%q is already forward-declared", name)
			return
		}
		c.defineSymbol(symtab.Symbol{
			Name: name, Line: line, Type: subType,
			Binding: symtab.Binding{Kind: symtab.BindSubroutine, Subroutine: symtab.SubroutineInfo{ID: subID, Type: subType}},
		})
		return
	}

	entryOffset := c.chunk.Here()
	sym := symtab.Symbol{
		Name: name, Line: line, Type: subType,
		Binding: symtab.Binding{Kind: symtab.BindSubroutine, Subroutine: symtab.SubroutineInfo{
			ID: subID, Type: subType, Defined: true, EntryOffset: int32(entryOffset),
		}},
	}
	if reuse {
		c.sym.Global().Set(sym)
	} else {
		c.defineSymbol(sym)
	}
	c.fwd.define(subID, entryOffset)

	c.compileSubroutineBody(name, params, returnType, hasReturn, returnsRecord)
	c.expect(token.SEMI)
}

// compileSubroutineBody emits ENTER, the parameter-binding prologue (per
// spec.md §4.4.4's calling convention: register-passed parameters are
// copied into their own local slot so the body can treat every parameter
// uniformly as ordinary addressable storage; stack-passed parameters are
// already sitting at their final [FP+offset] thanks to the caller's
// convention of writing them before its CALL), the body's own
// declarations and statements, the `exit`/fall-through epilogue, and EXIT.
func (c *Compiler) compileSubroutineBody(name string, params []types.Param, returnType types.ID, hasReturn, returnsRecord bool) {
	enterPC := c.em.EmitEnter()

	outerSub, outerLoops := c.sub, c.loops
	c.loops = nil
	c.sub = &subroutineCtx{name: name, returnType: returnType, hasReturn: hasReturn}

	c.sym.Push()
	c.em.ResetFrame()
	c.em.ResetArgArea()

	slots, stackWords := layoutParams(c.types, params, returnsRecord)
	// Consume the stack-argument prefix: [FP+0, FP+stackWords*WordSize) is
	// where the caller's own stack-passed arguments already sit, since FP is
	// set to the pre-call SP by ENTER before SP grows. Every subsequent
	// GrowFrame call below must return offsets past this prefix.
	c.em.GrowFrame(stackWords * types.WordSize)

	if returnsRecord {
		off := c.em.GrowFrame(types.WordSize)
		b := symtab.Binding{Kind: symtab.BindMemory, MemClass: symtab.MemLocal, MemOffset: off}
		c.sub.hiddenRet = &b
		c.em.EmitLoadStore(true, emitter.HiddenReturnArgSlot, emitter.RegFP, int32(off), emitter.W64, false)
	}

	if hasReturn {
		off := c.em.GrowFrame(wordAlign(c.types.Get(returnType).Size))
		b := symtab.Binding{Kind: symtab.BindMemory, MemClass: symtab.MemLocal, MemOffset: off}
		c.sub.resultSlot = &b
	}

	for i, p := range params {
		slot := slots[i]
		var binding symtab.Binding
		if slot.reg >= 0 {
			off := c.em.GrowFrame(wordAlign(c.types.Get(p.Type).Size))
			binding = symtab.Binding{Kind: symtab.BindMemory, MemClass: symtab.MemLocal, MemOffset: off}
			c.em.EmitLoadStore(true, slot.reg, emitter.RegFP, int32(off), emitter.W64, false)
		} else {
			binding = symtab.Binding{Kind: symtab.BindMemory, MemClass: symtab.MemArg, MemOffset: slot.stackOffset}
		}
		c.defineSymbol(symtab.Symbol{Name: p.Name, Line: 0, Type: p.Type, Binding: binding})
	}

	c.declarations()
	c.compoundStatement()

	for _, p := range c.sub.exitPatches {
		c.em.Patch(p, c.chunk.Here(), emitter.PatchBRFamily)
	}
	c.emitEpilogue()

	c.em.PatchEnter(enterPC, uint32(c.em.FrameSize()))

	c.sym.Pop()
	c.sub, c.loops = outerSub, outerLoops
}

// emitEpilogue writes the function result (if any) into its fixed return
// location and emits EXIT. Every `exit` statement, and the body's own
// fall-through, lands here via c.sub.exitPatches.
func (c *Compiler) emitEpilogue() {
	if c.sub.hasReturn {
		if c.types.Get(c.sub.returnType).Kind == types.Record {
			base, disp := c.memBaseAndDisp(c.sub.hiddenRet.MemClass, c.sub.hiddenRet.MemOffset)
			ptrReg := c.em.AllocGPR()
			c.em.EmitLoadStore(false, ptrReg, base, disp, emitter.W64, false)
			dst := value{kind: vMemory, typ: c.sub.returnType, hasBaseReg: true, baseReg: ptrReg, memOffset: 0}
			src := value{kind: vMemory, typ: c.sub.returnType, memClass: c.sub.resultSlot.MemClass, memOffset: c.sub.resultSlot.MemOffset}
			c.store(dst, src)
		} else {
			src := value{kind: vMemory, typ: c.sub.returnType, memClass: c.sub.resultSlot.MemClass, memOffset: c.sub.resultSlot.MemOffset}
			rv := c.load(src)
			if rv.float {
				if rv.reg != emitter.ReturnFPR {
					c.em.EmitRR(emitter.MOVF64, emitter.ReturnFPR, rv.reg)
				}
			} else if rv.reg != emitter.ReturnGPR {
				c.em.EmitRR(emitter.MOV64, emitter.ReturnGPR, rv.reg)
			}
			c.dropValue(rv)
		}
	}
	c.em.EmitExit()
}
