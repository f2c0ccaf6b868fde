package compiler

import (
	"github.com/pvmlang/pvm/lang/symtab"
	"github.com/pvmlang/pvm/lang/types"
)

// predeclareType binds name as a typename-only symbol at global scope,
// line 0 (spec.md §3: "Predefined identifiers live in global scope with
// line = 0").
func (c *Compiler) predeclareType(name string, id types.ID) {
	c.sym.Global().Set(symtab.Symbol{
		Name: name, Line: 0, Type: id,
		Binding: symtab.Binding{Kind: symtab.BindTypename},
	})
}

func (c *Compiler) predeclareBuiltinFunc(name string) {
	c.sym.Global().Set(symtab.Symbol{
		Name: name, Line: 0,
		Binding: symtab.Binding{Kind: symtab.BindBuiltin, Builtin: name},
	})
}

func (c *Compiler) predeclareLiteral(name string, typ types.ID, lit symtab.LiteralValue) {
	c.sym.Global().Set(symtab.Symbol{
		Name: name, Line: 0, Type: typ,
		Binding: symtab.Binding{Kind: symtab.BindLiteral, Literal: lit},
	})
}

// declareBuiltins populates the global scope with the dialect's predeclared
// type names, constants, and I/O procedures, grounded on the reference
// compiler's fixed builtin table (original_source/src/Global.c).
func declareBuiltins(c *Compiler) {
	c.predeclareType("shortint", types.IDI8)
	c.predeclareType("byte", types.IDU8)
	c.predeclareType("smallint", types.IDI16)
	c.predeclareType("word", types.IDU16)
	c.predeclareType("integer", types.IDI32)
	c.predeclareType("cardinal", types.IDU32)
	c.predeclareType("longword", types.IDU32)
	c.predeclareType("int64", types.IDI64)
	c.predeclareType("qword", types.IDU64)
	c.predeclareType("single", types.IDF32)
	c.predeclareType("double", types.IDF64)
	c.predeclareType("real", types.IDF64)
	c.predeclareType("boolean", types.IDBool)
	c.predeclareType("char", types.IDChar)
	c.predeclareType("string", types.IDString)

	c.predeclareLiteral("true", types.IDBool, symtab.LiteralValue{Bool: true})
	c.predeclareLiteral("false", types.IDBool, symtab.LiteralValue{Bool: false})

	nilPtr := c.types.NewPointer(types.NoPointee)
	c.predeclareLiteral("nil", nilPtr, symtab.LiteralValue{Int: 0})

	for _, name := range []string{"write", "writeln", "read", "readln", "sizeof"} {
		c.predeclareBuiltinFunc(name)
	}
}
