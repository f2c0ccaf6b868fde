package token

// Value is the literal payload carried by a token. At most one field is
// meaningful, selected by the owning Token's kind: INT uses Int, FLOAT uses
// Float, CHAR uses Char, STRING and IDENT use Str.
type Value struct {
	Int   int64
	Float float64
	Char  byte
	Str   string
}
