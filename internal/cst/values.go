package cst

import "github.com/phobologic/asn1ir/internal/diag"

// ValueForm is the syntactic form of a Value node.
type ValueForm int

const (
	ValueNumber ValueForm = iota
	ValueReal
	ValueBoolean
	ValueNull
	ValueCString
	ValueBString
	ValueHString
	ValueRef
	ValueNamedNumber // name(number) inside braces
	ValueChoice      // identifier : Value
	ValueBraced
	ValueMin
	ValueMax
	ValuePlusInfinity
	ValueMinusInfinity
	ValueNotANumber
)

// Value is a Value production. Braced values keep their raw tokens so that
// information object definitions can be re-read once the governing class is
// known; Groups holds the comma-separated, whitespace-separated atoms when
// the content parses as plain values, and Opaque is set when it does not.
type Value struct {
	Form ValueForm
	Pos  diag.Pos

	Text string // numbers, strings (unquoted), bstring/hstring digits
	Bool bool
	Ref  *Reference

	Name  string // ValueNamedNumber, ValueChoice
	Inner *Value // ValueNamedNumber, ValueChoice

	Groups [][]*Value
	Opaque bool
	Tokens []Token
}

// TokenKind classifies lexical tokens.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokTypeRef
	TokValueRef
	TokKeyword
	TokNumber
	TokReal
	TokCString
	TokBString
	TokHString
	TokTypeField  // &Upper
	TokValueField // &lower
	TokSymbol
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "end of input"
	case TokTypeRef:
		return "type reference"
	case TokValueRef:
		return "identifier"
	case TokKeyword:
		return "keyword"
	case TokNumber:
		return "number"
	case TokReal:
		return "real number"
	case TokCString:
		return "character string"
	case TokBString:
		return "binary string"
	case TokHString:
		return "hexadecimal string"
	case TokTypeField:
		return "type field reference"
	case TokValueField:
		return "value field reference"
	case TokSymbol:
		return "symbol"
	}
	return "token"
}

// Token is one lexical token. Text holds the literal source spelling, except
// for string literals where it holds the decoded contents.
type Token struct {
	Kind TokenKind
	Text string
	Pos  diag.Pos
}
