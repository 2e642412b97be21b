package cst

import "github.com/phobologic/asn1ir/internal/diag"

// Class is the right-hand side of a class assignment: either a CLASS body or
// a reference to another class (e.g. "MY-ID ::= TYPE-IDENTIFIER").
type Class struct {
	Pos    diag.Pos
	Ref    *Reference
	Fields []*FieldSpec
	Syntax []SyntaxToken // nil when no WITH SYNTAX clause is written
}

// FieldSpec is one field of a CLASS body. Name includes the leading '&'.
// Type is nil for type fields; object and object-set fields appear as fields
// with a reference Type and are told apart during resolution.
type FieldSpec struct {
	Name     string
	Pos      diag.Pos
	Type     *Type
	Unique   bool
	Optional bool

	DefaultType  *Type
	DefaultValue *Value
	DefaultSet   *ElementSet
}

// IsTypeField reports whether the field name is an &Upper reference.
func (f *FieldSpec) IsTypeField() bool {
	return len(f.Name) > 1 && f.Name[1] >= 'A' && f.Name[1] <= 'Z'
}

// SyntaxKind classifies WITH SYNTAX tokens.
type SyntaxKind int

const (
	SyntaxLiteral SyntaxKind = iota
	SyntaxField
	SyntaxOptionalStart
	SyntaxOptionalEnd
)

// SyntaxToken is one element of a WITH SYNTAX specification.
type SyntaxToken struct {
	Kind SyntaxKind
	Text string
}
