package cst

import "github.com/phobologic/asn1ir/internal/diag"

// TypeForm is the syntactic form of a Type node.
type TypeForm int

const (
	// FormBuiltin covers every built-in type written as a keyword, with
	// Builtin holding the canonical spelling ("INTEGER", "OCTET STRING", ...).
	FormBuiltin TypeForm = iota
	FormEnumerated
	FormSequence
	FormSet
	FormChoice
	FormSequenceOf
	FormSetOf
	FormReference
	FormSelection
	FormTagged
	FormAny
)

// Type is a Type production. Constraints are the serially applied
// constraints written after the type (or between SEQUENCE and OF).
type Type struct {
	Form        TypeForm
	Pos         diag.Pos
	Constraints []*Constraint

	Builtin      string
	NamedNumbers []*NamedNumber // INTEGER and BIT STRING

	Components []*Component // SEQUENCE, SET, CHOICE
	Items      []*EnumItem  // ENUMERATED

	Element     *Type // SEQUENCE OF, SET OF
	ElementName string

	Ref *Reference // FormReference

	Selection string // FormSelection: the alternative name; Inner is the CHOICE
	Inner     *Type  // FormSelection, FormTagged

	Tag *TagSpec // FormTagged

	DefinedBy string // FormAny
}

// NamedNumber is "name(number)" in an INTEGER or BIT STRING list. Value is a
// signed number or a defined value.
type NamedNumber struct {
	Name  string
	Value *Value
	Pos   diag.Pos
}

// TagClass is the class written in a tag. Context is the default.
type TagClass int

const (
	TagContext TagClass = iota
	TagUniversal
	TagApplication
	TagPrivate
)

// TagMode is the IMPLICIT / EXPLICIT keyword following a tag, if any.
type TagMode int

const (
	TagModeDefault TagMode = iota
	TagModeImplicit
	TagModeExplicit
)

// TagSpec is a written tag such as [APPLICATION 3] IMPLICIT.
type TagSpec struct {
	Class  TagClass
	Number *Value
	Mode   TagMode
	Pos    diag.Pos
}

// ComponentKind distinguishes the entries of a component list.
type ComponentKind int

const (
	ComponentNamed ComponentKind = iota
	ComponentsOf
	ComponentMarker
	ComponentGroup
)

// Component is one entry of a SEQUENCE, SET or CHOICE body: a named
// component, a COMPONENTS OF clause, an extension marker or a bracketed
// extension addition group.
type Component struct {
	Kind     ComponentKind
	Name     string
	Pos      diag.Pos
	Type     *Type
	Optional bool
	Default  *Value

	Group        []*Component // ComponentGroup
	GroupVersion *Value       // ComponentGroup, "[[2: ...]]"

	Exception *Exception // ComponentMarker
}

// EnumItem is one entry of an ENUMERATED body. Marker is set for "...".
type EnumItem struct {
	Marker    bool
	Name      string
	Number    *Value
	Pos       diag.Pos
	Exception *Exception
}

// Exception is an exception marker "! ..." kept as its source text.
type Exception struct {
	Text string
	Pos  diag.Pos
}
