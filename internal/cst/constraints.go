package cst

import "github.com/phobologic/asn1ir/internal/diag"

// ConstraintForm classifies a parenthesized constraint.
type ConstraintForm int

const (
	ConstraintSubtype ConstraintForm = iota
	ConstraintTable
	ConstraintContents
	ConstraintUser
)

// Constraint is one "( ... )" constraint.
type Constraint struct {
	Form ConstraintForm
	Pos  diag.Pos

	Set *ElementSet // ConstraintSubtype

	ObjectSet *ElementSet // ConstraintTable
	AtNotes   []*AtNotation

	Containing *Type  // ConstraintContents
	EncodedBy  *Value // ConstraintContents

	UserText string // ConstraintUser, raw CONSTRAINED BY body

	Exception *Exception
}

// AtNotation is a component relation reference such as @.field or @a.b.
// Level counts the leading dots (0 for the outermost form).
type AtNotation struct {
	Level int
	Path  []string
	Pos   diag.Pos
}

// ElementSet is ElementSetSpecs: a root set, an optional extension marker
// and optional additional elements after it.
type ElementSet struct {
	Root       *SetExpr // nil for "{ ... }" with an empty root
	Extensible bool
	Additional *SetExpr
	Exception  *Exception
	Pos        diag.Pos
}

// SetOp is the operator of a SetExpr node.
type SetOp int

const (
	OpElement SetOp = iota
	OpUnion
	OpIntersection
	OpExcept
	OpAllExcept
)

// SetExpr is a node of an element set expression. Union and intersection
// nodes hold two or more operands; Except holds exactly two; AllExcept one.
type SetExpr struct {
	Op       SetOp
	Elem     *Element
	Operands []*SetExpr
	Pos      diag.Pos
}

// ElementForm classifies subtype elements.
type ElementForm int

const (
	ElemValue ElementForm = iota
	ElemRange
	ElemContained
	ElemSize
	ElemFrom
	ElemPattern
	ElemSettings
	ElemInnerSingle
	ElemInnerMultiple
	ElemNested
)

// Element is one SubtypeElements production (or a parenthesized nested set).
type Element struct {
	Form ElementForm
	Pos  diag.Pos

	Value *Value // ElemValue, ElemPattern

	Lower, Upper         *Value // ElemRange; MIN / MAX are ValueMin / ValueMax
	LowerOpen, UpperOpen bool

	Type     *Type // ElemContained
	Includes bool

	Constraint *Constraint // ElemSize, ElemFrom, ElemInnerSingle

	Settings string // ElemSettings

	Partial bool               // ElemInnerMultiple
	Named   []*NamedConstraint // ElemInnerMultiple

	Nested *SetExpr // ElemNested
}

// Presence is the presence constraint of a WITH COMPONENTS entry.
type Presence int

const (
	PresenceUnspecified Presence = iota
	PresencePresent
	PresenceAbsent
	PresenceOptional
)

// NamedConstraint is one entry of WITH COMPONENTS { ... }.
type NamedConstraint struct {
	Name       string
	Constraint *Constraint
	Presence   Presence
	Pos        diag.Pos
}
