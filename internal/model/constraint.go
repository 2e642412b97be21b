package model

import "github.com/phobologic/asn1ir/internal/diag"

// ConstraintKind classifies a constraint tree node.
type ConstraintKind string

const (
	SingleValue    ConstraintKind = "value"
	ValueRange     ConstraintKind = "range"
	SizeConstraint ConstraintKind = "size"
	Alphabet       ConstraintKind = "from"
	Contained      ConstraintKind = "contained"
	Pattern        ConstraintKind = "pattern"
	Settings       ConstraintKind = "settings"
	InnerType      ConstraintKind = "with component"
	InnerTypes     ConstraintKind = "with components"
	Contents       ConstraintKind = "contents"
	Table          ConstraintKind = "table"
	UserDefined    ConstraintKind = "user"
	Union          ConstraintKind = "union"
	Intersection   ConstraintKind = "intersection"
	Except         ConstraintKind = "except"
	AllExcept      ConstraintKind = "all except"
)

// IsSetOperation reports whether k combines operand constraints.
func (k ConstraintKind) IsSetOperation() bool {
	return k == Union || k == Intersection || k == Except || k == AllExcept
}

// Constraint is one node of a constraint tree. The node produced for each
// written "( ... )" carries the extensibility of that constraint and its
// additional elements, if any.
type Constraint struct {
	Kind ConstraintKind
	Pos  diag.Pos

	Value *Value `json:",omitempty" yaml:",omitempty"`

	Lower     *Value `json:",omitempty" yaml:",omitempty"`
	Upper     *Value `json:",omitempty" yaml:",omitempty"`
	LowerOpen bool   `json:",omitempty" yaml:",omitempty"`
	UpperOpen bool   `json:",omitempty" yaml:",omitempty"`

	Inner *Constraint `json:",omitempty" yaml:",omitempty"`

	Type     TypeID
	Includes bool `json:",omitempty" yaml:",omitempty"`

	EncodedBy *Value `json:",omitempty" yaml:",omitempty"`

	Components []ComponentConstraint `json:",omitempty" yaml:",omitempty"`
	Partial    bool                  `json:",omitempty" yaml:",omitempty"`

	ObjectSet  string       `json:",omitempty" yaml:",omitempty"`
	AtNotation []AtNotation `json:",omitempty" yaml:",omitempty"`

	Text     string    `json:",omitempty" yaml:",omitempty"`
	Settings []Setting `json:",omitempty" yaml:",omitempty"`

	Operands []*Constraint `json:",omitempty" yaml:",omitempty"`

	Extensible bool        `json:",omitempty" yaml:",omitempty"`
	Additional *Constraint `json:",omitempty" yaml:",omitempty"`
	Exception  string      `json:",omitempty" yaml:",omitempty"`
}

// Presence is the presence constraint of a WITH COMPONENTS entry.
type Presence string

const (
	PresenceNone     Presence = ""
	PresencePresent  Presence = "PRESENT"
	PresenceAbsent   Presence = "ABSENT"
	PresenceOptional Presence = "OPTIONAL"
)

// ComponentConstraint is one entry of WITH COMPONENTS.
type ComponentConstraint struct {
	Name       string
	Constraint *Constraint `json:",omitempty" yaml:",omitempty"`
	Presence   Presence    `json:",omitempty" yaml:",omitempty"`
}

// AtNotation is a component relation reference. Level counts leading dots.
type AtNotation struct {
	Level int
	Path  []string
}

// Setting is one validated Property=Value pair of a SETTINGS constraint.
type Setting struct {
	Property string
	Value    string
}

// IntegerWidth is the narrowest machine integer able to hold every value of
// a constrained INTEGER.
type IntegerWidth string

const (
	Uint8            IntegerWidth = "uint8"
	Uint16           IntegerWidth = "uint16"
	Uint32           IntegerWidth = "uint32"
	Uint64           IntegerWidth = "uint64"
	Int8             IntegerWidth = "int8"
	Int16            IntegerWidth = "int16"
	Int32            IntegerWidth = "int32"
	Int64            IntegerWidth = "int64"
	UnboundedInteger IntegerWidth = "unbounded"
)

// RealWidth is the floating point width able to hold every value of a REAL
// constrained through its mantissa, base and exponent.
type RealWidth string

const (
	Float32       RealWidth = "float32"
	Float64       RealWidth = "float64"
	UnboundedReal RealWidth = "unbounded"
)

// Effective is the folded constraint of a type along its derivation chain.
// A nil dimension is unconstrained.
type Effective struct {
	Value    *IntervalSet `json:",omitempty" yaml:",omitempty"`
	Size     *IntervalSet `json:",omitempty" yaml:",omitempty"`
	Alphabet *IntervalSet `json:",omitempty" yaml:",omitempty"`

	// Permitted lists the single values allowed for types whose values are
	// not integers, or nil when unrestricted.
	Permitted []*Value `json:",omitempty" yaml:",omitempty"`

	Extensible bool `json:",omitempty" yaml:",omitempty"`

	IntegerWidth IntegerWidth `json:",omitempty" yaml:",omitempty"`
	RealWidth    RealWidth    `json:",omitempty" yaml:",omitempty"`

	Pattern    string       `json:",omitempty" yaml:",omitempty"`
	Settings   []Setting    `json:",omitempty" yaml:",omitempty"`
	Containing TypeID
	EncodedBy  *Value       `json:",omitempty" yaml:",omitempty"`
	ObjectSet  string       `json:",omitempty" yaml:",omitempty"`
	AtNotation []AtNotation `json:",omitempty" yaml:",omitempty"`
	User       []string     `json:",omitempty" yaml:",omitempty"`
}

// IsEmpty reports whether some dimension admits no value at all.
func (e *Effective) IsEmpty() bool {
	if e == nil {
		return false
	}
	for _, d := range []*IntervalSet{e.Value, e.Size, e.Alphabet} {
		if d != nil && d.IsEmpty() {
			return true
		}
	}
	return e.Permitted != nil && len(e.Permitted) == 0
}
