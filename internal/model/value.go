package model

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
)

// ValueKind classifies a resolved value.
type ValueKind string

const (
	IntegerValue       ValueKind = "integer"
	RealValue          ValueKind = "real"
	BooleanValue       ValueKind = "boolean"
	NullValue          ValueKind = "null"
	StringValue        ValueKind = "string"
	BitsValue          ValueKind = "bits"
	HexValue           ValueKind = "hex"
	IdentifierValue    ValueKind = "identifier"
	OIDValue           ValueKind = "oid"
	SequenceValue      ValueKind = "sequence"
	ListValue          ValueKind = "list"
	ChoiceValue        ValueKind = "choice"
	MinValue           ValueKind = "MIN"
	MaxValue           ValueKind = "MAX"
	PlusInfinityValue  ValueKind = "PLUS-INFINITY"
	MinusInfinityValue ValueKind = "MINUS-INFINITY"
	NotANumberValue    ValueKind = "NOT-A-NUMBER"
)

// Value is a resolved value. Int is set for integers and for identifiers
// that name a number (named numbers, enumeration literals, named bits).
type Value struct {
	Kind   ValueKind
	Int    *big.Int     `json:",omitempty" yaml:",omitempty"`
	Real   float64      `json:",omitempty" yaml:",omitempty"`
	Bool   bool         `json:",omitempty" yaml:",omitempty"`
	Text   string       `json:",omitempty" yaml:",omitempty"`
	Arcs   []OIDArc     `json:",omitempty" yaml:",omitempty"`
	Fields []NamedValue `json:",omitempty" yaml:",omitempty"`
	Items  []*Value     `json:",omitempty" yaml:",omitempty"`
	Inner  *Value       `json:",omitempty" yaml:",omitempty"`
	Ref    string       `json:",omitempty" yaml:",omitempty"`
}

// OIDArc is one arc of an object identifier value.
type OIDArc struct {
	Name   string `json:",omitempty" yaml:",omitempty"`
	Number *big.Int
}

// NamedValue is one component of a SEQUENCE or SET value.
type NamedValue struct {
	Name  string
	Value *Value
}

// ValueDef is a value assignment.
type ValueDef struct {
	Module string
	Name   string
	Pos    diag.Pos
	Type   TypeID
	Value  *Value

	Syntax *cst.Value `json:"-" yaml:"-"`
}

// Int returns an integer value.
func Int(n int64) *Value { return &Value{Kind: IntegerValue, Int: big.NewInt(n)} }

// BigInt returns an integer value holding a copy of n.
func BigInt(n *big.Int) *Value { return &Value{Kind: IntegerValue, Int: new(big.Int).Set(n)} }

// IsInteger reports whether v carries an integer, including identifiers that
// name one.
func (v *Value) IsInteger() bool { return v != nil && v.Int != nil }

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case IntegerValue:
		return v.Int.String()
	case RealValue:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case BooleanValue:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case NullValue:
		return "NULL"
	case StringValue:
		return strconv.Quote(v.Text)
	case BitsValue:
		return "'" + v.Text + "'B"
	case HexValue:
		return "'" + v.Text + "'H"
	case IdentifierValue:
		return v.Text
	case OIDValue:
		parts := make([]string, len(v.Arcs))
		for i, a := range v.Arcs {
			switch {
			case a.Name != "" && a.Number != nil:
				parts[i] = fmt.Sprintf("%s(%s)", a.Name, a.Number)
			case a.Number != nil:
				parts[i] = a.Number.String()
			default:
				parts[i] = a.Name
			}
		}
		return "{ " + strings.Join(parts, " ") + " }"
	case SequenceValue:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = f.Name + " " + f.Value.String()
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case ListValue:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			parts[i] = it.String()
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case ChoiceValue:
		return v.Text + " : " + v.Inner.String()
	}
	return string(v.Kind)
}
