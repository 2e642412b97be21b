package model

import (
	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
)

// FieldKind classifies a field of an information object class.
type FieldKind string

const (
	TypeField              FieldKind = "type"
	FixedTypeValueField    FieldKind = "fixed-type value"
	VariableTypeValueField FieldKind = "variable-type value"
	FixedTypeValueSetField FieldKind = "fixed-type value set"
	ObjectField            FieldKind = "object"
	ObjectSetField         FieldKind = "object set"
)

// Class is an information object class.
type Class struct {
	Module string
	Name   string
	Pos    diag.Pos
	Fields []*FieldSpec
	Syntax []cst.SyntaxToken `json:",omitempty" yaml:",omitempty"`
}

// FieldSpec is one field of a class. Type is the fixed type of value and
// value set fields; Class names the governing class of object and object
// set fields; TypeFrom names the type field of a variable-type value field.
type FieldSpec struct {
	Name         string
	Kind         FieldKind
	Type         TypeID
	Class        string `json:",omitempty" yaml:",omitempty"`
	TypeFrom     string `json:",omitempty" yaml:",omitempty"`
	Unique       bool   `json:",omitempty" yaml:",omitempty"`
	Optional     bool   `json:",omitempty" yaml:",omitempty"`
	DefaultType  TypeID
	DefaultValue *Value `json:",omitempty" yaml:",omitempty"`
	HasDefault   bool   `json:",omitempty" yaml:",omitempty"`
}

// Field returns the field called name, or nil.
func (c *Class) Field(name string) *FieldSpec {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Object is an information object: a set of field settings for a class.
type Object struct {
	Module   string
	Name     string `json:",omitempty" yaml:",omitempty"`
	Pos      diag.Pos
	Class    string
	Settings []*FieldSetting
}

// Setting returns the setting of field name, or nil.
func (o *Object) Setting(name string) *FieldSetting {
	for _, s := range o.Settings {
		if s.Field == name {
			return s
		}
	}
	return nil
}

// FieldSetting is the value given to one field of an object. Exactly one of
// Type, Value, Object and Objects is meaningful, as the field kind dictates.
type FieldSetting struct {
	Field   string
	Type    TypeID
	Value   *Value      `json:",omitempty" yaml:",omitempty"`
	Object  int         `json:",omitempty" yaml:",omitempty"`
	Objects []int       `json:",omitempty" yaml:",omitempty"`
	Values  *Constraint `json:",omitempty" yaml:",omitempty"`
}

// ObjectSet is a set of objects of one class. Objects index Program.Objects.
type ObjectSet struct {
	Module     string
	Name       string `json:",omitempty" yaml:",omitempty"`
	Pos        diag.Pos
	Class      string
	Objects    []int
	Extensible bool `json:",omitempty" yaml:",omitempty"`
}

// BuiltinClasses returns the predefined TYPE-IDENTIFIER and ABSTRACT-SYNTAX
// classes. Their value fields use the canonical built-in type handles.
func BuiltinClasses() []*Class {
	lit := func(s string) cst.SyntaxToken { return cst.SyntaxToken{Kind: cst.SyntaxLiteral, Text: s} }
	field := func(s string) cst.SyntaxToken { return cst.SyntaxToken{Kind: cst.SyntaxField, Text: s} }
	typeID := &Class{
		Name: "TYPE-IDENTIFIER",
		Fields: []*FieldSpec{
			{Name: "&id", Kind: FixedTypeValueField, Type: BuiltinID(KindObjectIdentifier), Unique: true},
			{Name: "&Type", Kind: TypeField, Type: NoType},
		},
		Syntax: []cst.SyntaxToken{field("&Type"), lit("IDENTIFIED"), lit("BY"), field("&id")},
	}
	abstract := &Class{
		Name: "ABSTRACT-SYNTAX",
		Fields: []*FieldSpec{
			{Name: "&id", Kind: FixedTypeValueField, Type: BuiltinID(KindObjectIdentifier), Unique: true},
			{Name: "&Type", Kind: TypeField, Type: NoType},
			{Name: "&property", Kind: FixedTypeValueField, Type: BuiltinID(KindBitString), Optional: true},
		},
		Syntax: []cst.SyntaxToken{
			field("&Type"), lit("IDENTIFIED"), lit("BY"), field("&id"),
			{Kind: cst.SyntaxOptionalStart}, lit("HAS"), lit("PROPERTY"), field("&property"), {Kind: cst.SyntaxOptionalEnd},
		},
	}
	return []*Class{typeID, abstract}
}
