// Package cst defines the concrete syntax tree produced by the parser. Nodes
// mirror the notation's productions; nothing here is resolved or checked
// beyond what the grammar itself guarantees.
package cst

import "github.com/phobologic/asn1ir/internal/diag"

// File is one parsed source text. A file may define several modules.
type File struct {
	Name    string
	Modules []*Module
}

// TagDefault is the tagging environment written in a module header.
type TagDefault int

const (
	TagDefaultUnspecified TagDefault = iota
	TagDefaultExplicit
	TagDefaultImplicit
	TagDefaultAutomatic
)

func (t TagDefault) String() string {
	switch t {
	case TagDefaultExplicit:
		return "EXPLICIT"
	case TagDefaultImplicit:
		return "IMPLICIT"
	case TagDefaultAutomatic:
		return "AUTOMATIC"
	}
	return "unspecified"
}

// Module is a ModuleDefinition.
type Module struct {
	Name                 string
	Pos                  diag.Pos
	OID                  *Value // definitive identification, nil if absent
	TagDefault           TagDefault
	ExtensibilityImplied bool
	Exports              *Exports // nil when no EXPORTS clause is written
	Imports              []*Import
	Assignments          []*Assignment
}

// Exports is an EXPORTS clause.
type Exports struct {
	All     bool
	Symbols []Symbol
}

// Symbol is one name in an EXPORTS or IMPORTS list. Parameterized is set
// for the "Name{}" form.
type Symbol struct {
	Name          string
	Parameterized bool
	Pos           diag.Pos
}

// Import is one SymbolsFromModule entry.
type Import struct {
	Module  string
	Pos     diag.Pos
	Symbols []Symbol
	OID     *Value // assigned identifier, braced form
	OIDRef  string // assigned identifier, defined value form
	With    string // SUCCESSORS or DESCENDANTS, if a WITH clause is written
}

// AssignmentKind classifies an assignment by its syntactic shape. Value and
// object assignments, and value set and object set assignments, share one
// shape each; the resolver tells them apart once governors are known.
type AssignmentKind int

const (
	AssignType AssignmentKind = iota
	AssignValue
	AssignValueSet
	AssignClass
)

func (k AssignmentKind) String() string {
	switch k {
	case AssignType:
		return "type"
	case AssignValue:
		return "value"
	case AssignValueSet:
		return "value set"
	case AssignClass:
		return "class"
	}
	return "unknown"
}

// Assignment is a top-level assignment in a module body.
type Assignment struct {
	Kind   AssignmentKind
	Name   string
	Pos    diag.Pos
	Params []*Parameter
	Type   *Type       // assigned type, or governor of a value / value set
	Value  *Value      // AssignValue
	Set    *ElementSet // AssignValueSet
	Class  *Class      // AssignClass
}

// Parameter is a formal parameter of a parameterized assignment.
type Parameter struct {
	Name     string
	Governor *Type // nil when no governor is written
	Pos      diag.Pos
}

// Reference is a (possibly qualified, possibly parameterized) reference to a
// named definition. Fields holds a trailing field path such as &Type in
// CLASS.&Type.
type Reference struct {
	Module  string
	Name    string
	Pos     diag.Pos
	Actuals []*Actual
	Fields  []string
}

// Actual is one actual parameter of a parameterized reference. Exactly one of
// the fields is set.
type Actual struct {
	Type  *Type
	Value *Value
	Set   *ElementSet
	Pos   diag.Pos
}
