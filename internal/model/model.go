// Package model defines the intermediate representation built by the
// compiler: an arena of type descriptors addressed by TypeID, together with
// the modules, values, classes, objects and object sets they refer to.
package model

import (
	"math/big"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
)

// TypeID is the index of a TypeDescriptor in Program.Types.
type TypeID int

// NoType marks an absent type handle.
const NoType TypeID = -1

// TagDefault is a module's tagging environment. An absent TAGS clause means
// explicit tagging.
type TagDefault string

const (
	ExplicitTags  TagDefault = "EXPLICIT"
	ImplicitTags  TagDefault = "IMPLICIT"
	AutomaticTags TagDefault = "AUTOMATIC"
)

// Module is one resolved module definition.
type Module struct {
	Name                 string
	File                 string
	Pos                  diag.Pos
	OID                  *Value `json:",omitempty" yaml:",omitempty"`
	TagDefault           TagDefault
	ExtensibilityImplied bool
	ExportsAll           bool
	Exports              []string `json:",omitempty" yaml:",omitempty"`
	Imports              []Import `json:",omitempty" yaml:",omitempty"`
	Assignments          []Assignment
}

// Import is one IMPORTS ... FROM clause.
type Import struct {
	Module  string
	Symbols []string
}

// AssignmentKind classifies a resolved assignment.
type AssignmentKind string

const (
	TypeAssignment      AssignmentKind = "type"
	ValueAssignment     AssignmentKind = "value"
	ClassAssignment     AssignmentKind = "class"
	ObjectAssignment    AssignmentKind = "object"
	ObjectSetAssignment AssignmentKind = "object set"
	GenericAssignment   AssignmentKind = "parameterized"
)

// Assignment records a module body entry in declaration order. Index points
// into the Program slice matching Kind; it is -1 for parameterized
// assignments, which only exist through their instantiations.
type Assignment struct {
	Kind  AssignmentKind
	Name  string
	Index int
}

// TypeDescriptor is one named or anonymous type.
type TypeDescriptor struct {
	ID      TypeID
	Module  string
	Name    string `json:",omitempty" yaml:",omitempty"`
	Path    string
	Pos     diag.Pos
	Kind    Kind
	Builtin bool `json:",omitempty" yaml:",omitempty"`

	Components  []*Component `json:",omitempty" yaml:",omitempty"`
	Element     TypeID
	ElementName string `json:",omitempty" yaml:",omitempty"`
	Base        TypeID

	NamedNumbers []NamedNumber `json:",omitempty" yaml:",omitempty"`

	SourceTag *Tag `json:",omitempty" yaml:",omitempty"`
	Tag       Tag

	Constraints []*Constraint `json:",omitempty" yaml:",omitempty"`
	Effective   *Effective    `json:",omitempty" yaml:",omitempty"`

	// ExtensionMarker is the number of components written before the first
	// "...", or -1 when the body has no marker.
	ExtensionMarker int
	Extensible      bool
	Extension       *Extension `json:",omitempty" yaml:",omitempty"`

	// Derivation lists this type followed by each base it is derived from,
	// ending at the type that carries the structure.
	Derivation []TypeID `json:",omitempty" yaml:",omitempty"`

	Class     string `json:",omitempty" yaml:",omitempty"` // open types and field types
	Field     string `json:",omitempty" yaml:",omitempty"`
	DefinedBy string `json:",omitempty" yaml:",omitempty"`

	Generic string   `json:",omitempty" yaml:",omitempty"`
	Actuals []string `json:",omitempty" yaml:",omitempty"`

	Syntax *cst.Type `json:"-" yaml:"-"`
}

// NamedNumber is a named INTEGER value or a named BIT STRING bit.
type NamedNumber struct {
	Name  string
	Value *big.Int
}

// Component is a SEQUENCE or SET component, a CHOICE alternative or an
// ENUMERATED literal. Group is -1 for root components.
type Component struct {
	Name     string
	Type     TypeID
	Pos      diag.Pos
	Optional bool   `json:",omitempty" yaml:",omitempty"`
	Default  *Value `json:",omitempty" yaml:",omitempty"`

	SourceTag *Tag `json:",omitempty" yaml:",omitempty"`
	Tag       Tag

	Extension bool `json:",omitempty" yaml:",omitempty"`
	Group     int
	Version   int `json:",omitempty" yaml:",omitempty"`

	FromComponentsOf bool `json:",omitempty" yaml:",omitempty"`
	FromDummy        bool `json:",omitempty" yaml:",omitempty"`

	// Number is the value of an ENUMERATED literal. Numbered is set when
	// the number was written.
	Number   int64
	Numbered bool `json:",omitempty" yaml:",omitempty"`

	// ComponentsOf is set on a placeholder that the resolver replaces with
	// the root components of the referenced type.
	ComponentsOf bool `json:"-" yaml:"-"`

	Syntax *cst.Component `json:"-" yaml:"-"`
}

// Extension is the resolved root / extension-addition partition.
type Extension struct {
	RootCount int
	Groups    []ExtensionGroup `json:",omitempty" yaml:",omitempty"`
}

// ExtensionGroup is one extension addition: a lone component or a bracketed
// group. Components index into the owning type's Components.
type ExtensionGroup struct {
	Index      int
	Version    int `json:",omitempty" yaml:",omitempty"`
	Components []int
}

// Size returns the number of components covered by the partition.
func (e *Extension) Size() int {
	n := e.RootCount
	for _, g := range e.Groups {
		n += len(g.Components)
	}
	return n
}

// Edge is one uses relation of the dependency graph.
type Edge struct {
	From                TypeID
	To                  TypeID
	Via                 string // component name, "element" or "base"
	Optional            bool   `json:",omitempty" yaml:",omitempty"`
	Collection          bool   `json:",omitempty" yaml:",omitempty"`
	Alternative         bool   `json:",omitempty" yaml:",omitempty"`
	IndirectionRequired bool   `json:",omitempty" yaml:",omitempty"`
}

// Program is the root of the IR.
type Program struct {
	Modules     []*Module
	Types       []*TypeDescriptor
	Values      []*ValueDef
	Classes     []*Class
	Objects     []*Object
	ObjectSets  []*ObjectSet
	ModuleOrder []string
	Order       []TypeID
	Edges       []Edge
}

// NewProgram returns a Program whose arena is seeded with the built-in
// types, so that BuiltinID handles are valid.
func NewProgram() *Program {
	p := &Program{}
	p.Types = append(p.Types, Builtins()...)
	return p
}

// Type returns the descriptor for id, or nil for NoType or an out-of-range
// handle.
func (p *Program) Type(id TypeID) *TypeDescriptor {
	if id < 0 || int(id) >= len(p.Types) {
		return nil
	}
	return p.Types[id]
}

// Add appends t to the arena, assigns its ID and returns it.
func (p *Program) Add(t *TypeDescriptor) TypeID {
	t.ID = TypeID(len(p.Types))
	p.Types = append(p.Types, t)
	return t.ID
}

// Module returns the module named name, or nil.
func (p *Program) Module(name string) *Module {
	for _, m := range p.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Lookup returns the named type assignment of module, or NoType.
func (p *Program) Lookup(module, name string) TypeID {
	m := p.Module(module)
	if m == nil {
		return NoType
	}
	for _, a := range m.Assignments {
		if a.Kind == TypeAssignment && a.Name == name {
			return TypeID(a.Index)
		}
	}
	return NoType
}

// Underlying follows Base links from id to the descriptor carrying the
// structure. Cycles through Base stop at the first repeated type.
func (p *Program) Underlying(id TypeID) *TypeDescriptor {
	seen := make(map[TypeID]bool)
	t := p.Type(id)
	for t != nil && t.Base != NoType && !seen[t.ID] {
		seen[t.ID] = true
		next := p.Type(t.Base)
		if next == nil {
			break
		}
		t = next
	}
	return t
}

// DisplayName returns the name used for t in diagnostics and dumps.
func (t *TypeDescriptor) DisplayName() string {
	if t.Module != "" && t.Path != "" {
		return t.Module + "." + t.Path
	}
	if t.Path != "" {
		return t.Path
	}
	return string(t.Kind)
}

// Owns reports whether t carries its own component list.
func (t *TypeDescriptor) Owns() bool {
	return t.Base == NoType && (t.Kind.IsStructured() || t.Kind == KindEnumerated)
}
