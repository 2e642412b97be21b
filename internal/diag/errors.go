package diag

import (
	"fmt"
	"strings"
)

// ParseError is a lexical or syntactic failure. Parsing stops at the first one.
type ParseError struct {
	File     string
	Line     int
	Column   int
	Expected []string
	Found    string
}

func (e *ParseError) Error() string {
	pos := Pos{File: e.File, Line: e.Line, Column: e.Column}
	if len(e.Expected) == 0 {
		return fmt.Sprintf("%s: unexpected %s", pos, e.Found)
	}
	return fmt.Sprintf("%s: expected %s, found %s", pos, strings.Join(e.Expected, " or "), e.Found)
}

// UnresolvedSymbol reports a reference that names nothing visible from Module.
type UnresolvedSymbol struct {
	Module     string
	Name       string
	Pos        Pos
	Suggestion string
}

func (e *UnresolvedSymbol) Error() string {
	msg := fmt.Sprintf("%s: module %s: unresolved symbol %q", e.Pos, e.Module, e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// AmbiguousSymbol reports a name imported from more than one module.
type AmbiguousSymbol struct {
	Module     string
	Name       string
	Pos        Pos
	Candidates []string
}

func (e *AmbiguousSymbol) Error() string {
	return fmt.Sprintf("%s: module %s: symbol %q is imported from %s",
		e.Pos, e.Module, e.Name, strings.Join(e.Candidates, " and "))
}

// NotExported reports an import of a symbol the source module does not export.
type NotExported struct {
	Module string
	Name   string
	From   string
	Pos    Pos
}

func (e *NotExported) Error() string {
	return fmt.Sprintf("%s: module %s imports %q from %s, which does not export it",
		e.Pos, e.Module, e.Name, e.From)
}

// DuplicateDefinition reports a name defined twice in one scope. Container is
// empty for module-level assignments and names the enclosing type otherwise.
type DuplicateDefinition struct {
	Module    string
	Container string
	Name      string
	Pos       Pos
	Previous  Pos
}

func (e *DuplicateDefinition) Error() string {
	where := "module " + e.Module
	if e.Container != "" {
		where = fmt.Sprintf("type %s.%s", e.Module, e.Container)
	}
	return fmt.Sprintf("%s: %s: %q already defined at %s", e.Pos, where, e.Name, e.Previous)
}

// ImportCycle reports a chain of imports that never reaches a defining module.
type ImportCycle struct {
	Name    string
	Modules []string
}

func (e *ImportCycle) Error() string {
	return fmt.Sprintf("import cycle for %q: %s", e.Name, strings.Join(e.Modules, " -> "))
}

// TagCollision reports two components of one structured type resolving to the
// same (class, number) tag.
type TagCollision struct {
	Module     string
	Type       string
	ComponentA string
	ComponentB string
	TagA       string
	TagB       string
	Pos        Pos
}

func (e *TagCollision) Error() string {
	return fmt.Sprintf("%s: type %s.%s: components %q (%s) and %q (%s) have the same tag",
		e.Pos, e.Module, e.Type, e.ComponentA, e.TagA, e.ComponentB, e.TagB)
}

// TagError reports an illegal tagging construct, such as IMPLICIT on an
// untagged CHOICE.
type TagError struct {
	Module    string
	Type      string
	Component string
	Reason    string
	Pos       Pos
}

func (e *TagError) Error() string {
	name := e.Type
	if e.Component != "" {
		name += "." + e.Component
	}
	return fmt.Sprintf("%s: type %s.%s: %s", e.Pos, e.Module, name, e.Reason)
}

// EnumerationError reports an invalid ENUMERATED numbering.
type EnumerationError struct {
	Module string
	Type   string
	Reason string
	Pos    Pos
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("%s: type %s.%s: %s", e.Pos, e.Module, e.Type, e.Reason)
}

// IllegalRecursion reports a cycle of type uses with no indirection point.
// Pos is the definition of the first type on the cycle.
type IllegalRecursion struct {
	Cycle []string
	Pos   Pos
}

func (e *IllegalRecursion) Error() string {
	msg := "illegal recursion: " + strings.Join(e.Cycle, " -> ")
	if !e.Pos.IsValid() {
		return msg
	}
	return e.Pos.String() + ": " + msg
}

// ConstraintError reports a constraint that cannot apply to its type, or a
// malformed combination of constraint kinds.
type ConstraintError struct {
	Module string
	Type   string
	Reason string
	Pos    Pos
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: type %s.%s: %s", e.Pos, e.Module, e.Type, e.Reason)
}

// ValueError reports a value that does not fit its governing type.
type ValueError struct {
	Module string
	Name   string
	Reason string
	Pos    Pos
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: module %s: value %s: %s", e.Pos, e.Module, e.Name, e.Reason)
}

// TypeError reports a reference used where its kind of definition does not
// fit, such as COMPONENTS OF a CHOICE or a class named as a type.
type TypeError struct {
	Module string
	Type   string
	Reason string
	Pos    Pos
}

func (e *TypeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: module %s: %s", e.Pos, e.Module, e.Reason)
	}
	return fmt.Sprintf("%s: type %s.%s: %s", e.Pos, e.Module, e.Type, e.Reason)
}
