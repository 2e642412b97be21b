package model

import "fmt"

// TagClass is the class of a tag. ClassNone is the untagged class of a
// CHOICE or open type, whose outer tags are those of its alternatives.
type TagClass string

const (
	ClassUniversal   TagClass = "UNIVERSAL"
	ClassApplication TagClass = "APPLICATION"
	ClassContext     TagClass = "CONTEXT"
	ClassPrivate     TagClass = "PRIVATE"
	ClassNone        TagClass = "none"
)

// TagMode says whether a tag replaces or wraps the inner tag. Natural
// universal tags have no mode.
type TagMode string

const (
	Implicit TagMode = "IMPLICIT"
	Explicit TagMode = "EXPLICIT"
)

// Tag is a resolved or written tag. A written tag whose Mode is empty takes
// its mode from the tagging environment.
type Tag struct {
	Class  TagClass
	Number int64
	Mode   TagMode `json:",omitempty" yaml:",omitempty"`
}

// Untagged is the tag of an untagged CHOICE or open type.
var Untagged = Tag{Class: ClassNone}

// IsUntagged reports whether t is the untagged tag.
func (t Tag) IsUntagged() bool { return t.Class == ClassNone || t.Class == "" }

// Same reports whether t and o share class and number, ignoring mode.
func (t Tag) Same(o Tag) bool { return t.Class == o.Class && t.Number == o.Number }

func (t Tag) String() string {
	if t.IsUntagged() {
		return "untagged"
	}
	var s string
	if t.Class == ClassContext {
		s = fmt.Sprintf("[%d]", t.Number)
	} else {
		s = fmt.Sprintf("[%s %d]", t.Class, t.Number)
	}
	if t.Mode != "" {
		s += " " + string(t.Mode)
	}
	return s
}
