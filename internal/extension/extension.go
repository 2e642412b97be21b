// Package extension partitions component lists and enumerations into their
// root and extension additions and numbers ENUMERATED literals.
package extension

import (
	"fmt"

	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
)

// Resolve fills Extension on every extensible SEQUENCE, SET, CHOICE and
// ENUMERATED of p and writes the Number of every enumeration literal. In a
// module with EXTENSIBILITY IMPLIED every such type is extensible, with an
// empty extension when no marker is written.
func Resolve(p *model.Program) error {
	var errs diag.Collector
	implied := make(map[string]bool, len(p.Modules))
	for _, m := range p.Modules {
		implied[m.Name] = m.ExtensibilityImplied
	}
	for _, t := range p.Types {
		if t.Builtin || !t.Owns() {
			continue
		}
		if implied[t.Module] && !t.Extensible {
			t.Extensible = true
			t.ExtensionMarker = len(t.Components)
		}
		t.Extension = nil
		if t.Extensible {
			t.Extension = Partition(t)
		}
		if t.Kind != model.KindEnumerated {
			continue
		}
		nums, err := Numbers(t)
		if err != nil {
			errs.Add(err)
			continue
		}
		for i, c := range t.Components {
			c.Number = nums[i]
		}
	}
	return errs.Err()
}

// Partition splits the components of t. A bracketed group or a lone addition
// of a SEQUENCE, SET or CHOICE is one group; every addition to an
// enumeration is its own group.
func Partition(t *model.TypeDescriptor) *model.Extension {
	ext := &model.Extension{}
	last := -2
	for i, c := range t.Components {
		if !c.Extension {
			ext.RootCount++
			continue
		}
		if c.Group < 0 || c.Group != last {
			ext.Groups = append(ext.Groups, model.ExtensionGroup{Index: len(ext.Groups), Version: c.Version})
			last = c.Group
		}
		g := &ext.Groups[len(ext.Groups)-1]
		g.Components = append(g.Components, i)
	}
	return ext
}

// Numbers returns the value of each literal of the enumeration t, indexed
// like t.Components. Written root numbers are kept and the remaining root
// literals take the smallest unused non-negative values in order. Each
// addition must be greater than the addition before it; an unnumbered one
// takes the smallest value above that addition (or from zero for the first)
// that the root does not use.
func Numbers(t *model.TypeDescriptor) ([]int64, error) {
	fail := func(format string, args ...any) error {
		return &diag.EnumerationError{Module: t.Module, Type: t.Path, Reason: fmt.Sprintf(format, args...), Pos: t.Pos}
	}
	nums := make([]int64, len(t.Components))
	used := make(map[int64]string, len(t.Components))
	claim := func(i int, n int64) error {
		c := t.Components[i]
		if prev, ok := used[n]; ok {
			return fail("%q and %q have the same value %d", prev, c.Name, n)
		}
		used[n] = c.Name
		nums[i] = n
		return nil
	}

	for i, c := range t.Components {
		if c.Extension || !c.Numbered {
			continue
		}
		if err := claim(i, c.Number); err != nil {
			return nil, err
		}
	}
	var next int64
	for i, c := range t.Components {
		if c.Extension || c.Numbered {
			continue
		}
		for {
			if _, ok := used[next]; !ok {
				break
			}
			next++
		}
		if err := claim(i, next); err != nil {
			return nil, err
		}
	}

	lastAdd, added := int64(0), false
	for i, c := range t.Components {
		if !c.Extension {
			continue
		}
		n := c.Number
		switch {
		case !c.Numbered:
			n = 0
			if added {
				n = lastAdd + 1
			}
			for {
				if _, ok := used[n]; !ok {
					break
				}
				n++
			}
		case added && n <= lastAdd:
			return nil, fail("addition %q = %d is not greater than the previous addition %d", c.Name, n, lastAdd)
		}
		if err := claim(i, n); err != nil {
			return nil, err
		}
		lastAdd, added = n, true
	}
	return nums, nil
}
