// Package constraint validates the constraint trees built by the resolver
// and folds each type's derivation chain into its effective constraint.
package constraint

import (
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
)

type resolver struct {
	p    *model.Program
	errs diag.Collector
	done map[model.TypeID]bool
	busy map[model.TypeID]bool
}

// Resolve fills Effective on every constrained type of p. A type is
// constrained when it or any type in its derivation chain carries a
// constraint. Unsatisfiable constraints produce empty sets; constraints that
// cannot apply to their type are reported as ConstraintError.
func Resolve(p *model.Program) error {
	r := &resolver{
		p:    p,
		done: make(map[model.TypeID]bool),
		busy: make(map[model.TypeID]bool),
	}
	for _, t := range p.Types {
		if !t.Builtin {
			r.effective(t.ID)
		}
	}
	return r.errs.Err()
}

// effective computes and stores the effective constraint of id, returning
// nil for unconstrained types.
func (r *resolver) effective(id model.TypeID) *model.Effective {
	t := r.p.Type(id)
	if t == nil || t.Builtin {
		return nil
	}
	if r.done[id] {
		return t.Effective
	}
	if r.busy[id] {
		return nil
	}
	r.busy[id] = true
	defer delete(r.busy, id)

	chain := t.Derivation
	if len(chain) == 0 {
		chain = []model.TypeID{id}
	}
	gov := r.p.Underlying(id)
	var (
		acc  dims
		eff  = &model.Effective{Containing: model.NoType}
		seen bool
	)
	// The structure-carrying end of the chain applies first.
	for i := len(chain) - 1; i >= 0; i-- {
		d := r.p.Type(chain[i])
		if d == nil {
			continue
		}
		for _, c := range d.Constraints {
			if !r.check(c, site{owner: d, gov: gov}) {
				continue
			}
			seen = true
			acc = acc.intersect(r.eval(c, gov, false))
			eff.Extensible = c.Extensible
			collect(eff, c)
		}
	}
	if !seen {
		t.Effective = nil
		r.done[id] = true
		return nil
	}
	eff.Value, eff.Size, eff.Alphabet = acc.value, acc.size, acc.alphabet
	if acc.restricted {
		eff.Permitted = append([]*model.Value{}, acc.permitted...)
	}
	switch gov.Kind {
	case model.KindInteger:
		eff.IntegerWidth = integerWidth(eff.Value, eff.Extensible)
	case model.KindReal:
		eff.RealWidth = r.realWidth(chain)
	}
	t.Effective = eff
	r.done[id] = true
	return eff
}

// collect copies the parts of c that are not value sets onto eff. Set
// operations are searched through, nested SIZE and FROM constraints are not.
func collect(eff *model.Effective, c *model.Constraint) {
	switch c.Kind {
	case model.Pattern:
		eff.Pattern = c.Text
	case model.Settings:
		eff.Settings = append(eff.Settings, c.Settings...)
	case model.Contents:
		if c.Type != model.NoType {
			eff.Containing = c.Type
		}
		if c.EncodedBy != nil {
			eff.EncodedBy = c.EncodedBy
		}
	case model.Table:
		eff.ObjectSet = c.ObjectSet
		eff.AtNotation = c.AtNotation
	case model.UserDefined:
		eff.User = append(eff.User, c.Text)
	}
	for _, op := range c.Operands {
		collect(eff, op)
	}
}
