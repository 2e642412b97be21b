package constraint

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
)

// site is where a constraint applies: the type it was written on, the
// structure it constrains and whether its values are alphabet characters.
type site struct {
	owner    *model.TypeDescriptor
	gov      *model.TypeDescriptor
	alphabet bool
}

// check reports whether c can apply at s, recording a ConstraintError when it
// cannot.
func (r *resolver) check(c *model.Constraint, s site) bool {
	fail := func(format string, args ...any) bool {
		r.errs.Add(&diag.ConstraintError{Module: s.owner.Module, Type: s.owner.Path, Reason: fmt.Sprintf(format, args...), Pos: c.Pos})
		return false
	}
	k := s.gov.Kind
	integer := r.p.Types[model.BuiltinID(model.KindInteger)]
	switch c.Kind {
	case model.SingleValue:
		switch {
		case s.alphabet && c.Value.Kind != model.StringValue:
			return fail("permitted alphabet value %s is not a character string", c.Value)
		case !s.alphabet && k == model.KindInteger && !c.Value.IsInteger():
			return fail("value %s is not an integer", c.Value)
		}
	case model.ValueRange:
		switch {
		case s.alphabet:
			for _, v := range []*model.Value{c.Lower, c.Upper} {
				if _, ok := charBound(v, false, 0); !ok {
					return fail("alphabet range bound %s is not a single character", v)
				}
			}
		case k == model.KindInteger:
			for _, v := range []*model.Value{c.Lower, c.Upper} {
				if _, ok := intBound(v, false, 0); !ok {
					return fail("range bound %s is not an integer", v)
				}
			}
		case k == model.KindReal:
		default:
			return fail("value range on %s", k)
		}
	case model.SizeConstraint:
		if s.alphabet || !k.HasSize() {
			return fail("SIZE on %s", k)
		}
		if !r.check(c.Inner, site{owner: s.owner, gov: integer}) {
			return false
		}
	case model.Alphabet:
		if s.alphabet || !k.IsCharacterString() {
			return fail("FROM on %s", k)
		}
		if !r.check(c.Inner, site{owner: s.owner, gov: s.gov, alphabet: true}) {
			return false
		}
	case model.Contained:
		u := r.p.Underlying(c.Type)
		if u == nil {
			return false
		}
		if u.Kind != k && !(u.Kind.IsCharacterString() && k.IsCharacterString()) {
			return fail("%s is not a subtype of %s", u.DisplayName(), k)
		}
	case model.Pattern:
		if !k.IsCharacterString() {
			return fail("PATTERN on %s", k)
		}
	case model.Settings:
		if !k.IsTime() {
			return fail("SETTINGS on %s", k)
		}
		settings, err := parseSettings(c.Text)
		if err != nil {
			return fail("%v", err)
		}
		c.Settings = settings
	case model.InnerType:
		if !k.IsCollection() {
			return fail("WITH COMPONENT on %s", k)
		}
		elem := r.p.Underlying(s.gov.Element)
		if elem == nil || !r.check(c.Inner, site{owner: s.owner, gov: elem}) {
			return false
		}
	case model.InnerTypes:
		if !r.checkComponents(c, s) {
			return false
		}
	case model.Contents:
		if k != model.KindBitString && k != model.KindOctetString {
			return fail("CONTAINING on %s", k)
		}
	case model.Union, model.Intersection, model.Except, model.AllExcept:
		ok := true
		for _, op := range c.Operands {
			ok = r.check(op, s) && ok
		}
		if !ok {
			return false
		}
	}
	if c.Additional != nil {
		return r.check(c.Additional, s)
	}
	return true
}

func (r *resolver) checkComponents(c *model.Constraint, s site) bool {
	k := s.gov.Kind
	ok := true
	for _, cc := range c.Components {
		var ct *model.TypeDescriptor
		optional := true
		switch {
		case k == model.KindReal:
			ct = r.p.Types[model.BuiltinID(model.KindInteger)]
		case k.IsStructured():
			for _, comp := range s.gov.Components {
				if comp.Name == cc.Name {
					ct = r.p.Underlying(comp.Type)
					optional = k == model.KindChoice || comp.Optional || comp.Default != nil
				}
			}
		}
		if cc.Presence == model.PresenceAbsent && !optional {
			r.errs.Add(&diag.ConstraintError{
				Module: s.owner.Module,
				Type:   s.owner.Path,
				Reason: fmt.Sprintf("mandatory component %q cannot be ABSENT", cc.Name),
				Pos:    c.Pos,
			})
			ok = false
		}
		if cc.Constraint != nil && ct != nil && !r.check(cc.Constraint, site{owner: s.owner, gov: ct}) {
			ok = false
		}
	}
	return ok
}

// settingValues checks the value of each SETTINGS property.
var settingValues = map[string]func(string) bool{
	"Basic":         oneOf("Date", "Time", "Date-Time", "Interval", "Rec-Interval"),
	"Date":          oneOf("C", "Y", "YM", "YMD", "YD", "YW", "YWD"),
	"Year":          either(oneOf("Basic", "Proleptic", "Negative"), counted("L")),
	"Time":          either(oneOf("H", "HM", "HMS"), counted("HF"), counted("HMF"), counted("HMSF")),
	"Local-or-UTC":  oneOf("L", "Z", "LD"),
	"Interval-type": oneOf("SE", "D", "SD", "DE"),
	"SE-point":      oneOf("Date", "Time", "Date-Time"),
	"Recurrence":    either(oneOf("Unlimited"), counted("R")),
	"Midnight":      oneOf("Start", "End"),
}

func oneOf(values ...string) func(string) bool {
	return func(s string) bool {
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

func either(fs ...func(string) bool) func(string) bool {
	return func(s string) bool {
		for _, f := range fs {
			if f(s) {
				return true
			}
		}
		return false
	}
}

// counted accepts prefix followed by a decimal count.
func counted(prefix string) func(string) bool {
	return func(s string) bool {
		n, ok := strings.CutPrefix(s, prefix)
		if !ok || n == "" {
			return false
		}
		for _, c := range n {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	}
}

// parseSettings splits a SETTINGS string into validated Property=Value pairs.
func parseSettings(text string) ([]model.Setting, error) {
	var out []model.Setting
	for _, pair := range strings.Fields(text) {
		prop, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("setting %q is not Property=Value", pair)
		}
		valid, known := settingValues[prop]
		if !known {
			return nil, fmt.Errorf("unknown SETTINGS property %q", prop)
		}
		if !valid(value) {
			return nil, fmt.Errorf("invalid %s setting %q", prop, value)
		}
		out = append(out, model.Setting{Property: prop, Value: value})
	}
	return out, nil
}

type integerLimit struct {
	width  model.IntegerWidth
	lo, hi *big.Int
}

var integerLimits = []integerLimit{
	{model.Uint8, big.NewInt(0), big.NewInt(math.MaxUint8)},
	{model.Uint16, big.NewInt(0), big.NewInt(math.MaxUint16)},
	{model.Uint32, big.NewInt(0), big.NewInt(math.MaxUint32)},
	{model.Uint64, big.NewInt(0), new(big.Int).SetUint64(math.MaxUint64)},
	{model.Int8, big.NewInt(math.MinInt8), big.NewInt(math.MaxInt8)},
	{model.Int16, big.NewInt(math.MinInt16), big.NewInt(math.MaxInt16)},
	{model.Int32, big.NewInt(math.MinInt32), big.NewInt(math.MaxInt32)},
	{model.Int64, big.NewInt(math.MinInt64), big.NewInt(math.MaxInt64)},
}

// integerWidth is the narrowest machine integer holding every member of s.
// Extensible and unbounded constraints need arbitrary precision.
func integerWidth(s *model.IntervalSet, extensible bool) model.IntegerWidth {
	if s == nil || extensible {
		return model.UnboundedInteger
	}
	lo, lok := s.Min()
	hi, hok := s.Max()
	if !lok || !hok {
		return model.UnboundedInteger
	}
	for _, l := range integerLimits {
		if lo.Cmp(l.lo) >= 0 && hi.Cmp(l.hi) <= 0 {
			return l.width
		}
	}
	return model.UnboundedInteger
}

type realLimit struct {
	width              model.RealWidth
	mantissa, exponent model.IntervalSet
}

var realLimits = []realLimit{
	{model.Float32, model.Int64Range(-9999999, 9999999), model.Int64Range(-126, 127)},
	{model.Float64, model.Int64Range(-999999999999999, 999999999999999), model.Int64Range(-1022, 1023)},
}

// realWidth derives the floating point width from the last WITH COMPONENTS
// constraint on the mantissa, base and exponent of a REAL. Only base 2 maps
// to a machine width.
func (r *resolver) realWidth(chain []model.TypeID) model.RealWidth {
	var last *model.Constraint
	for i := len(chain) - 1; i >= 0; i-- {
		for _, c := range r.p.Types[chain[i]].Constraints {
			if c.Kind == model.InnerTypes {
				last = c
			}
		}
	}
	if last == nil {
		return model.UnboundedReal
	}
	integer := r.p.Types[model.BuiltinID(model.KindInteger)]
	parts := make(map[string]*model.IntervalSet)
	for _, cc := range last.Components {
		if cc.Constraint != nil {
			parts[cc.Name] = r.eval(cc.Constraint, integer, false).value
		}
	}
	mantissa, base, exponent := parts["mantissa"], parts["base"], parts["exponent"]
	if mantissa == nil || base == nil || exponent == nil || !base.Equal(model.PointSet(big.NewInt(2))) {
		return model.UnboundedReal
	}
	for _, l := range realLimits {
		if within(*mantissa, l.mantissa) && within(*exponent, l.exponent) {
			return l.width
		}
	}
	return model.UnboundedReal
}

// within reports whether the non-empty bounded set s lies inside the
// interval limit.
func within(s, limit model.IntervalSet) bool {
	lo, lok := s.Min()
	hi, hok := s.Max()
	return lok && hok && limit.Contains(lo) && limit.Contains(hi)
}
