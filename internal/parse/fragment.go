package parse

import (
	"github.com/phobologic/asn1ir/internal/cst"
)

// Fragment parses productions out of a token span captured earlier, such as
// the body of a braced value that turned out to define an information object.
type Fragment struct {
	p *parser
}

// NewFragmentParser returns a parser over toks. end is reported as the
// position of the end of input.
func NewFragmentParser(toks []cst.Token, end cst.Token) *Fragment {
	buf := make([]cst.Token, len(toks), len(toks)+1)
	copy(buf, toks)
	end.Kind, end.Text = cst.TokEOF, ""
	buf = append(buf, end)
	return &Fragment{p: &parser{file: end.Pos.File, toks: buf}}
}

// Peek returns the current token without consuming it.
func (f *Fragment) Peek() cst.Token { return f.p.peek() }

// Next consumes and returns the current token.
func (f *Fragment) Next() cst.Token { return f.p.next() }

// AtEnd reports whether every token has been consumed.
func (f *Fragment) AtEnd() bool { return f.p.peek().Kind == cst.TokEOF }

// Mark returns the current position for use with Reset.
func (f *Fragment) Mark() int { return f.p.pos }

// Reset rewinds to a position returned by Mark.
func (f *Fragment) Reset(mark int) { f.p.pos = mark }

// Fail builds a ParseError at the current token.
func (f *Fragment) Fail(expected ...string) error { return f.p.fail(expected...) }

// StartsType reports whether the current token can begin a Type.
func (f *Fragment) StartsType() bool { return f.p.startsType(0) }

// Type parses a Type with its constraints.
func (f *Fragment) Type() (*cst.Type, error) { return f.p.typ() }

// Value parses a Value.
func (f *Fragment) Value() (*cst.Value, error) { return f.p.value() }

// ElementSet parses "{ ElementSetSpecs }".
func (f *Fragment) ElementSet() (*cst.ElementSet, error) { return f.p.bracedElementSet() }

// Setting parses the setting of one field in the default object syntax or
// after a WITH SYNTAX placeholder. Type fields take a Type; value set and
// object set fields take a braced set; value and object fields take a value.
func (f *Fragment) Setting(field string) (*cst.Actual, error) {
	pos := f.p.peek().Pos
	typeField := len(field) > 1 && field[1] >= 'A' && field[1] <= 'Z'
	switch {
	case typeField && f.p.is("{"):
		set, err := f.p.bracedElementSet()
		if err != nil {
			return nil, err
		}
		return &cst.Actual{Set: set, Pos: pos}, nil
	case typeField:
		t, err := f.p.typ()
		if err != nil {
			return nil, err
		}
		return &cst.Actual{Type: t, Pos: pos}, nil
	}
	v, err := f.p.value()
	if err != nil {
		return nil, err
	}
	return &cst.Actual{Value: v, Pos: pos}, nil
}
