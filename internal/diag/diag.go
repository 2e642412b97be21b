// Package diag defines the compiler's error taxonomy, source positions and
// the error list every pipeline stage accumulates into.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Pos is a location in a schema source file. Line and Column are 1-based;
// a zero Line means the position is unknown.
type Pos struct {
	File   string
	Line   int
	Column int
}

// IsValid reports whether the position carries a line number.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	switch {
	case p.File == "" && !p.IsValid():
		return "<unknown>"
	case !p.IsValid():
		return p.File
	case p.File == "":
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Collector accumulates independent errors of one pipeline stage.
// The zero value is ready to use.
type Collector struct {
	errs *multierror.Error
	seen map[string]bool
}

// Add records err. Nil errors are ignored, nested lists are flattened and an
// error of the same type and message as a recorded one is dropped.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	for _, e := range Errors(err) {
		key := fmt.Sprintf("%T\x00%s", e, e.Error())
		if c.seen[key] {
			continue
		}
		if c.seen == nil {
			c.seen = make(map[string]bool)
		}
		c.seen[key] = true
		c.errs = multierror.Append(c.errs, e)
	}
	if c.errs == nil {
		return
	}
	c.errs.ErrorFormat = formatList
}

// Len returns the number of recorded errors.
func (c *Collector) Len() int {
	if c.errs == nil {
		return 0
	}
	return len(c.errs.Errors)
}

// Err returns the accumulated errors as one error, or nil if none were added.
func (c *Collector) Err() error {
	return c.errs.ErrorOrNil()
}

// Errors flattens an error returned by a pipeline stage into its
// independent failures. A nil error yields nil.
func Errors(err error) []error {
	if err == nil {
		return nil
	}
	var me *multierror.Error
	if errors.As(err, &me) {
		return append([]error(nil), me.Errors...)
	}
	return []error{err}
}

func formatList(es []error) string {
	if len(es) == 1 {
		return es[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred:", len(es))
	for _, err := range es {
		b.WriteString("\n\t* ")
		b.WriteString(err.Error())
	}
	return b.String()
}
