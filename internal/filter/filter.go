// Package filter compiles semicolon-delimited predicate expressions
// into evaluators over enumerated file records. Each element names a
// two-letter attribute, an operator, and a value; a colour expression
// additionally attaches a colour specification per element. Expressions
// compile once and evaluate against many records, with each metadata
// collector running at most once per record.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mtrellis/conkit/internal/console"
	"github.com/mtrellis/conkit/internal/textbuf"
)

var (
	// ErrBadAttribute marks an element whose two-letter tag is not in
	// the attribute catalogue.
	ErrBadAttribute = errors.New("filter: unknown attribute")

	// ErrBadOperator marks an element whose operator is missing or not
	// supported by its attribute.
	ErrBadOperator = errors.New("filter: bad operator")

	// ErrBadValue marks an element whose value the attribute's parser
	// rejected.
	ErrBadValue = errors.New("filter: bad value")
)

// SyntaxError reports a compile failure together with the offending
// substring of the user's expression.
type SyntaxError struct {
	// Offending is the part of the expression that failed to parse.
	Offending string

	// Err is one of ErrBadAttribute, ErrBadOperator or ErrBadValue.
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Offending)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// operator pairs a token with its truth table. Ordered operators seed
// a three-entry table indexed by comparison outcome; bitwise operators
// carry the boolean expected from the bitwise comparator.
type operator struct {
	token   string
	bitwise bool
	wantSet bool
	truth   [3]bool
}

// operators is ordered longest token first so that ">=" is never read
// as ">" followed by a stray '='.
var operators = []operator{
	{token: ">=", truth: [3]bool{Less: false, Equal: true, Greater: true}},
	{token: "<=", truth: [3]bool{Less: true, Equal: true, Greater: false}},
	{token: "!=", truth: [3]bool{Less: true, Equal: false, Greater: true}},
	{token: "!&", bitwise: true, wantSet: false},
	{token: "=", truth: [3]bool{Less: false, Equal: true, Greater: false}},
	{token: ">", truth: [3]bool{Less: false, Equal: false, Greater: true}},
	{token: "<", truth: [3]bool{Less: true, Equal: false, Greater: false}},
	{token: "&", bitwise: true, wantSet: true},
}

// criterion is one compiled element. collect is nil when an earlier
// criterion already gathers the same metadata.
type criterion struct {
	attr    *Attribute
	collect func(*Record) error
	bitwise bool
	wantSet bool
	truth   [3]bool
	rhs     Value
	color   console.Color
}

// eval applies the criterion to rec. A failing collector rejects the
// record.
func (c *criterion) eval(rec *Record) bool {
	if c.collect != nil {
		if err := c.collect(rec); err != nil {
			return false
		}
	}
	if c.bitwise {
		return c.attr.CompareBits(rec, c.rhs) == c.wantSet
	}
	return c.truth[c.attr.Compare(rec, c.rhs)]
}

// Filter is a compiled predicate expression. Records must satisfy
// every criterion; an empty expression accepts everything.
type Filter struct {
	crits []criterion
}

// ColorFilter is a compiled colour-rule expression. Each matching
// rule's colour is combined into the result until a rule without the
// continue bit terminates evaluation.
type ColorFilter struct {
	crits []criterion
}

// Compile parses a predicate expression such as "fs>=1024;fe=.txt".
// Failures are reported as a *SyntaxError naming the offending
// substring.
func Compile(expr string) (*Filter, error) {
	crits, err := compile(expr, false)
	if err != nil {
		return nil, err
	}
	return &Filter{crits: crits}, nil
}

// CompileColor parses a colour-rule expression such as
// "fa&d,fg=blue;fe=.log,fg=yellow".
func CompileColor(expr string) (*ColorFilter, error) {
	crits, err := compile(expr, true)
	if err != nil {
		return nil, err
	}
	return &ColorFilter{crits: crits}, nil
}

func compile(expr string, withColor bool) ([]criterion, error) {
	elems := strings.Split(expr, ";")

	// First pass counts the non-empty elements so the criteria land in
	// one allocation.
	n := 0
	for _, e := range elems {
		if strings.TrimSpace(e) != "" {
			n++
		}
	}
	crits := make([]criterion, 0, n)
	for _, e := range elems {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		c, err := parseElement(e, withColor)
		if err != nil {
			return nil, err
		}
		crits = append(crits, c)
	}
	dedupeCollectors(crits)
	return crits, nil
}

func parseElement(elem string, withColor bool) (criterion, error) {
	pred := elem
	if withColor {
		var spec string
		if i := textbuf.NotSpan(elem, ","); i < len(elem) {
			pred, spec = elem[:i], elem[i+1:]
		}
		color, err := console.ParseColor(spec)
		if err != nil {
			return criterion{}, &SyntaxError{Offending: strings.TrimSpace(spec), Err: ErrBadValue}
		}
		c, err := parsePredicate(strings.TrimSpace(pred))
		if err != nil {
			return criterion{}, err
		}
		c.color = color
		return c, nil
	}
	return parsePredicate(strings.TrimSpace(pred))
}

// tagLetters spans the attribute tag at the front of a predicate.
const tagLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func parsePredicate(pred string) (criterion, error) {
	tagLen := textbuf.Span(pred, tagLetters)
	if tagLen == 0 {
		return criterion{}, &SyntaxError{Offending: pred, Err: ErrBadAttribute}
	}
	attr := Lookup(pred[:tagLen])
	if attr == nil {
		return criterion{}, &SyntaxError{Offending: pred[:tagLen], Err: ErrBadAttribute}
	}
	rest := strings.TrimSpace(pred[tagLen:])

	var op *operator
	for i := range operators {
		if strings.HasPrefix(rest, operators[i].token) {
			op = &operators[i]
			break
		}
	}
	if op == nil {
		return criterion{}, &SyntaxError{Offending: rest, Err: ErrBadOperator}
	}
	if op.bitwise && attr.CompareBits == nil || !op.bitwise && attr.Compare == nil {
		return criterion{}, &SyntaxError{Offending: pred, Err: ErrBadOperator}
	}

	rhs, err := attr.Parse(strings.TrimSpace(rest[len(op.token):]))
	if err != nil {
		return criterion{}, &SyntaxError{
			Offending: strings.TrimSpace(rest[len(op.token):]),
			Err:       fmt.Errorf("%w for %s: %v", ErrBadValue, attr.Name, err),
		}
	}
	return criterion{
		attr:    attr,
		collect: attr.Collect,
		bitwise: op.bitwise,
		wantSet: op.wantSet,
		truth:   op.truth,
		rhs:     rhs,
	}, nil
}

// dedupeCollectors clears the collector of any criterion whose
// metadata an earlier criterion already gathers. Collectors cache into
// the record's holder, so the earlier run serves both.
func dedupeCollectors(crits []criterion) {
	for i := range crits {
		for j := 0; j < i; j++ {
			if crits[j].attr.CollectKey == crits[i].attr.CollectKey {
				crits[i].collect = nil
				break
			}
		}
	}
}

// Len reports the number of compiled criteria.
func (f *Filter) Len() int { return len(f.crits) }

// Match evaluates the filter against rec. The record's metadata holder
// is reset first, so a shared record may be reused across calls.
func (f *Filter) Match(rec *Record) bool {
	rec.Reset()
	for i := range f.crits {
		if !f.crits[i].eval(rec) {
			return false
		}
	}
	return true
}

// Len reports the number of compiled colour rules.
func (f *ColorFilter) Len() int { return len(f.crits) }

// Apply evaluates the colour rules against rec and returns the
// resolved attribute. window supplies the colour that window-tracking
// halves resolve to, normally console.DefaultColor(). The boolean
// reports whether any rule matched; when false the caller keeps
// whatever colour it was already using.
func (f *ColorFilter) Apply(rec *Record, window console.Attr) (console.Attr, bool) {
	rec.Reset()
	acc := console.WindowDefault()
	matched := false
	for i := range f.crits {
		c := &f.crits[i]
		if !c.eval(rec) {
			continue
		}
		matched = true
		acc = acc.Combine(c.color)
		if acc.Ctrl&console.CtrlContinue == 0 {
			return acc.Resolve(window), true
		}
		acc.Ctrl &^= console.CtrlContinue
	}
	if acc.Ctrl&console.CtrlTerminateMask != 0 || acc.Attr != 0 {
		return acc.Resolve(window), matched
	}
	return window, matched
}

// Tags returns the catalogue's tags with display names, sorted by tag,
// for help output.
func Tags() []string {
	out := make([]string, 0, len(catalog))
	for tag, attr := range catalog {
		out = append(out, fmt.Sprintf("%s  %s", tag, attr.Name))
	}
	sort.Strings(out)
	return out
}
