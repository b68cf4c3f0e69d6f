// Package segment implements the audience segmentation engine: a recursive
// rule-group evaluator over customer attributes.
//
// The same evaluator serves three callers with identical semantics: the
// interactive audience preview, the audience-size snapshot frozen at segment
// creation, and the live audience resolution at campaign send time.
package segment

import (
	"strconv"
	"strings"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
)

// Options configure evaluator contracts that are deliberate but easy to trip
// over. They exist so the behavior is a named setting rather than an
// accidental fallthrough.
type Options struct {
	// EmptyGroupMatchesAll makes a group with zero children match every
	// customer, for both AND and OR. A segment saved with no rules therefore
	// silently selects the whole customer base. Disabling it makes empty
	// groups match nobody.
	EmptyGroupMatchesAll bool
}

// DefaultOptions returns the evaluator contract the rest of the system
// assumes: empty groups match everyone.
func DefaultOptions() Options {
	return Options{EmptyGroupMatchesAll: true}
}

// Evaluator evaluates rule trees against customer records. It holds no
// mutable state and is safe for concurrent use.
type Evaluator struct {
	opts Options
}

// New creates an evaluator with the given options.
func New(opts Options) *Evaluator {
	return &Evaluator{opts: opts}
}

// Matches reports whether the customer satisfies the rule tree. It is total
// over valid trees and deterministic: no wall clock is consulted, so a fixed
// customer and tree always produce the same answer.
func (e *Evaluator) Matches(c *domain.Customer, g *domain.RuleGroup) bool {
	if len(g.Rules) == 0 {
		return e.opts.EmptyGroupMatchesAll
	}
	for _, n := range g.Rules {
		matched := e.matchNode(c, n)
		if g.LogicalOperator == domain.LogicalOr {
			if matched {
				return true
			}
		} else if !matched {
			return false
		}
	}
	return g.LogicalOperator != domain.LogicalOr
}

// Audience filters customers by the rule tree, preserving input order.
// Same rules and same customer slice always yield the same result set.
func (e *Evaluator) Audience(customers []domain.Customer, g *domain.RuleGroup) []domain.Customer {
	var out []domain.Customer
	for i := range customers {
		if e.Matches(&customers[i], g) {
			out = append(out, customers[i])
		}
	}
	return out
}

func (e *Evaluator) matchNode(c *domain.Customer, n domain.RuleNode) bool {
	if n.Group != nil {
		return e.Matches(c, n.Group)
	}
	if n.Rule != nil {
		return matchRule(c, n.Rule)
	}
	return false
}

// matchRule evaluates a single predicate. An attribute the customer does not
// have evaluates false regardless of operator (fail-closed).
func matchRule(c *domain.Customer, r *domain.Rule) bool {
	cv, ok := c.Field(r.Field)
	if !ok {
		return false
	}

	switch r.Operator {
	case domain.OpEquals:
		return strictEqual(cv, r.Value)
	case domain.OpNotEquals:
		return !strictEqual(cv, r.Value)
	case domain.OpGreaterThan:
		cmp, ok := orderedCompare(cv, r.Value)
		return ok && cmp > 0
	case domain.OpLessThan:
		cmp, ok := orderedCompare(cv, r.Value)
		return ok && cmp < 0
	case domain.OpContains:
		return strings.Contains(stringify(cv), stringify(r.Value))
	case domain.OpNotContains:
		return !strings.Contains(stringify(cv), stringify(r.Value))
	case domain.OpStartsWith:
		return strings.HasPrefix(stringify(cv), stringify(r.Value))
	case domain.OpEndsWith:
		return strings.HasSuffix(stringify(cv), stringify(r.Value))
	case domain.OpIsBefore:
		ct, ok1 := asTime(cv)
		rt, ok2 := asTime(r.Value)
		return ok1 && ok2 && ct.Before(rt)
	case domain.OpIsAfter:
		ct, ok1 := asTime(cv)
		rt, ok2 := asTime(r.Value)
		return ok1 && ok2 && ct.After(rt)
	case domain.OpIsBetween:
		return matchBetween(cv, r.Value)
	}
	return false
}

// matchBetween implements the strict exclusive range check: lower < v < upper.
// Anything other than an exactly-two-element pair is false.
func matchBetween(cv, value any) bool {
	pair, ok := value.([]any)
	if !ok || len(pair) != 2 {
		return false
	}
	lo, okLo := orderedCompare(cv, pair[0])
	hi, okHi := orderedCompare(cv, pair[1])
	return okLo && okHi && lo > 0 && hi < 0
}

// strictEqual is type-sensitive equality: numbers compare to numbers, strings
// to strings, booleans to booleans. There is no coercion between numeric and
// string representations, and timestamp attributes never equal a wire value.
func strictEqual(cv, rv any) bool {
	if cn, ok := asNumber(cv); ok {
		rn, ok := asNumber(rv)
		return ok && cn == rn
	}
	if cs, ok := cv.(string); ok {
		rs, ok := rv.(string)
		return ok && cs == rs
	}
	if cb, ok := cv.(bool); ok {
		rb, ok := rv.(bool)
		return ok && cb == rb
	}
	return false
}

// orderedCompare returns the ordering of cv relative to rv: numeric when both
// sides are numbers, chronological when the customer side is a timestamp and
// the rule side parses as one, otherwise a lexicographic comparison of the
// string forms. The fallback is arbitrary but deterministic.
func orderedCompare(cv, rv any) (int, bool) {
	if cn, ok := asNumber(cv); ok {
		if rn, ok := asNumber(rv); ok {
			switch {
			case cn < rn:
				return -1, true
			case cn > rn:
				return 1, true
			}
			return 0, true
		}
	}
	if ct, ok := cv.(time.Time); ok {
		if rt, ok := asTime(rv); ok {
			return ct.Compare(rt), true
		}
	}
	return strings.Compare(stringify(cv), stringify(rv)), true
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// asTime accepts native timestamps and the date string shapes the segment
// builder emits.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// stringify renders a value the way it appears on the wire: integral floats
// without a trailing ".0", timestamps in RFC 3339.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format(time.RFC3339)
	case nil:
		return ""
	}
	return ""
}
