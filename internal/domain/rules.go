package domain

import (
	"encoding/json"
	"fmt"
)

// RuleOperator is a comparison operator applied to a customer attribute.
type RuleOperator string

const (
	OpEquals      RuleOperator = "equals"
	OpNotEquals   RuleOperator = "not_equals"
	OpGreaterThan RuleOperator = "greater_than"
	OpLessThan    RuleOperator = "less_than"
	OpContains    RuleOperator = "contains"
	OpNotContains RuleOperator = "not_contains"
	OpStartsWith  RuleOperator = "starts_with"
	OpEndsWith    RuleOperator = "ends_with"
	OpIsBefore    RuleOperator = "is_before"
	OpIsAfter     RuleOperator = "is_after"
	OpIsBetween   RuleOperator = "is_between"
)

var ruleOperators = map[RuleOperator]bool{
	OpEquals: true, OpNotEquals: true,
	OpGreaterThan: true, OpLessThan: true,
	OpContains: true, OpNotContains: true,
	OpStartsWith: true, OpEndsWith: true,
	OpIsBefore: true, OpIsAfter: true, OpIsBetween: true,
}

// Valid reports whether the operator is one of the known rule operators.
func (op RuleOperator) Valid() bool { return ruleOperators[op] }

// LogicalOperator combines the children of a rule group.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Rule is a single field/operator/value predicate over a customer.
// Value is a string, number, boolean, or date string; is_between takes a
// two-element ordered pair.
type Rule struct {
	Field    string       `json:"field"`
	Operator RuleOperator `json:"operator"`
	Value    any          `json:"value"`
}

// RuleGroup is a boolean combination of rules and nested groups. The children
// are ordered; the tree is construction-only and therefore finite and acyclic.
type RuleGroup struct {
	LogicalOperator LogicalOperator `json:"logicalOperator"`
	Rules           []RuleNode      `json:"rules"`
}

// RuleNode is a tagged variant: exactly one of Rule or Group is set.
// The wire format discriminates by the presence of a "logicalOperator" key;
// decoding resolves that once so the rest of the code never re-inspects
// structure.
type RuleNode struct {
	Rule  *Rule
	Group *RuleGroup
}

// UnmarshalJSON decodes a child node, classifying it as a nested group when
// the object carries a "logicalOperator" key and as a leaf rule otherwise.
func (n *RuleNode) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["logicalOperator"]; ok {
		var g RuleGroup
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		n.Group = &g
		n.Rule = nil
		return nil
	}
	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	n.Rule = &r
	n.Group = nil
	return nil
}

// MarshalJSON encodes whichever variant is set.
func (n RuleNode) MarshalJSON() ([]byte, error) {
	switch {
	case n.Rule != nil && n.Group != nil:
		return nil, fmt.Errorf("rule node has both variants set")
	case n.Rule != nil:
		return json.Marshal(n.Rule)
	case n.Group != nil:
		return json.Marshal(n.Group)
	}
	return nil, fmt.Errorf("rule node has no variant set")
}

// Validate checks the rule tree for structural problems: unknown operators,
// empty field names, bad logical operators, or nodes with zero or two
// variants. An empty child list is structurally valid; its match-everyone
// semantics are a named evaluator contract, not a validation concern.
func (g *RuleGroup) Validate() error {
	if g.LogicalOperator != LogicalAnd && g.LogicalOperator != LogicalOr {
		return fmt.Errorf("invalid logical operator %q", g.LogicalOperator)
	}
	for i, n := range g.Rules {
		switch {
		case n.Rule != nil && n.Group != nil:
			return fmt.Errorf("rule %d: both rule and group set", i)
		case n.Rule != nil:
			if n.Rule.Field == "" {
				return fmt.Errorf("rule %d: field is required", i)
			}
			if !n.Rule.Operator.Valid() {
				return fmt.Errorf("rule %d: unknown operator %q", i, n.Rule.Operator)
			}
		case n.Group != nil:
			if err := n.Group.Validate(); err != nil {
				return fmt.Errorf("group %d: %w", i, err)
			}
		default:
			return fmt.Errorf("rule %d: empty node", i)
		}
	}
	return nil
}
