package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleNodeDecodeVariants(t *testing.T) {
	raw := `{
		"logicalOperator": "AND",
		"rules": [
			{"field": "status", "operator": "equals", "value": "active"},
			{"logicalOperator": "OR", "rules": [
				{"field": "totalSpend", "operator": "greater_than", "value": 5000}
			]}
		]
	}`

	var g RuleGroup
	require.NoError(t, json.Unmarshal([]byte(raw), &g))
	require.Len(t, g.Rules, 2)

	assert.NotNil(t, g.Rules[0].Rule)
	assert.Nil(t, g.Rules[0].Group)
	assert.Equal(t, "status", g.Rules[0].Rule.Field)

	assert.Nil(t, g.Rules[1].Rule)
	require.NotNil(t, g.Rules[1].Group)
	assert.Equal(t, LogicalOr, g.Rules[1].Group.LogicalOperator)
}

// A leaf that happens to carry a "logicalOperator" key is classified as a
// group by the wire format. The tagged representation keeps that decision in
// one place instead of scattering structural checks through the evaluator.
func TestRuleNodeDiscriminatorKey(t *testing.T) {
	raw := `{"logicalOperator": "AND", "rules": [], "field": "status"}`
	var n RuleNode
	require.NoError(t, json.Unmarshal([]byte(raw), &n))
	assert.NotNil(t, n.Group)
	assert.Nil(t, n.Rule)
}

func TestRuleNodeRoundTrip(t *testing.T) {
	g := RuleGroup{
		LogicalOperator: LogicalAnd,
		Rules: []RuleNode{
			{Rule: &Rule{Field: "email", Operator: OpEndsWith, Value: ".com"}},
			{Group: &RuleGroup{LogicalOperator: LogicalOr, Rules: []RuleNode{
				{Rule: &Rule{Field: "totalSpend", Operator: OpLessThan, Value: float64(100)}},
			}}},
		},
	}

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var back RuleGroup
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, g, back)
}

func TestRuleGroupValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"logicalOperator":"AND","rules":[{"field":"status","operator":"equals","value":"active"}]}`, false},
		{"empty rules is valid", `{"logicalOperator":"OR","rules":[]}`, false},
		{"bad logical operator", `{"logicalOperator":"XOR","rules":[]}`, true},
		{"unknown operator", `{"logicalOperator":"AND","rules":[{"field":"status","operator":"matches","value":"a"}]}`, true},
		{"missing field", `{"logicalOperator":"AND","rules":[{"field":"","operator":"equals","value":"a"}]}`, true},
		{"nested invalid", `{"logicalOperator":"AND","rules":[{"logicalOperator":"NOR","rules":[]}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g RuleGroup
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &g))
			err := g.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCustomerField(t *testing.T) {
	c := Customer{FirstName: "Ravi", Status: CustomerNew, TotalSpend: 42}

	v, ok := c.Field("firstName")
	require.True(t, ok)
	assert.Equal(t, "Ravi", v)

	v, ok = c.Field("status")
	require.True(t, ok)
	assert.Equal(t, "new", v)

	_, ok = c.Field("favoriteColor")
	assert.False(t, ok)
}
