package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/crm-engine/internal/domain"
)

type completeFunc func(ctx context.Context, system, prompt string) (string, error)

func (f completeFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

func TestRulesFromTextParsesFencedJSON(t *testing.T) {
	model := completeFunc(func(_ context.Context, _, _ string) (string, error) {
		return "Here you go:\n```json\n" +
			`{"logicalOperator":"OR","rules":[` +
			`{"field":"totalSpend","operator":"greater_than","value":10000},` +
			`{"logicalOperator":"AND","rules":[{"field":"status","operator":"equals","value":"inactive"}]}]}` +
			"\n```", nil
	})

	g, fromModel := NewAssist(model).RulesFromText(context.Background(), "big spenders or inactive")
	require.True(t, fromModel)
	require.NoError(t, g.Validate())
	assert.Equal(t, domain.LogicalOr, g.LogicalOperator)
	require.Len(t, g.Rules, 2)
	assert.NotNil(t, g.Rules[0].Rule)
	assert.NotNil(t, g.Rules[1].Group)
}

func TestRulesFromTextFallsBack(t *testing.T) {
	cases := map[string]Completer{
		"no model":     nil,
		"model error":  completeFunc(func(context.Context, string, string) (string, error) { return "", errors.New("throttled") }),
		"prose answer": completeFunc(func(context.Context, string, string) (string, error) { return "I cannot help with that.", nil }),
		"bad operator": completeFunc(func(context.Context, string, string) (string, error) {
			return `{"logicalOperator":"AND","rules":[{"field":"status","operator":"resembles","value":"active"}]}`, nil
		}),
		"empty group": completeFunc(func(context.Context, string, string) (string, error) {
			return `{"logicalOperator":"AND","rules":[]}`, nil
		}),
	}

	for name, model := range cases {
		t.Run(name, func(t *testing.T) {
			g, fromModel := NewAssist(model).RulesFromText(context.Background(), "whatever")
			assert.False(t, fromModel)
			require.Len(t, g.Rules, 1)
			r := g.Rules[0].Rule
			require.NotNil(t, r)
			assert.Equal(t, "status", r.Field)
			assert.Equal(t, domain.OpEquals, r.Operator)
			assert.Equal(t, "active", r.Value)
		})
	}
}

func TestMessageSuggestionsFallback(t *testing.T) {
	msgs := NewAssist(nil).MessageSuggestions(context.Background(), "10% off sneakers")
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Contains(t, m, "{{customer.firstName}}")
		assert.Contains(t, m, "10% off sneakers")
	}
}

func TestMessageSuggestionsFromModel(t *testing.T) {
	model := completeFunc(func(context.Context, string, string) (string, error) {
		return `["Hi {{customer.firstName}}!","Hello there","Come back soon"]`, nil
	})
	msgs := NewAssist(model).MessageSuggestions(context.Background(), "win back")
	require.Len(t, msgs, 3)
	assert.Equal(t, "Hi {{customer.firstName}}!", msgs[0])
}

func TestCampaignSummaryFallbackCarriesNumbers(t *testing.T) {
	c := &domain.Campaign{Name: "Diwali Sale", AudienceSize: 40, SentCount: 36, FailedCount: 4}
	got := NewAssist(nil).CampaignSummary(context.Background(), c)
	assert.True(t, strings.Contains(got, "40") && strings.Contains(got, "36") && strings.Contains(got, "4"))
	assert.Contains(t, got, "90.0%")
}
