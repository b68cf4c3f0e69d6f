package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/ignite/crm-engine/internal/domain"
)

// Completer is the one model capability this package needs. *Bedrock
// satisfies it; tests substitute a canned function.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Assist exposes the model-backed features with deterministic fallbacks.
// A nil Completer means fallback-only operation.
type Assist struct {
	model Completer
}

// NewAssist wires the assist layer. model may be nil.
func NewAssist(model Completer) *Assist {
	return &Assist{model: model}
}

const rulesSystemPrompt = `You convert natural language audience descriptions into segmentation rules for a CRM.

Customer fields: firstName, lastName, email, phone, status (active|inactive|new), totalSpend (number), lastSeenAt (timestamp), createdAt (timestamp).
Operators: equals, not_equals, greater_than, less_than, contains, not_contains, starts_with, ends_with, is_before, is_after, is_between.

Respond with ONLY a JSON object of this shape, no prose:
{"logicalOperator":"AND","rules":[{"field":"totalSpend","operator":"greater_than","value":1000}]}

Nested groups are allowed: a rule entry may itself be {"logicalOperator":...,"rules":[...]}.
is_between takes a two-element array value. Dates are ISO 8601 strings.`

// RulesFromText turns a natural-language description into a validated rule
// tree. The second return reports whether the model produced the tree; false
// means the deterministic fallback was used.
func (a *Assist) RulesFromText(ctx context.Context, text string) (*domain.RuleGroup, bool) {
	if a.model != nil {
		raw, err := a.model.Complete(ctx, rulesSystemPrompt, text)
		if err == nil {
			if g, perr := parseRules(raw); perr == nil {
				return g, true
			} else {
				log.Printf("[AI] unusable rule response: %v", perr)
			}
		} else {
			log.Printf("[AI] rule generation failed: %v", err)
		}
	}
	return fallbackRules(), false
}

// parseRules extracts and validates a rule tree from model output, tolerating
// markdown fences around the JSON.
func parseRules(raw string) (*domain.RuleGroup, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var g domain.RuleGroup
	if err := json.Unmarshal([]byte(payload), &g); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if len(g.Rules) == 0 {
		return nil, fmt.Errorf("empty rule group")
	}
	return &g, nil
}

// extractJSON returns the outermost {...} span of s, or "".
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// fallbackRules is the safe default audience: active customers.
func fallbackRules() *domain.RuleGroup {
	return &domain.RuleGroup{
		LogicalOperator: domain.LogicalAnd,
		Rules: []domain.RuleNode{
			{Rule: &domain.Rule{Field: "status", Operator: domain.OpEquals, Value: "active"}},
		},
	}
}

const suggestionsSystemPrompt = `You write short marketing messages for a CRM campaign tool.
The placeholder {{customer.firstName}} is substituted per recipient.
Respond with ONLY a JSON array of exactly 3 message strings, no prose.`

// MessageSuggestions proposes campaign message variants for an objective.
func (a *Assist) MessageSuggestions(ctx context.Context, objective string) []string {
	if a.model != nil {
		raw, err := a.model.Complete(ctx, suggestionsSystemPrompt, objective)
		if err == nil {
			if msgs := parseSuggestions(raw); len(msgs) > 0 {
				return msgs
			}
		} else {
			log.Printf("[AI] suggestion generation failed: %v", err)
		}
	}
	return fallbackSuggestions(objective)
}

func parseSuggestions(raw string) []string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil
	}
	var msgs []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &msgs); err != nil {
		return nil
	}
	var out []string
	for _, m := range msgs {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}

func fallbackSuggestions(objective string) []string {
	theme := strings.TrimSpace(objective)
	if theme == "" {
		theme = "our latest offers"
	}
	return []string{
		fmt.Sprintf("Hi {{customer.firstName}}, don't miss out on %s!", theme),
		fmt.Sprintf("{{customer.firstName}}, we picked %s just for you.", theme),
		fmt.Sprintf("Hello {{customer.firstName}}! A special reward is waiting: %s.", theme),
	}
}

// CampaignSummary produces a human-readable delivery summary. The numbers
// are computed here; the model only rephrases them, so a fallback summary
// carries the same facts.
func (a *Assist) CampaignSummary(ctx context.Context, c *domain.Campaign) string {
	rate := 0.0
	if c.AudienceSize > 0 {
		rate = float64(c.SentCount) / float64(c.AudienceSize) * 100
	}
	facts := fmt.Sprintf(
		"Campaign %q reached %d customers: %d delivered, %d failed (%.1f%% delivery rate).",
		c.Name, c.AudienceSize, c.SentCount, c.FailedCount, rate,
	)

	if a.model != nil {
		raw, err := a.model.Complete(ctx,
			"Rewrite the given campaign statistics as a 2 sentence performance summary for a marketer. Keep every number accurate.",
			facts,
		)
		if err == nil && strings.TrimSpace(raw) != "" {
			return strings.TrimSpace(raw)
		}
		if err != nil {
			log.Printf("[AI] summary generation failed: %v", err)
		}
	}
	return facts
}
