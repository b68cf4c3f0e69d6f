package message

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/osteele/liquid"

	"github.com/ignite/crm-engine/internal/domain"
)

// Template renders Liquid message templates with a small set of CRM filters.
// Parsed templates are cached by source text. Safe for concurrent use.
type Template struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewTemplate creates a Liquid template renderer with the CRM filter set.
func NewTemplate() *Template {
	t := &Template{engine: liquid.NewEngine()}
	t.registerFilters()
	return t
}

func (t *Template) registerFilters() {
	// {{ customer.firstName | default: "there" }}
	t.engine.RegisterFilter("default", func(value any, fallback string) any {
		if value == nil {
			return fallback
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return fallback
		}
		return value
	})

	// {{ customer.totalSpend | currency }}
	t.engine.RegisterFilter("currency", func(value any) string {
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return v
			}
			f = parsed
		default:
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("₹%.2f", f)
	})

	// {{ customer.firstName | capitalize_name }}
	t.engine.RegisterFilter("capitalize_name", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	})
}

// IsRich reports whether source uses Liquid constructs beyond the plain
// {{customer.<field>}} placeholder dialect: tags or filters. Rich messages
// go through Render; everything else keeps Personalize's verbatim-token
// contract for unknown placeholders.
func IsRich(source string) bool {
	if strings.Contains(source, "{%") {
		return true
	}
	for _, seg := range strings.Split(source, "{{")[1:] {
		if end := strings.Index(seg, "}}"); end >= 0 && strings.Contains(seg[:end], "|") {
			return true
		}
	}
	return false
}

// Render evaluates a Liquid template with the customer bound as "customer".
// Unlike Personalize, missing variables render as empty strings; campaigns
// that need the verbatim-placeholder contract use the legacy dialect.
func (t *Template) Render(source string, c *domain.Customer) (string, error) {
	tpl, err := t.parse(source)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	out, err := tpl.RenderString(bindings(c))
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

func (t *Template) parse(source string) (*liquid.Template, error) {
	if cached, ok := t.cache.Load(source); ok {
		return cached.(*liquid.Template), nil
	}
	tpl, err := t.engine.ParseString(source)
	if err != nil {
		return nil, err
	}
	t.cache.Store(source, tpl)
	return tpl, nil
}

func bindings(c *domain.Customer) map[string]any {
	return map[string]any{
		"customer": map[string]any{
			"id":         c.ID,
			"firstName":  c.FirstName,
			"lastName":   c.LastName,
			"email":      c.Email,
			"phone":      c.Phone,
			"status":     string(c.Status),
			"totalSpend": c.TotalSpend,
			"lastSeenAt": c.LastSeenAt.Format(time.RFC3339),
		},
	}
}
