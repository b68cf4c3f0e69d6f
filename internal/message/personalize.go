// Package message renders campaign message templates against customer
// records.
//
// Two template dialects are supported. The default is the legacy placeholder
// form {{customer.<field>}}, whose contract is that unknown placeholders are
// left verbatim in the output. Campaigns can opt into Liquid templates for
// richer formatting; see Template.
package message

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
)

var placeholderRe = regexp.MustCompile(`\{\{customer\.([^}]+)\}\}`)

// Personalize substitutes {{customer.<field>}} placeholders with the named
// attribute's string value. A placeholder naming an attribute the customer
// does not have stays in the message untouched, so a typo is visible in the
// delivered text rather than silently erased.
func Personalize(template string, c *domain.Customer) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		field := placeholderRe.FindStringSubmatch(match)[1]
		v, ok := c.Field(field)
		if !ok {
			return match
		}
		return stringValue(v)
	})
}

func stringValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Placeholders returns the distinct field names referenced by the template,
// in first-appearance order. Used by campaign validation to warn about
// unknown fields before sending.
func Placeholders(template string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
