package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/crm-engine/internal/domain"
)

func sampleCustomer() *domain.Customer {
	return &domain.Customer{
		ID:         7,
		FirstName:  "Meera",
		LastName:   "Iyer",
		Email:      "meera@example.com",
		Status:     domain.CustomerActive,
		TotalSpend: 1250.5,
	}
}

func TestPersonalize(t *testing.T) {
	c := sampleCustomer()

	got := Personalize("Hi {{customer.firstName}} {{customer.lastName}}, welcome back!", c)
	assert.Equal(t, "Hi Meera Iyer, welcome back!", got)
}

func TestPersonalizeNumericField(t *testing.T) {
	got := Personalize("You have spent {{customer.totalSpend}} with us.", sampleCustomer())
	assert.Equal(t, "You have spent 1250.5 with us.", got)
}

func TestPersonalizeUnknownPlaceholderVerbatim(t *testing.T) {
	got := Personalize("Hi {{customer.firstName}}, your tier is {{customer.loyaltyTier}}.", sampleCustomer())
	assert.Equal(t, "Hi Meera, your tier is {{customer.loyaltyTier}}.", got)
}

func TestPersonalizeNoPlaceholders(t *testing.T) {
	const msg = "Flash sale this weekend only."
	assert.Equal(t, msg, Personalize(msg, sampleCustomer()))
}

func TestPlaceholders(t *testing.T) {
	fields := Placeholders("{{customer.firstName}} and {{customer.email}} and {{customer.firstName}} again")
	assert.Equal(t, []string{"firstName", "email"}, fields)
}

func TestIsRich(t *testing.T) {
	cases := []struct {
		source string
		want   bool
	}{
		{"Hi {{customer.firstName}}!", false},
		{"Flash sale this weekend only.", false},
		{"Hi {{ customer.firstName | default: \"there\" }}!", true},
		{"{% if customer.status == \"active\" %}Welcome back{% endif %}", true},
		{"a | b outside braces {{customer.firstName}}", false},
	}
	for _, tc := range cases {
		if got := IsRich(tc.source); got != tc.want {
			t.Errorf("IsRich(%q) = %v, want %v", tc.source, got, tc.want)
		}
	}
}

func TestTemplateRender(t *testing.T) {
	tpl := NewTemplate()

	out, err := tpl.Render("Hi {{ customer.firstName | default: \"there\" }}!", sampleCustomer())
	require.NoError(t, err)
	assert.Equal(t, "Hi Meera!", out)

	out, err = tpl.Render("Hi {{ customer.firstName | default: \"there\" }}!", &domain.Customer{})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", out)
}

func TestTemplateCurrencyFilter(t *testing.T) {
	tpl := NewTemplate()

	out, err := tpl.Render("Total: {{ customer.totalSpend | currency }}", sampleCustomer())
	require.NoError(t, err)
	assert.Equal(t, "Total: ₹1250.50", out)
}

func TestTemplateParseError(t *testing.T) {
	tpl := NewTemplate()

	_, err := tpl.Render("{% if %}", sampleCustomer())
	assert.Error(t, err)
}
