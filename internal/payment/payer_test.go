package payment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmersupply/internal/apperr"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User @Example.COM \t"))

	once := NormalizeEmail(" A.B+C@Sub.Example.co ")
	assert.Equal(t, once, NormalizeEmail(once))
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user.name+tag@sub.example.co",
		"a@b.io",
		"farmer_1@coop-market.et",
	}
	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
	}

	invalid := map[string]string{
		"a..b@x.com":  "consecutive dots",
		"@x.com":      "1 to 64",
		".a@x.com":    "start/end with a dot",
		"a.@x.com":    "start/end with a dot",
		"a@.com":      "domain",
		"a@x.com.":    "domain",
		"nodomain":    "exactly one @",
		"a@b@c.com":   "exactly one @",
		"a@localhost": "domain",
		"a@x.c":       "Please use a valid email",
		"a b@x.com":   "Please use a valid email",
	}
	for email, rule := range invalid {
		err := ValidateEmail(email)
		require.Error(t, err, email)
		assert.True(t, apperr.Is(err, apperr.InvalidInput), email)
		assert.Contains(t, apperr.MessageOf(err), rule, email)
	}

	long := strings.Repeat("a", 65) + "@x.com"
	assert.Contains(t, apperr.MessageOf(ValidateEmail(long)), "1 to 64")
}

func TestBuildDescription(t *testing.T) {
	assert.Equal(t, "Order Payment", BuildDescription(nil))
	assert.Equal(t, "Order Payment", BuildDescription([]string{" ", ""}))
	assert.Equal(t, "Order Teff Flour Honey", BuildDescription([]string{"Teff Flour", "Honey"}))
	assert.Equal(t, "Order Coffee Beans 1kg", BuildDescription([]string{"Coffee (Beans) 1kg!"}))

	long := BuildDescription([]string{strings.Repeat("x", 400)})
	assert.LessOrEqual(t, len(long), 255)
	assert.True(t, strings.HasPrefix(long, "Order xxx"))
	assert.Len(t, long, len("Order ")+200)
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Abebe Kebede Tesfaye")
	assert.Equal(t, "Abebe", first)
	assert.Equal(t, "Kebede Tesfaye", last)

	first, last = SplitName("  ")
	assert.Equal(t, "Customer", first)
	assert.Equal(t, "", last)

	first, last = SplitName("Almaz")
	assert.Equal(t, "Almaz", first)
	assert.Equal(t, "", last)

	first, _ = SplitName(strings.Repeat("n", 80))
	assert.Len(t, first, 50)
}
