package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmailAddress_NormalizesCase(t *testing.T) {
	a, err := NewEmailAddress("Alice@Example.COM")
	require.NoError(t, err)
	b, err := NewEmailAddress("  alice@example.com ")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "alice@example.com", a.String())
}

func TestNewEmailAddress_Rejects(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"no-at-sign",
		"missing@domain",
		"@example.com",
		"user@",
		strings.Repeat("a", 250) + "@x.com",
	}
	for _, raw := range cases {
		_, err := NewEmailAddress(raw)
		assert.Error(t, err, "input %q", raw)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, "input %q", raw)
	}
}

func TestNewDisplayName_Normalizes(t *testing.T) {
	n, err := NewDisplayName("  alice   van   der berg ")
	require.NoError(t, err)
	assert.Equal(t, "Alice Van Der Berg", n.String())
}

func TestNewDisplayName_Rejects(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"a",
		strings.Repeat("x", 101),
		"alice <script>",
		`bob "quoted"`,
		"eve & mallory",
	}
	for _, raw := range cases {
		_, err := NewDisplayName(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestNewAffiliationCode_Normalizes(t *testing.T) {
	c, err := NewAffiliationCode("  org-42_a ")
	require.NoError(t, err)
	assert.Equal(t, "ORG-42_A", c.String())
}

func TestNewAffiliationCode_Rejects(t *testing.T) {
	cases := []string{"", " ", "a", strings.Repeat("Z", 21), "bad code", "no.dots", "ütf8"}
	for _, raw := range cases {
		_, err := NewAffiliationCode(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestNewExternalID(t *testing.T) {
	id, err := NewExternalID(" provider|12345 ")
	require.NoError(t, err)
	assert.Equal(t, "provider|12345", id.String())

	_, err = NewExternalID("   ")
	assert.Error(t, err)
	_, err = NewExternalID(strings.Repeat("x", 256))
	assert.Error(t, err)
}
