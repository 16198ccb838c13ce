package blocklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocklist(t *testing.T) {
	var testBlocklist = &Blocklist{
		CaseSensitive: map[string]bool{
			"caseSensitive": true,
		},
		CaseInsensitive: map[string]bool{
			"caseinsensitive": true,
		},
	}

	assert.False(t, testBlocklist.Allowed("caseInsensitive"))
	assert.False(t, testBlocklist.Allowed("CASEINSENSITIVE"))

	assert.False(t, testBlocklist.Allowed("caseSensitive"))
	assert.True(t, testBlocklist.Allowed("CASESENSITIVE"))

	assert.True(t, testBlocklist.Allowed("non-blocklisted-term"))

	var none *Blocklist
	assert.True(t, none.Allowed("anything"))
}

func TestParse(t *testing.T) {
	blocklist, err := Parse([]byte(`
case_sensitive:
  - AND
case_insensitive:
  - "The  Protein"
`))
	require.NoError(t, err)

	assert.False(t, blocklist.Allowed("AND"))
	assert.True(t, blocklist.Allowed("and"))
	assert.False(t, blocklist.Allowed("the protein"))
	assert.False(t, blocklist.Allowed("THE PROTEIN"))

	_, err = Parse([]byte("case_sensitive: [unterminated"))
	assert.Error(t, err)
}
