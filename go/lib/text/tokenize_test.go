package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Tokenise(t *testing.T) {
	for _, test := range []struct {
		name           string
		text           string
		expectedText   []string
		expectedOffset []int
		exactMatch     bool
	}{
		{
			name:           "given a sentence, it should split on whitespace",
			text:           "Paris is the capital of France",
			expectedText:   []string{"Paris", "is", "the", "capital", "of", "France"},
			expectedOffset: []int{0, 6, 9, 13, 21, 24},
		},
		{
			name:           "given the input string 'some-text', it should return 3 tokens",
			text:           "some-text",
			expectedText:   []string{"some", "-", "text"},
			expectedOffset: []int{0, 4, 5},
		},
		{
			name:           "given trailing punctuation, it should be a token of its own",
			text:           "Paris, France.",
			expectedText:   []string{"Paris", ",", "France", "."},
			expectedOffset: []int{0, 5, 7, 13},
		},
		{
			name:           "given the input string 'some-text-', it should return 1 token with exact match",
			text:           "some-text-",
			expectedText:   []string{"some-text-"},
			expectedOffset: []int{0},
			exactMatch:     true,
		},
		{
			name:           "given a multi-byte character, offsets are byte offsets",
			text:           "£ some -text",
			expectedText:   []string{"£", "some", "-text"},
			expectedOffset: []int{0, 3, 8},
			exactMatch:     true,
		},
		{
			name:           "given repeated whitespace, it should not produce empty tokens",
			text:           "  insulin \n\n dose ",
			expectedText:   []string{"insulin", "dose"},
			expectedOffset: []int{2, 13},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var actualText []string
			var actualOffset []int
			err := Tokenize(test.text, func(value string, offset int) error {
				actualText = append(actualText, value)
				actualOffset = append(actualOffset, offset)
				return nil
			}, test.exactMatch)

			require.NoError(t, err)
			assert.Equal(t, test.expectedText, actualText)
			assert.Equal(t, test.expectedOffset, actualOffset)
		})
	}
}

func TestTokenizeDocument(t *testing.T) {
	document, err := TokenizeDocument("doc-1", "project", "Paris is the capital of France")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", document.ID)
	assert.Equal(t, "project", document.ProjectID)
	assert.Len(t, document.Tokens, 6)
	for i, token := range document.Tokens {
		assert.Equal(t, i, token.Index)
	}
	assert.Equal(t, "France", document.Tokens[5].Value)

	_, err = NewOffsetIndex(document)
	assert.NoError(t, err)
}
