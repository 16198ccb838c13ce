package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "lower case",
			input: "Insulin",
			want:  "insulin",
		},
		{
			name:  "collapse whitespace",
			input: "  New \t York ",
			want:  "new york",
		},
		{
			name:  "normalize unicode characters",
			input: "x²",
			want:  "x2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestSameSurface(t *testing.T) {
	assert.True(t, SameSurface("INSULIN", "insulin"))
	assert.True(t, SameSurface("capital  of", "Capital of"))
	assert.False(t, SameSurface("insulin", "insulins"))
}
