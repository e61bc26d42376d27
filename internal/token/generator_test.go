package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	tok, err := gen.Generate()
	require.NoError(t, err)
	assert.Len(t, tok, Length)

	for _, r := range tok {
		isUpper := r >= 'A' && r <= 'Z'
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		assert.True(t, isUpper || isLower || isDigit, "unexpected character %q in token", r)
	}
}

func TestGenerateDoesNotRepeat(t *testing.T) {
	gen := NewGenerator()

	seen := make(map[string]struct{})
	for range 200 {
		tok, err := gen.Generate()
		require.NoError(t, err)

		_, dup := seen[tok]
		require.False(t, dup, "generated a duplicate token %q", tok)
		seen[tok] = struct{}{}
	}
}
