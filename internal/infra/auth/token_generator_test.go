package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator_Generate(t *testing.T) {
	gen := NewTokenGenerator()

	first, err := gen.Generate()
	require.NoError(t, err)
	second, err := gen.Generate()
	require.NoError(t, err)

	raw, err := hex.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 40)
	assert.NotEqual(t, first, second)
}

func TestTokenGenerator_Hash(t *testing.T) {
	gen := NewTokenGenerator()

	assert.Equal(t, gen.Hash("abc"), gen.Hash("abc"))
	assert.NotEqual(t, gen.Hash("abc"), gen.Hash("abd"))
	assert.Len(t, gen.Hash("abc"), 64)
}
