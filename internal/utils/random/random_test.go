package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexLengthAndUniqueness(t *testing.T) {
	a, err := Hex(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)

	b, err := Hex(16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHexIsLowercaseHex(t *testing.T) {
	s, err := Hex(8)
	require.NoError(t, err)
	for _, r := range s {
		assert.Contains(t, "0123456789abcdef", string(r))
	}
}
