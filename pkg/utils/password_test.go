package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	t.Run("hash then verify", func(t *testing.T) {
		d, err := h.Hash("pw123")
		require.NoError(t, err)
		assert.NotEqual(t, "pw123", d)
		assert.True(t, strings.HasPrefix(d, "$2a$"))
		assert.True(t, h.Verify("pw123", d))
		assert.False(t, h.Verify("pw124", d))
	})

	t.Run("salted", func(t *testing.T) {
		a, err := h.Hash("same")
		require.NoError(t, err)
		b, err := h.Hash("same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("malformed digest fails closed", func(t *testing.T) {
		assert.False(t, h.Verify("pw", ""))
		assert.False(t, h.Verify("pw", "not-a-bcrypt-hash"))
		assert.False(t, h.Verify("pw", "$2a$04$short"))
	})

	t.Run("rejects empty and oversized", func(t *testing.T) {
		_, err := h.Hash("")
		assert.ErrorIs(t, err, ErrEmptyPassword)
		_, err = h.Hash(strings.Repeat("x", 73))
		assert.ErrorIs(t, err, ErrPasswordTooLong)
	})
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).Cost)
	assert.Equal(t, 12, NewHasher(12).Cost)
}

func TestNeedsRehash(t *testing.T) {
	low := NewHasher(bcrypt.MinCost)
	d, err := low.Hash("pw")
	require.NoError(t, err)

	assert.False(t, low.NeedsRehash(d))
	assert.True(t, NewHasher(bcrypt.MinCost+1).NeedsRehash(d))
	assert.True(t, low.NeedsRehash("garbage"))
}

func TestRandomURLSafe(t *testing.T) {
	a, err := RandomURLSafe(32)
	require.NoError(t, err)
	b, err := RandomURLSafe(32)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, "=")
}
