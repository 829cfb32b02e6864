package credentials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewHasher(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost)
	assert.NoError(t, err)

	_, err = NewHasher(bcrypt.MinCost - 1)
	assert.Error(t, err)

	_, err = NewHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestHasher_HashAndCompare(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.ErrorIs(t, h.Compare(hash, "battery staple"), ErrMismatch)
	assert.Error(t, h.Compare("not-a-hash", "correct horse"))
}

func TestHasher_HashIsSalted(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	first, err := h.Hash("same")
	require.NoError(t, err)
	second, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHasher_NeedsRehash(t *testing.T) {
	low, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	high, err := NewHasher(bcrypt.MinCost + 1)
	require.NoError(t, err)

	hash, err := low.Hash("pw")
	require.NoError(t, err)

	assert.False(t, low.NeedsRehash(hash))
	assert.True(t, high.NeedsRehash(hash))
	assert.True(t, low.NeedsRehash("garbage"))
}

func TestGeneratePassword(t *testing.T) {
	for _, length := range []int{1, 10, 64} {
		pw, err := GeneratePassword(length)
		require.NoError(t, err)
		assert.Len(t, pw, length)
		for _, r := range pw {
			assert.True(t, strings.ContainsRune(passwordAlphabet, r), "unexpected character %q", r)
		}
	}

	_, err := GeneratePassword(0)
	assert.Error(t, err)
}

func TestGeneratePassword_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pw, err := GeneratePassword(16)
		require.NoError(t, err)
		assert.False(t, seen[pw], "duplicate password generated")
		seen[pw] = true
	}
}
