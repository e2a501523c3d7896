package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	assert.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret"))
}

func TestHashPasswordClampsBadCost(t *testing.T) {
	// 0 and 99 are outside bcrypt's range; both should still hash.
	for _, cost := range []int{0, 99} {
		hash, err := HashPassword("s3cret", cost)
		assert.NoError(t, err)
		assert.True(t, VerifyPassword(hash, "s3cret"))
	}
}
