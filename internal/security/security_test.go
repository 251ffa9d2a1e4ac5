package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("Secret1!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1!", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.True(t, hasher.Verify("Secret1!", hash))
	assert.False(t, hasher.Verify("Secret2!", hash))
	assert.False(t, hasher.Verify("", hash))
	assert.False(t, hasher.Verify("Secret1!", "not-a-bcrypt-hash"))

	again, err := hasher.Hash("Secret1!")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salt must differ between hashes")
}

func TestNewBcryptHasherFallsBackToDefaultCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, DefaultCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 10, NewBcryptHasher(10).cost)
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	valid := []string{"Secret1!", "Abcdefg1@", "ZZzz99&&", "Passw0rd#?"}
	for _, p := range valid {
		assert.NoError(t, ValidatePassword(p), p)
	}

	invalid := []string{
		"",
		"Sh0rt!",
		"alllower1!",
		"ALLUPPER1!",
		"NoDigits!!",
		"NoSpecial11",
		"OnlyQuest1?",
		"Spaces 1!a",
		"Dotted1.a!",
		"Ünïcode1!",
	}
	for _, p := range invalid {
		assert.ErrorIs(t, ValidatePassword(p), ErrWeakPassword, p)
	}
}

func TestValidatePasswordLength(t *testing.T) {
	t.Parallel()

	atLimit := "Aa1!" + strings.Repeat("a", maxPasswordLength-4)
	require.Len(t, atLimit, 72)
	assert.NoError(t, ValidatePassword(atLimit))

	hash, err := NewBcryptHasher(bcrypt.MinCost).Hash(atLimit)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.ErrorIs(t, ValidatePassword(atLimit+"a"), ErrPasswordTooLong)
	assert.ErrorIs(t, ValidatePassword("Aa1!"+strings.Repeat("a", 80)), ErrPasswordTooLong)
}
