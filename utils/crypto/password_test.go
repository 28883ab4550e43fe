package cryptopackage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// 测试使用低成本参数
var testParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashPassword_Format(t *testing.T) {
	hash, err := HashPasswordWith("mysecretpassword123", testParams)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
	assert.Len(t, strings.Split(hash, "$"), 6)
}

func TestHashPassword_SaltDiffers(t *testing.T) {
	h1, err := HashPasswordWith("samepassword123", testParams)
	require.NoError(t, err)
	h2, err := HashPasswordWith("samepassword123", testParams)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPassword_Argon2(t *testing.T) {
	hash, err := HashPasswordWith("correct horse", testParams)
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("battery staple", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_LegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("imported-pw"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, IsBcryptHash(string(legacy)))

	ok, err := VerifyPassword("imported-pw", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_InvalidHashes(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"plain text", "password"},
		{"md5 style", "$1$abc$def"},
		{"argon2 missing parts", "$argon2id$v=19$m=1024"},
		{"argon2 bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$AAAA"},
		{"argon2 bad version", "$argon2id$v=18$m=1024,t=1,p=1$AAAA$AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyPassword("password", tt.hash)
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}
