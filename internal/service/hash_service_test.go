package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestArgon2HashService_RoundTrip(t *testing.T) {
	svc := NewArgon2HashService()

	tests := []struct {
		name     string
		password string
	}{
		{"typical", "SecureP@ssw0rd!"},
		{"empty", ""},
		{"long", strings.Repeat("a", 1000)},
		{"unicode", "contraseña-café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := svc.Hash(tt.password)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"), hash)

			match, err := svc.Verify(tt.password, hash)
			require.NoError(t, err)
			assert.True(t, match)

			match, err = svc.Verify(tt.password+"x", hash)
			require.NoError(t, err)
			assert.False(t, match)
		})
	}
}

func TestArgon2HashService_SaltedHashesDiffer(t *testing.T) {
	svc := NewArgon2HashService()

	first, err := svc.Hash("same-password")
	require.NoError(t, err)
	second, err := svc.Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestArgon2HashService_VerifyMalformed(t *testing.T) {
	svc := NewArgon2HashService()

	for _, bad := range []string{
		"not-a-valid-hash",
		"$scrypt$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$a2V5",
	} {
		_, err := svc.Verify("password", bad)
		assert.Error(t, err, bad)
	}
}

func TestArgon2HashService_VerifiesLegacyBcrypt(t *testing.T) {
	svc := NewArgon2HashService()

	legacy, err := bcrypt.GenerateFromPassword([]byte("imported-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	match, err := svc.Verify("imported-pass", string(legacy))
	require.NoError(t, err)
	assert.True(t, match)

	match, err = svc.Verify("other-pass", string(legacy))
	require.NoError(t, err)
	assert.False(t, match)
}

func TestArgon2HashService_NeedsRehash(t *testing.T) {
	svc := NewArgon2HashService()

	current, err := svc.Hash("pw")
	require.NoError(t, err)
	assert.False(t, svc.NeedsRehash(current))

	legacy, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, svc.NeedsRehash(string(legacy)))

	weaker := argon2Params{memory: 32 * 1024, time: 1, threads: 2, keyLen: 32}
	salt := []byte("0123456789abcdef")
	assert.True(t, svc.NeedsRehash(weaker.encode(salt, weaker.key("pw", salt))))

	assert.False(t, svc.NeedsRehash("garbage"))
}
