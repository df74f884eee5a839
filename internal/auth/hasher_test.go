// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/pkg/errutil"
)

func TestHashPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces PHC encoded argon2id digest", func(t *testing.T) {
		hash, err := hasher.Hash("matchday-2026")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
		assert.Len(t, strings.Split(hash, "$"), 6)
	})

	t.Run("same password produces different digests (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("digest never contains the plaintext", func(t *testing.T) {
		hash, err := hasher.Hash("treasurer-secret")
		require.NoError(t, err)
		assert.NotContains(t, hash, "treasurer-secret")
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	hash, err := hasher.Hash("correctpassword")
	require.NoError(t, err)

	t.Run("correct password verifies", func(t *testing.T) {
		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty digest never verifies", func(t *testing.T) {
		ok, err := hasher.Verify("anything", "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	malformed := []struct {
		name   string
		digest string
	}{
		{"not a PHC string", "not-a-valid-hash"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad version", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA"},
		{"bad key encoding", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!"},
		{"threads overflow", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA"},
		{"zero threads", "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA"},
		{"zero iterations", "$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$aGFzaA"},
		{"absurd memory", "$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdA$aGFzaA"},
		{"empty key", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$"},
		{"truncated bcrypt", "$2b$10$short"},
	}
	for _, tt := range malformed {
		t.Run("malformed digest: "+tt.name, func(t *testing.T) {
			ok, err := hasher.Verify("password", tt.digest)
			require.Error(t, err)
			assert.False(t, ok)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
		})
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	legacy, err := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("matching password verifies", func(t *testing.T) {
		ok, err := hasher.Verify("oldpassword", string(legacy))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong password fails without error", func(t *testing.T) {
		ok, err := hasher.Verify("newpassword", string(legacy))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade(string(legacy)))
	})

	t.Run("argon2id digest does not need upgrade", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("empty digest has nothing to upgrade", func(t *testing.T) {
		assert.False(t, hasher.NeedsUpgrade(""))
	})
}
