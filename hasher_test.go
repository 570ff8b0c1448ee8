package multilogin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	multilogin "github.com/multilogin/go-multilogin"
)

func TestHMACHasher_HashCredential(t *testing.T) {
	hasher := multilogin.NewHMACHasher("test-secret")

	t.Run("produces lowercase hex digest", func(t *testing.T) {
		digest := hasher.HashCredential("password123")

		assert.Equal(t, "2b46560cfc07e738b1b40765b282308026cdd5b9d2aae58be8a347b1293a82e7", digest)
		assert.Len(t, digest, 64)
		assert.Equal(t, digest, hasher.HashCredential("password123"))
	})

	t.Run("empty plaintext still digests", func(t *testing.T) {
		digest := hasher.HashCredential("")

		assert.Equal(t, "a41bc6d81d6413576ae0994995e0ad89a416ec97389515c3604f47722122eeeb", digest)
	})

	t.Run("different secret yields different digest", func(t *testing.T) {
		other := multilogin.NewHMACHasher("other-secret")

		assert.Equal(t, "0439abdc87c3f893f3922456a4b97289d13a3aa0ef2c37bbfd72d6889b91ea00", other.HashCredential("password123"))
		assert.NotEqual(t, hasher.HashCredential("password123"), other.HashCredential("password123"))
	})

	t.Run("different plaintext yields different digest", func(t *testing.T) {
		assert.NotEqual(t, hasher.HashCredential("password123"), hasher.HashCredential("password124"))
	})
}

func TestHMACHasher_CompareCredential(t *testing.T) {
	hasher := multilogin.NewHMACHasher("test-secret")

	t.Run("matches own digest", func(t *testing.T) {
		digest := hasher.HashCredential("password123")

		assert.True(t, hasher.CompareCredential("password123", digest))
	})

	t.Run("rejects wrong plaintext", func(t *testing.T) {
		digest := hasher.HashCredential("password123")

		assert.False(t, hasher.CompareCredential("password124", digest))
	})

	t.Run("rejects digest from another secret", func(t *testing.T) {
		other := multilogin.NewHMACHasher("other-secret")

		assert.False(t, hasher.CompareCredential("password123", other.HashCredential("password123")))
	})
}
