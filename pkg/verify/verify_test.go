package verify

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dustledger/pkg/errors"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	message := []byte("deposit:42")
	signature := ed25519.Sign(priv, message)

	t.Run("native chain verifies", func(t *testing.T) {
		assert.NoError(t, registry.Verify(ctx, NativeChain, pub, message, signature))
	})

	t.Run("tampered message fails", func(t *testing.T) {
		err := registry.Verify(ctx, NativeChain, pub, []byte("deposit:43"), signature)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unregistered chain fails closed", func(t *testing.T) {
		err := registry.Verify(ctx, "solana", pub, message, signature)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.Contains(t, err.Error(), "verification unavailable")
	})

	t.Run("registered chain takes over", func(t *testing.T) {
		registry.Register("testchain", Ed25519{})
		assert.NoError(t, registry.Verify(ctx, "testchain", pub, message, signature))
	})
}

func TestEd25519Sizes(t *testing.T) {
	ctx := context.Background()
	verifier := Ed25519{}

	t.Run("short public key", func(t *testing.T) {
		err := verifier.Verify(ctx, []byte("short"), []byte("m"), make([]byte, ed25519.SignatureSize))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("short signature", func(t *testing.T) {
		err := verifier.Verify(ctx, make([]byte, ed25519.PublicKeySize), []byte("m"), []byte("sig"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
