// Package verify checks externally produced signatures on reserve deposit
// proofs. One verifier is registered per chain; a chain without a verifier
// always fails closed rather than passing unchecked.
package verify

import (
	"context"
	"crypto/ed25519"
	"sync"

	dErrors "dustledger/pkg/errors"
)

// NativeChain is the chain the engine verifies out of the box.
const NativeChain = "native"

// Verifier checks one chain's signature scheme.
type Verifier interface {
	Verify(ctx context.Context, publicKey, message, signature []byte) error
}

// Registry dispatches verification by chain name.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]Verifier
}

// NewRegistry returns a registry with the native ed25519 verifier installed.
func NewRegistry() *Registry {
	r := &Registry{verifiers: make(map[string]Verifier)}
	r.Register(NativeChain, Ed25519{})
	return r
}

func (r *Registry) Register(chain string, verifier Verifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[chain] = verifier
}

// Verify dispatches to the chain's verifier. An unregistered chain is a
// coded unavailable failure, never a silent pass.
func (r *Registry) Verify(ctx context.Context, chain string, publicKey, message, signature []byte) error {
	r.mu.RLock()
	verifier, ok := r.verifiers[chain]
	r.mu.RUnlock()

	if !ok {
		return dErrors.Newf(dErrors.CodeUnavailable, "verification unavailable for chain %q", chain)
	}
	return verifier.Verify(ctx, publicKey, message, signature)
}

// Ed25519 verifies native-chain signatures.
type Ed25519 struct{}

func (Ed25519) Verify(ctx context.Context, publicKey, message, signature []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return dErrors.Newf(dErrors.CodeInvalidInput, "public key must be %d bytes", ed25519.PublicKeySize)
	}
	if len(signature) != ed25519.SignatureSize {
		return dErrors.Newf(dErrors.CodeInvalidInput, "signature must be %d bytes", ed25519.SignatureSize)
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signature) {
		return dErrors.New(dErrors.CodeInvalidInput, "signature verification failed")
	}
	return nil
}
