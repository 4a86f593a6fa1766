// Package keycodec decodes, validates and persists ed25519 signing keys in
// the formats wallets commonly export them in.
package keycodec

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	SecretKeySize = ed25519.PrivateKeySize
	SeedSize      = ed25519.SeedSize
)

// Keypair holds a validated 64-byte secret key. The public key is always
// derived from the secret, never stored beside it.
type Keypair struct {
	secret solana.PrivateKey
}

// NewKeypair validates secret and takes a private copy of it. The trailing
// 32 bytes must be the public key derived from the leading seed.
func NewKeypair(secret []byte) (Keypair, error) {
	if len(secret) != SecretKeySize {
		return Keypair{}, fmt.Errorf("secret key must be %d bytes, got %d", SecretKeySize, len(secret))
	}
	derived := ed25519.NewKeyFromSeed(secret[:SeedSize])
	if !bytes.Equal(derived[SeedSize:], secret[SeedSize:]) {
		return Keypair{}, fmt.Errorf("public key half does not match seed")
	}
	buf := make([]byte, SecretKeySize)
	copy(buf, secret)
	return Keypair{secret: solana.PrivateKey(buf)}, nil
}

// Generate returns a fresh random keypair.
func Generate() (Keypair, error) {
	pk, err := solana.NewRandomPrivateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return NewKeypair(pk)
}

func (k Keypair) IsZero() bool {
	return len(k.secret) == 0
}

func (k Keypair) PublicKey() solana.PublicKey {
	if k.IsZero() {
		return solana.PublicKey{}
	}
	return k.secret.PublicKey()
}

// PrivateKey returns a copy usable with solana-go signing helpers.
func (k Keypair) PrivateKey() solana.PrivateKey {
	buf := make([]byte, len(k.secret))
	copy(buf, k.secret)
	return solana.PrivateKey(buf)
}

func (k Keypair) Sign(message []byte) (solana.Signature, error) {
	if k.IsZero() {
		return solana.Signature{}, fmt.Errorf("keypair is not initialized")
	}
	return k.secret.Sign(message)
}

// Base58Secret is the Phantom-style export of the full 64-byte secret.
func (k Keypair) Base58Secret() string {
	return k.secret.String()
}

// String prints the public key only, so a Keypair is safe to log.
func (k Keypair) String() string {
	return k.PublicKey().String()
}

// EncodeToBytes returns a copy of the 64-byte secret.
func EncodeToBytes(k Keypair) []byte {
	out := make([]byte, len(k.secret))
	copy(out, k.secret)
	return out
}
