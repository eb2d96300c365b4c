package keystore

import (
	"crypto/ed25519"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

const hkdfInfoSigning = "cloud/keystore/signing/v1"

// deriveSigningKey expands the bip39 seed into the ed25519 signing keypair.
// Derivation is deterministic: the same seed always yields the same identity.
func deriveSigningKey(seedBytes []byte) (ed25519.PrivateKey, error) {
	signingSeed, err := hkdfExpand(seedBytes, hkdfInfoSigning, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(signingSeed), nil
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
