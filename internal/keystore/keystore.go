// Package keystore owns the client's signing keypair. The keypair is derived
// from a bip39 mnemonic; the mnemonic is kept at rest in a passphrase-sealed
// securestore envelope. The private key never leaves the process.
package keystore

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/DezzK/private-cloud/internal/securestore"
)

var (
	ErrNoKeypair          = errors.New("no keypair found; generate one first")
	ErrInvalidMnemonic    = errors.New("invalid recovery mnemonic")
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrWrongPassphrase    = errors.New("wrong keystore passphrase")
)

// FileStore persists one keypair in a single encrypted file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Regenerate creates a fresh keypair, replacing any existing one. The previous
// identity loses access to its namespace permanently. The returned mnemonic is
// the only way to recover the new keypair and is never written in the clear.
func (s *FileStore) Regenerate(passphrase string) (mnemonic string, pub ed25519.PublicKey, err error) {
	if strings.TrimSpace(passphrase) == "" {
		return "", nil, ErrPassphraseRequired
	}
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", nil, err
	}
	mnemonic, err = bip39.NewMnemonic(entropy)
	if err != nil {
		return "", nil, err
	}
	pub, err = s.Restore(mnemonic, passphrase)
	if err != nil {
		return "", nil, err
	}
	return mnemonic, pub, nil
}

// Restore derives the keypair from a recovery mnemonic and persists it under
// the passphrase, replacing any existing keypair.
func (s *FileStore) Restore(mnemonic, passphrase string) (ed25519.PublicKey, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrPassphraseRequired
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	priv, err := deriveSigningKey(bip39.NewSeed(mnemonic, ""))
	if err != nil {
		return nil, err
	}
	if err := securestore.WriteEncryptedFile(s.path, passphrase, []byte(mnemonic)); err != nil {
		return nil, fmt.Errorf("persist keystore: %w", err)
	}
	return priv.Public().(ed25519.PublicKey), nil
}

// SigningKey unlocks the stored keypair with the passphrase.
func (s *FileStore) SigningKey(passphrase string) (ed25519.PrivateKey, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrPassphraseRequired
	}
	plaintext, err := securestore.ReadDecryptedFile(s.path, passphrase)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoKeypair
	}
	if errors.Is(err, securestore.ErrAuthFailed) {
		return nil, ErrWrongPassphrase
	}
	if err != nil {
		return nil, err
	}

	mnemonic := strings.TrimSpace(string(plaintext))
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: keystore content is corrupted", ErrInvalidMnemonic)
	}
	return deriveSigningKey(bip39.NewSeed(mnemonic, ""))
}
