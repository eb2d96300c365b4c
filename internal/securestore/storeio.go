package securestore

import (
	"os"
	"path/filepath"
)

// ReadDecryptedFile reads and decrypts file content with the provided passphrase.
func ReadDecryptedFile(path, passphrase string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decrypt(passphrase, raw)
}

// WriteEncryptedFile encrypts the payload and writes it via a sibling temp
// file plus rename, so a crash never leaves a torn secret on disk.
func WriteEncryptedFile(path, passphrase string, plaintext []byte) error {
	encrypted, err := Encrypt(passphrase, plaintext)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encrypted, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
