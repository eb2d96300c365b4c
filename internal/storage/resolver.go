package storage

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mr-tron/base58"
)

var (
	ErrOutsideRoot  = errors.New("resource name resolves outside the storage namespace")
	ErrReservedName = errors.New("resource name uses the reserved signature suffix")
)

// SignatureSuffix is appended to a payload path to locate its commit signature.
const SignatureSuffix = ".sig"

// ResolvePaths maps (identity, resource name) to the payload path and its
// sibling signature path under root. Each identity gets its own subtree named
// by the base58 encoding of the public key. A name that would resolve outside
// the identity's subtree is rejected, never clamped.
func ResolvePaths(root string, identity ed25519.PublicKey, name string) (payloadPath, sigPath string, err error) {
	// A payload named like a signature file would clobber another payload's
	// signature on commit, so the suffix is reserved.
	if strings.HasSuffix(name, SignatureSuffix) {
		return "", "", fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	dir := filepath.Join(root, base58.Encode(identity))
	payload := filepath.Join(dir, name)

	if !isDescendant(dir, payload) {
		return "", "", fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	return payload, payload + SignatureSuffix, nil
}

// Within reports whether path is strictly inside dir after normalization.
// The download side uses it to guard the scratch-to-destination rename.
func Within(dir, path string) bool {
	return isDescendant(filepath.Clean(dir), filepath.Clean(path))
}

// isDescendant reports whether path is strictly inside dir after
// normalization. Both arguments must already be filepath.Join-cleaned.
func isDescendant(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
