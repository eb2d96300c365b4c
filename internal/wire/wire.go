// Package wire defines the named transport fields shared by the client and
// the server, and the text codecs for the binary values carried in them.
package wire

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"

	"github.com/DezzK/private-cloud/internal/request"
)

const (
	UploadPath   = "/upload"
	DownloadPath = "/download"

	HeaderFilename         = "Filename"
	HeaderPubkey           = "Pubkey"
	HeaderTime             = "Time"
	HeaderRequestSignature = "Request-Signature"
	HeaderFileSignature    = "File-Signature"
)

var ErrMalformedField = errors.New("malformed request field")

// Encode renders raw key or signature bytes as base58 text.
func Encode(raw []byte) string {
	return base58.Encode(raw)
}

func DecodeIdentity(s string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: pubkey: %v", ErrMalformedField, err)
	}
	if len(raw) != request.IdentitySize {
		return nil, fmt.Errorf("%w: pubkey is %d bytes, want %d", ErrMalformedField, len(raw), request.IdentitySize)
	}
	return ed25519.PublicKey(raw), nil
}

func DecodeSignature(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrMalformedField, err)
	}
	if len(raw) != request.SignatureSize {
		return nil, fmt.Errorf("%w: signature is %d bytes, want %d", ErrMalformedField, len(raw), request.SignatureSize)
	}
	return raw, nil
}

func ParseTime(s string) (uint64, error) {
	t, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: time: %v", ErrMalformedField, err)
	}
	return t, nil
}
