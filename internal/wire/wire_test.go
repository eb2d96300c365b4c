package wire

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
)

func TestIdentityRoundtrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	decoded, err := DecodeIdentity(Encode(pub))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(decoded, pub) {
		t.Fatal("identity roundtrip lost bytes")
	}
}

func TestDecodeRejectsMalformedFields(t *testing.T) {
	if _, err := DecodeIdentity("not base58 0OIl"); !errors.Is(err, ErrMalformedField) {
		t.Fatalf("expected ErrMalformedField, got %v", err)
	}
	if _, err := DecodeIdentity(Encode([]byte("short"))); !errors.Is(err, ErrMalformedField) {
		t.Fatalf("wrong length identity: expected ErrMalformedField, got %v", err)
	}
	if _, err := DecodeSignature(Encode(make([]byte, 10))); !errors.Is(err, ErrMalformedField) {
		t.Fatalf("wrong length signature: expected ErrMalformedField, got %v", err)
	}
	if _, err := ParseTime("yesterday"); !errors.Is(err, ErrMalformedField) {
		t.Fatalf("expected ErrMalformedField, got %v", err)
	}
	if _, err := ParseTime("-5"); !errors.Is(err, ErrMalformedField) {
		t.Fatalf("negative time: expected ErrMalformedField, got %v", err)
	}
}

func TestParseTime(t *testing.T) {
	v, err := ParseTime("1700000000")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if v != 1700000000 {
		t.Fatalf("parsed %d", v)
	}
}
