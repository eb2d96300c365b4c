package request

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// MaxTimeDiff is the freshness window: a request whose timestamp differs from
// the verifier's clock by more than this is rejected regardless of its
// signature. Bounds replay without server-side nonce tracking; requires the
// client and server clocks to be loosely synchronized.
const MaxTimeDiff = 60 * time.Second

const (
	IdentitySize  = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
)

var (
	ErrStaleRequest = errors.New("request time is outside the freshness window")
	ErrBadSignature = errors.New("request signature verification failed")
	ErrBadIdentity  = errors.New("identity is not a valid ed25519 public key")
	ErrBadKey       = errors.New("signing key is malformed")
)

// Signable is the request envelope that gets signed: which resource, by whom,
// and when. Never persisted; built fresh per operation.
type Signable struct {
	Name     string
	Identity ed25519.PublicKey
	Time     uint64
}

// Signed couples a Signable with a signature over its canonical encoding.
type Signed struct {
	Signable
	Signature []byte
}

// Build stamps the current wall-clock time (seconds resolution).
func Build(name string, identity ed25519.PublicKey) Signable {
	return BuildWithTime(name, identity, uint64(time.Now().Unix()))
}

// BuildWithTime reconstructs a request from received fields. The time must be
// the exact value the client asserted, never re-derived.
func BuildWithTime(name string, identity ed25519.PublicKey, t uint64) Signable {
	return Signable{Name: name, Identity: identity, Time: t}
}

// Encode returns the canonical byte serialization of the request:
// u32 LE name length, name bytes, raw 32-byte identity, u64 LE time.
// Length-prefixed framing keeps distinct field tuples from colliding.
func (s Signable) Encode() []byte {
	buf := make([]byte, 0, 4+len(s.Name)+IdentitySize+8)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Name)))
	buf = append(buf, s.Name...)
	buf = append(buf, s.Identity...)
	buf = binary.LittleEndian.AppendUint64(buf, s.Time)
	return buf
}

// Sign produces a Signed request under priv. The key must match the embedded
// identity; a malformed key is a fatal error surfaced to the caller.
func (s Signable) Sign(priv ed25519.PrivateKey) (Signed, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return Signed{}, fmt.Errorf("%w: %d bytes", ErrBadKey, len(priv))
	}
	if len(s.Identity) != IdentitySize {
		return Signed{}, fmt.Errorf("%w: %d bytes", ErrBadIdentity, len(s.Identity))
	}
	return Signed{Signable: s, Signature: ed25519.Sign(priv, s.Encode())}, nil
}

// Verifier checks signed requests against a clock. The clock is injectable
// so tests can exercise the freshness window deterministically.
type Verifier struct {
	window time.Duration
	now    func() time.Time
}

func NewVerifier() *Verifier {
	return &Verifier{window: MaxTimeDiff, now: time.Now}
}

func NewVerifierWithClock(window time.Duration, now func() time.Time) *Verifier {
	if window <= 0 {
		window = MaxTimeDiff
	}
	if now == nil {
		now = time.Now
	}
	return &Verifier{window: window, now: now}
}

// Check validates freshness and the cryptographic signature, in that order.
// Both must pass; either failure is an authentication error and no partial
// trust is granted.
func (v *Verifier) Check(s Signable, signature []byte) error {
	if len(s.Identity) != IdentitySize {
		return ErrBadIdentity
	}

	now := uint64(v.now().Unix())
	diff := now - s.Time
	if s.Time > now {
		diff = s.Time - now
	}
	if diff > uint64(v.window/time.Second) {
		return fmt.Errorf("%w: %d seconds; client and server clocks must be synchronized", ErrStaleRequest, diff)
	}

	if len(signature) != SignatureSize || !ed25519.Verify(s.Identity, s.Encode(), signature) {
		return ErrBadSignature
	}
	return nil
}
