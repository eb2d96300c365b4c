package digest

import (
	"io"

	"lukechampine.com/blake3"
)

// Size is the length in bytes of a finalized content digest.
const Size = 64

// Accumulator computes a BLAKE3 digest over content fed to it incrementally.
// It implements io.Writer so streamed chunks can be copied into it directly.
type Accumulator struct {
	h *blake3.Hasher
}

func New() *Accumulator {
	return &Accumulator{h: blake3.New(Size, nil)}
}

func (a *Accumulator) Write(p []byte) (int, error) {
	return a.h.Write(p)
}

// Sum finalizes the accumulator and returns the 64-byte digest.
// The accumulator may continue to be written to afterwards; Sum reflects
// only the bytes written before the call.
func (a *Accumulator) Sum() []byte {
	return a.h.Sum(nil)
}

// Reader computes the digest of everything remaining in r.
func Reader(r io.Reader) ([]byte, error) {
	a := New()
	if _, err := io.Copy(a, r); err != nil {
		return nil, err
	}
	return a.Sum(), nil
}
