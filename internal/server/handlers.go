package server

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/DezzK/private-cloud/internal/digest"
	"github.com/DezzK/private-cloud/internal/request"
	"github.com/DezzK/private-cloud/internal/storage"
	"github.com/DezzK/private-cloud/internal/wire"
)

const receiveBufferSize = 64 * 1024

// parseSignedRequest reconstructs the client's signed request from the named
// transport fields. The time field is taken verbatim, never re-derived.
func parseSignedRequest(h http.Header) (request.Signed, error) {
	identity, err := wire.DecodeIdentity(h.Get(wire.HeaderPubkey))
	if err != nil {
		return request.Signed{}, err
	}
	t, err := wire.ParseTime(h.Get(wire.HeaderTime))
	if err != nil {
		return request.Signed{}, err
	}
	signature, err := wire.DecodeSignature(h.Get(wire.HeaderRequestSignature))
	if err != nil {
		return request.Signed{}, err
	}
	return request.Signed{
		Signable:  request.BuildWithTime(h.Get(wire.HeaderFilename), identity, t),
		Signature: signature,
	}, nil
}

// authenticate rate-limits and verifies the signed request before any body
// byte is read, so unauthenticated uploads cost no storage I/O.
func (s *Server) authenticate(r *http.Request) (request.Signed, error) {
	signed, err := parseSignedRequest(r.Header)
	if err != nil {
		return request.Signed{}, err
	}
	if err := s.verifier.Check(signed.Signable, signed.Signature); err != nil {
		return request.Signed{}, err
	}
	return signed, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow(r.Header.Get(wire.HeaderPubkey), time.Now()) {
		uploadsTotal.WithLabelValues(outcomeRejected).Inc()
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	if err := s.upload(w, r); err != nil {
		s.respondError(w, "upload", uploadsTotal, err)
		return
	}
	uploadsTotal.WithLabelValues(outcomeOK).Inc()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) error {
	signed, err := s.authenticate(r)
	if err != nil {
		return err
	}
	fileSig, err := wire.DecodeSignature(r.Header.Get(wire.HeaderFileSignature))
	if err != nil {
		return err
	}
	payloadPath, sigPath, err := storage.ResolvePaths(s.storageRoot, signed.Identity, signed.Name)
	if err != nil {
		return err
	}

	s.logger.Info("upload started", "file", signed.Name, "identity", abbreviate(r.Header.Get(wire.HeaderPubkey)))

	writer, err := storage.NewFileWriter(s.scratchDir)
	if err != nil {
		return err
	}
	// Runs on every exit path, including client disconnects; a cleanup
	// failure is logged but never masks the original error.
	defer func() {
		if closeErr := writer.Close(); closeErr != nil {
			s.logger.Error("scratch file cleanup failed", "path", writer.Path(), "error", closeErr)
		}
	}()

	acc := digest.New()
	body := http.MaxBytesReader(w, r.Body, s.maxUpload)
	received, err := receive(writer, acc, body)
	if err != nil {
		return err
	}

	if !ed25519.Verify(signed.Identity, acc.Sum(), fileSig) {
		return ErrIntegrity
	}
	if err := writer.Commit(payloadPath, sigPath, fileSig); err != nil {
		return err
	}

	transferredBytes.WithLabelValues("in").Add(float64(received))
	s.logger.Info("upload committed", "file", signed.Name, "bytes", received)
	return nil
}

// receive drains the body into the scratch file and the digest accumulator in
// lockstep: each chunk is appended to disk first, then hashed, so the digest
// never covers bytes that failed to persist.
func receive(writer *storage.FileWriter, acc *digest.Accumulator, body io.Reader) (int64, error) {
	var total int64
	buf := make([]byte, receiveBufferSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if appendErr := writer.Append(buf[:n]); appendErr != nil {
				return total, appendErr
			}
			if _, hashErr := acc.Write(buf[:n]); hashErr != nil {
				return total, hashErr
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow(r.Header.Get(wire.HeaderPubkey), time.Now()) {
		downloadsTotal.WithLabelValues(outcomeRejected).Inc()
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	if err := s.download(w, r); err != nil {
		s.respondError(w, "download", downloadsTotal, err)
		return
	}
	downloadsTotal.WithLabelValues(outcomeOK).Inc()
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) error {
	signed, err := s.authenticate(r)
	if err != nil {
		return err
	}
	payloadPath, sigPath, err := storage.ResolvePaths(s.storageRoot, signed.Identity, signed.Name)
	if err != nil {
		return err
	}

	// The signature is small and bounded; the payload is streamed. An
	// artifact is only complete as a pair, so either file missing is the
	// same not-found.
	fileSig, err := os.ReadFile(sigPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, signed.Name)
	}
	if err != nil {
		return err
	}
	if len(fileSig) != request.SignatureSize {
		return fmt.Errorf("stored signature for %s is %d bytes, want %d", signed.Name, len(fileSig), request.SignatureSize)
	}
	payload, err := os.Open(payloadPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, signed.Name)
	}
	if err != nil {
		return err
	}
	defer payload.Close()

	info, err := payload.Stat()
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set(wire.HeaderFileSignature, wire.Encode(fileSig))

	sent, err := io.Copy(w, payload)
	transferredBytes.WithLabelValues("out").Add(float64(sent))
	if err != nil {
		// Status and headers are already out; all we can do is log.
		s.logger.Error("download stream aborted", "file", signed.Name, "error", err)
		return nil
	}
	s.logger.Info("download served", "file", signed.Name, "bytes", sent)
	return nil
}

func (s *Server) respondError(w http.ResponseWriter, op string, metric *prometheus.CounterVec, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		metric.WithLabelValues(outcomeError).Inc()
		s.logger.Error(op+" failed", "status", status, "error", err)
	} else {
		metric.WithLabelValues(outcomeRejected).Inc()
		s.logger.Warn(op+" rejected", "status", status, "error", err)
	}
	http.Error(w, err.Error(), status)
}

// abbreviate shortens a base58 identity for log lines.
func abbreviate(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
