// Package client drives the transfer protocol from the caller's side: it
// computes digests, signs requests, and cross-checks downloaded content
// against the server-asserted payload signature.
package client

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DezzK/private-cloud/internal/digest"
	"github.com/DezzK/private-cloud/internal/request"
	"github.com/DezzK/private-cloud/internal/storage"
	"github.com/DezzK/private-cloud/internal/wire"
)

var (
	// ErrIntegrityMismatch means the server-asserted payload signature does
	// not match what this keypair would have signed over the received bytes.
	ErrIntegrityMismatch = errors.New("downloaded content does not match the stored payload signature")

	ErrMissingSignature = errors.New("server response is missing the payload signature")
	ErrOutsideDownload  = errors.New("destination resolves outside the download directory")
)

type Transfer struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

func New(serverURL string, logger *slog.Logger) (*Transfer, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transfer{
		baseURL:    parsed,
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

// Push uploads the file at path under its base name. The payload signature is
// computed over the streaming digest before the request is built, then the
// file cursor is rewound and the bytes are streamed as the request body.
func (t *Transfer) Push(ctx context.Context, priv ed25519.PrivateKey, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return err
	}
	name := filepath.Base(path)

	sum, err := digest.Reader(file)
	if err != nil {
		return err
	}
	fileSig := ed25519.Sign(priv, sum)

	signed, err := request.Build(name, priv.Public().(ed25519.PublicKey)).Sign(priv)
	if err != nil {
		return err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(wire.UploadPath), file)
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	applyRequestHeaders(req, signed)
	req.Header.Set(wire.HeaderFileSignature, wire.Encode(fileSig))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}

	t.logger.Info("push complete", "file", name, "bytes", info.Size())
	return nil
}

// Pull downloads name into downloadDir. The content is received into a
// private scratch file, the digest recomputed locally, and the would-be
// signature under the caller's key compared byte-for-byte with the
// server-asserted one before the file is promoted to its destination.
func (t *Transfer) Pull(ctx context.Context, priv ed25519.PrivateKey, name, downloadDir string) (string, error) {
	signed, err := request.Build(name, priv.Public().(ed25519.PublicKey)).Sign(priv)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint(wire.DownloadPath), nil)
	if err != nil {
		return "", err
	}
	applyRequestHeaders(req, signed)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", serverError(resp)
	}

	sigText := resp.Header.Get(wire.HeaderFileSignature)
	if sigText == "" {
		return "", ErrMissingSignature
	}
	serverSig, err := wire.DecodeSignature(sigText)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(downloadDir, 0o700); err != nil {
		return "", err
	}
	scratch, err := os.CreateTemp(downloadDir, ".pull-*.tmp")
	if err != nil {
		return "", err
	}
	promoted := false
	defer func() {
		scratch.Close()
		if !promoted {
			_ = os.Remove(scratch.Name())
		}
	}()

	if _, err := io.Copy(scratch, resp.Body); err != nil {
		return "", err
	}
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	sum, err := digest.Reader(scratch)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(ed25519.Sign(priv, sum), serverSig) {
		return "", ErrIntegrityMismatch
	}

	dest := filepath.Join(downloadDir, name)
	if !storage.Within(downloadDir, dest) {
		return "", fmt.Errorf("%w: %q", ErrOutsideDownload, name)
	}
	// Multi-segment names land in subdirectories that may not exist yet.
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return "", err
	}
	if err := scratch.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(scratch.Name(), dest); err != nil {
		return "", err
	}
	promoted = true

	t.logger.Info("pull complete", "file", name, "saved_to", dest)
	return dest, nil
}

func (t *Transfer) endpoint(path string) string {
	u := *t.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

func applyRequestHeaders(req *http.Request, signed request.Signed) {
	req.Header.Set(wire.HeaderFilename, signed.Name)
	req.Header.Set(wire.HeaderPubkey, wire.Encode(signed.Identity))
	req.Header.Set(wire.HeaderTime, strconv.FormatUint(signed.Time, 10))
	req.Header.Set(wire.HeaderRequestSignature, wire.Encode(signed.Signature))
}

// serverError surfaces the peer's human-readable failure text.
func serverError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = resp.Status
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, text)
}
