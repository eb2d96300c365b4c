package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const scratchPrefix = "upload-"

var ErrWriterClosed = errors.New("file writer is closed")

// FileWriter accumulates an incoming payload in a uniquely named scratch file
// and publishes it atomically on Commit. Close removes the scratch file unless
// a Commit succeeded, so deferring Close at the request boundary guarantees
// cleanup on every exit path, including client disconnects.
type FileWriter struct {
	file      *os.File
	path      string
	committed bool
	closed    bool
}

// NewFileWriter opens a fresh scratch file inside scratchDir, retrying on
// name collisions. The directory is created if it does not exist.
func NewFileWriter(scratchDir string) (*FileWriter, error) {
	if err := os.MkdirAll(scratchDir, 0o700); err != nil {
		return nil, err
	}
	for {
		suffix := make([]byte, 8)
		if _, err := rand.Read(suffix); err != nil {
			return nil, err
		}
		path := filepath.Join(scratchDir, scratchPrefix+hex.EncodeToString(suffix)+".tmp")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &FileWriter{file: f, path: path}, nil
	}
}

// Append writes one payload chunk to the scratch file.
func (w *FileWriter) Append(p []byte) error {
	if w.closed || w.file == nil {
		return ErrWriterClosed
	}
	_, err := w.file.Write(p)
	return err
}

// Commit durably flushes the scratch file, writes the payload signature next
// to the final path, and atomically moves the scratch file into place. The
// signature file exists before the rename, so no reader ever observes a
// payload without its signature. On any failure the final path is untouched
// and the scratch file remains for Close to remove.
func (w *FileWriter) Commit(payloadPath, sigPath string, signature []byte) error {
	if w.closed || w.file == nil {
		return ErrWriterClosed
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		w.file = nil
		return err
	}
	w.file = nil

	if err := os.MkdirAll(filepath.Dir(payloadPath), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(sigPath, signature, 0o600); err != nil {
		return err
	}
	if err := os.Rename(w.path, payloadPath); err != nil {
		// Do not leave a signature without its payload.
		_ = os.Remove(sigPath)
		return fmt.Errorf("publish %s: %w", filepath.Base(payloadPath), err)
	}
	w.committed = true
	return nil
}

// Close releases the scratch file. It is idempotent; unless Commit succeeded,
// the scratch file is removed. Cleanup failure is reported but must not mask
// the error that led here, so callers log it instead of returning it.
func (w *FileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	var errs []error
	if w.file != nil {
		errs = append(errs, w.file.Close())
		w.file = nil
	}
	if !w.committed {
		if err := os.Remove(w.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Path returns the scratch file location; used by tests to assert cleanup.
func (w *FileWriter) Path() string {
	return w.path
}
