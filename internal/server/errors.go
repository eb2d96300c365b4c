package server

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/DezzK/private-cloud/internal/request"
	"github.com/DezzK/private-cloud/internal/storage"
	"github.com/DezzK/private-cloud/internal/wire"
)

// ErrIntegrity marks an upload whose streamed bytes do not hash to the digest
// the client signed.
var ErrIntegrity = errors.New("payload signature does not match the uploaded content")

var ErrNotFound = errors.New("file not found")

// statusFor maps an error to the response status. Every failure becomes a
// non-OK response with the error text as body; nothing crashes the process.
func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, wire.ErrMalformedField),
		errors.Is(err, storage.ErrOutsideRoot),
		errors.Is(err, storage.ErrReservedName):
		return http.StatusBadRequest
	case errors.Is(err, request.ErrStaleRequest),
		errors.Is(err, request.ErrBadSignature),
		errors.Is(err, request.ErrBadIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrIntegrity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
