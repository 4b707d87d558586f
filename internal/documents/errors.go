package documents

import (
	"errors"
	"net/http"
)

// Domain errors for document operations.
var (
	ErrNotFound      = errors.New("document not found")
	ErrDuplicate     = errors.New("document already exists")
	ErrFileTooLarge  = errors.New("file exceeds maximum upload size")
	ErrInvalidFile   = errors.New("invalid file")
	ErrTooManyFiles  = errors.New("too many files")
	ErrInvalidID     = errors.New("invalid document id")
	ErrInvalidStatus = errors.New("unknown document status")
)

var httpStatus = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrDuplicate, http.StatusConflict},
	{ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{ErrInvalidFile, http.StatusBadRequest},
	{ErrTooManyFiles, http.StatusBadRequest},
	{ErrInvalidID, http.StatusBadRequest},
	{ErrInvalidStatus, http.StatusBadRequest},
}

// MapHTTPStatus maps document domain errors to HTTP status codes.
// Anything unrecognized is a 500.
func MapHTTPStatus(err error) int {
	for _, m := range httpStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
