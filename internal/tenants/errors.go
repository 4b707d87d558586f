package tenants

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates no stored override exists for a tenant.
	ErrNotFound = errors.New("tenant schema not found")
	// ErrInvalidSchema indicates a schema failed load-time validation.
	ErrInvalidSchema = errors.New("invalid tenant schema")
)

// MapHTTPStatus maps tenant errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidSchema) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
