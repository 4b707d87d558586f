package queue

import (
	"errors"
	"net/http"
)

var (
	ErrQueueFull      = errors.New("processing queue is full")
	ErrClosed         = errors.New("processing queue is closed")
	ErrInvalidRequest = errors.New("invalid processing request")
)

// MapHTTPStatus maps queue errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
