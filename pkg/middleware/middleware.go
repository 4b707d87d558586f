// Package middleware provides composable HTTP middleware: CORS, request
// logging, and caller identity resolution.
package middleware

import (
	"net/http"
	"slices"
)

// Func wraps a handler with additional behavior.
type Func = func(http.Handler) http.Handler

// Stack is an ordered list of middleware. The first entry is outermost.
type Stack []Func

// Use appends fns to the stack.
func (s *Stack) Use(fns ...Func) {
	*s = append(*s, fns...)
}

// Apply wraps handler with every middleware in the stack.
func (s Stack) Apply(handler http.Handler) http.Handler {
	for _, fn := range slices.Backward(s) {
		handler = fn(handler)
	}
	return handler
}
