package middleware

import (
	"context"
	"net/http"
)

// Headers carrying caller identity when bearer authentication is disabled.
const (
	HeaderRequesterID = "X-Requester-ID"
	HeaderTenantID    = "X-Tenant-ID"
)

// Identity is the caller resolved for a request.
// TenantID may be empty; consumers apply their own default.
type Identity struct {
	Subject  string
	TenantID string
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached to ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// HeaderIdentity returns middleware that reads the caller from the
// X-Requester-ID and X-Tenant-ID headers.
func HeaderIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Identity{
				Subject:  r.Header.Get(HeaderRequesterID),
				TenantID: r.Header.Get(HeaderTenantID),
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
