package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/tally/pkg/envvar"
)

// ErrUnauthorized indicates a missing or invalid bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// AuthConfig holds OIDC bearer token verification settings.
type AuthConfig struct {
	Enabled     bool   `toml:"enabled"`
	Issuer      string `toml:"issuer"`
	ClientID    string `toml:"client_id"`
	TenantClaim string `toml:"tenant_claim"`
}

// AuthEnv maps auth config fields to environment variable names for override injection.
type AuthEnv struct {
	Enabled     string
	Issuer      string
	ClientID    string
	TenantClaim string
}

// Finalize applies defaults, environment variable overrides, and validation.
// Issuer and ClientID are only required once auth is enabled.
func (c *AuthConfig) Finalize(env *AuthEnv) error {
	if c.TenantClaim == "" {
		c.TenantClaim = "tid"
	}
	if env != nil {
		envvar.Bool(env.Enabled, &c.Enabled)
		envvar.String(env.Issuer, &c.Issuer)
		envvar.String(env.ClientID, &c.ClientID)
		envvar.String(env.TenantClaim, &c.TenantClaim)
	}

	switch {
	case !c.Enabled:
		return nil
	case c.Issuer == "":
		return fmt.Errorf("issuer required when auth is enabled")
	case c.ClientID == "":
		return fmt.Errorf("client_id required when auth is enabled")
	}
	return nil
}

// Merge overwrites fields from overlay. Enabled always applies, so an
// overlay that carries an [api.auth] table must restate it.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	c.Enabled = overlay.Enabled
	overlayNonZero(&c.Issuer, overlay.Issuer)
	overlayNonZero(&c.ClientID, overlay.ClientID)
	overlayNonZero(&c.TenantClaim, overlay.TenantClaim)
}

// TokenVerifier resolves a raw bearer token to a caller identity.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}

// OIDCVerifier verifies ID tokens against an OIDC provider's published keys.
type OIDCVerifier struct {
	verifier    *oidc.IDTokenVerifier
	tenantClaim string
}

// NewOIDCVerifier discovers the provider configuration at cfg.Issuer.
func NewOIDCVerifier(ctx context.Context, cfg *AuthConfig) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	return &OIDCVerifier{
		verifier:    provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		tenantClaim: cfg.TenantClaim,
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: decode claims: %w", ErrUnauthorized, err)
	}

	tenant, _ := claims[v.tenantClaim].(string)
	return Identity{Subject: token.Subject, TenantID: tenant}, nil
}

// Auth returns middleware that requires a verified bearer token.
// Browsers cannot set headers on WebSocket upgrades, so the access_token
// query parameter is accepted as a fallback.
func Auth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}

			id, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				logger.WarnContext(r.Context(), "token verification failed", "error", err)
				http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
