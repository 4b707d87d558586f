// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/infrastructure"
	"github.com/JaimeStill/tally/pkg/middleware"
	"github.com/JaimeStill/tally/pkg/module"
)

// API is the mounted module together with the domain systems behind it.
type API struct {
	Module  *module.Module
	Domain  *Domain
	runtime *Runtime
}

// New creates the API module with all domain handlers and middleware.
// Caller identity comes from verified bearer tokens when auth is enabled,
// otherwise from the X-Requester-ID and X-Tenant-ID headers.
func New(cfg *config.Config, infra *infrastructure.Infrastructure) (*API, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime, cfg)
	if err != nil {
		return nil, err
	}

	identity, err := identityMiddleware(cfg, runtime)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(identity)

	return &API{
		Module:  m,
		Domain:  domain,
		runtime: runtime,
	}, nil
}

// Start registers the background systems with the lifecycle coordinator.
func (a *API) Start() error {
	return a.Domain.Start(a.runtime)
}

func identityMiddleware(cfg *config.Config, runtime *Runtime) (func(http.Handler) http.Handler, error) {
	if !cfg.API.Auth.Enabled {
		return middleware.HeaderIdentity(), nil
	}

	verifier, err := middleware.NewOIDCVerifier(runtime.Lifecycle.Context(), &cfg.API.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth init failed: %w", err)
	}
	return middleware.Auth(verifier, runtime.Logger), nil
}
