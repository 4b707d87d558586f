package api

import (
	"net/http"

	"github.com/JaimeStill/tally/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	groups := []routes.Group{
		domain.Documents.Handler(runtime.Pipeline.DefaultTenant).Routes(),
		domain.Processing.Routes(),
		domain.Tenants.Handler().Routes(),
		domain.Hub.Routes(),
	}

	routes.Register(mux, groups...)

	for _, p := range routes.Patterns(groups...) {
		runtime.Logger.Debug("route registered", "pattern", p)
	}
}
