// internal/app/features/directory/routes.go
package directory

import (
	"github.com/dalemusser/eatandearn/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the listings at the site root.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/ngos", h.ServeNGOs)
		pr.Get("/organizations", h.ServeOrganizations)
		pr.Get("/providers", h.ServeProviders)
	})
	return r
}
