// internal/app/features/orgevents/routes.go
package orgevents

import (
	"github.com/dalemusser/eatandearn/internal/app/system/auth"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the organization console (typically under "/org").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(string(models.RoleOrganization)))

		pr.Get("/events", h.ServeEvents)
		pr.Post("/events", h.HandlePostEvent)
	})
	return r
}
