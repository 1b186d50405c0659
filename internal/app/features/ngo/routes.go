// internal/app/features/ngo/routes.go
package ngo

import (
	"github.com/dalemusser/eatandearn/internal/app/system/auth"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the NGO endpoints (typically under "/ngo").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(string(models.RoleNGO)))

		pr.Get("/homeless", h.ServeHomeless)
		pr.Post("/homeless", h.HandleRegisterHomeless)
		pr.Get("/homeless/{id}/activity", h.ServeActivity)

		pr.Get("/events/open", h.ServeOpenEvents)
		pr.Post("/assign", h.HandleAssign)
		pr.Post("/complete", h.HandleComplete)
		pr.Post("/redeem", h.HandleRedeem)
	})

	return r
}
