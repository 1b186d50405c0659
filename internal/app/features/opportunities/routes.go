// internal/app/features/opportunities/routes.go
package opportunities

import (
	"github.com/dalemusser/eatandearn/internal/app/system/auth"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the notice board (typically under "/opportunities").
// Everyone signed in can read it; NGOs and organizations post and remove.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(string(models.RoleNGO), string(models.RoleOrganization)))
		pr.Post("/", h.HandleCreate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
