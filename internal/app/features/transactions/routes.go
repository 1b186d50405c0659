// internal/app/features/transactions/routes.go
package transactions

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the API (typically under "/api"). Workplaces, food banks
// and shelters hold no account; they name their role in each request.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/transactions", h.HandleCreate)
	r.Get("/transactions", h.ServeList)
	r.Get("/transactions/{id}", h.ServeGet)
	r.Get("/users/{id}/transactions", h.ServeUserTransactions)
	return r
}
