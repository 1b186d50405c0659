// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:  db,
		Log: logger,
	}
}

// ServeDashboard dispatches to the summary for the signed-in role.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	switch {
	case authz.IsNGO(r):
		h.ServeNGO(w, r)
	case authz.IsOrganization(r):
		h.ServeOrganization(w, r)
	default:
		h.ServePlatform(w, r)
	}
}
