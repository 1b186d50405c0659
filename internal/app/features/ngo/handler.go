// internal/app/features/ngo/handler.go
package ngo

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/credits"
	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	userstore "github.com/dalemusser/eatandearn/internal/app/store/users"
	"github.com/dalemusser/eatandearn/internal/app/system/auditlog"
	"github.com/dalemusser/eatandearn/internal/app/system/authz"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the NGO console: registering homeless persons and acting
// on their behalf.
type Handler struct {
	DB      *mongo.Database
	Credits *credits.Service
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// NewHandler constructs an NGO Handler.
func NewHandler(db *mongo.Database, svc *credits.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Credits: svc,
		Audit:   audit,
		Log:     logger,
	}
}

// actor returns the signed-in NGO as a ledger actor, or writes a 403.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (ledger.Actor, bool) {
	a, ok := authz.Actor(r)
	if !ok {
		apierr.Write(w, h.Log, "resolve actor", ledger.ErrUnauthorizedActor)
		return ledger.Actor{}, false
	}
	return a, true
}

// ownsHomeless reports whether id names a homeless person the signed-in NGO
// registered. It writes the error response itself when it returns false.
func (h *Handler) ownsHomeless(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) bool {
	_, _, ngoID, _ := authz.UserCtx(r)
	u, err := userstore.New(h.DB).GetUser(ctx, id)
	switch {
	case errors.Is(err, storeerr.ErrNotFound):
		apierr.Write(w, h.Log, "load homeless person", ledger.ErrHomelessNotFound)
		return false
	case err != nil:
		apierr.Write(w, h.Log, "load homeless person", err)
		return false
	case u.Role != models.RoleHomeless:
		apierr.Write(w, h.Log, "load homeless person", ledger.ErrRoleNotEligible)
		return false
	case u.AddedBy == nil || *u.AddedBy != ngoID:
		apierr.Write(w, h.Log, "load homeless person",
			ledger.ErrUnauthorizedActor.With("homeless person is registered with another NGO"))
		return false
	}
	return true
}
