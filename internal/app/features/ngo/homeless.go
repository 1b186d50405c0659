// internal/app/features/ngo/homeless.go
package ngo

import (
	"context"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	userstore "github.com/dalemusser/eatandearn/internal/app/store/users"
	"github.com/dalemusser/eatandearn/internal/app/system/auditlog"
	"github.com/dalemusser/eatandearn/internal/app/system/authz"
	"github.com/dalemusser/eatandearn/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eatandearn/internal/app/system/inputval"
	"github.com/dalemusser/eatandearn/internal/app/system/normalize"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.uber.org/zap"
)

type registerInput struct {
	Name           string `json:"name" validate:"required,max=200" label:"Name"`
	ShelterCredits int64  `json:"shelter_credits" validate:"gte=0" label:"Shelter credits"`
	FoodCredits    int64  `json:"food_credits" validate:"gte=0" label:"Food credits"`
}

// HandleRegisterHomeless adds a homeless person under the signed-in NGO
// with optional starting balances.
// POST /ngo/homeless
func (h *Handler) HandleRegisterHomeless(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	_, _, ngoID, _ := authz.UserCtx(r)

	var in registerInput
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	in.Name = htmlsanitize.PlainText(normalize.Name(in.Name))
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.BadRequest(w, res.All())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).Create(ctx, models.User{
		Name:           in.Name,
		Role:           models.RoleHomeless,
		ShelterCredits: in.ShelterCredits,
		FoodCredits:    in.FoodCredits,
		AddedBy:        &ngoID,
	})
	if err != nil {
		apierr.Write(w, h.Log, "register homeless person", err)
		return
	}

	h.Log.Info("homeless person registered",
		zap.String("homeless_id", u.ID.Hex()),
		zap.String("ngo_id", actor.ID))
	h.Audit.HomelessRegistered(ctx, auditlog.Actor{ID: actor.ID, Role: string(actor.Role)},
		u.ID.Hex(), u.ShelterCredits, u.FoodCredits)
	apierr.WriteJSON(w, http.StatusCreated, u)
}

// ServeHomeless lists the homeless persons this NGO registered.
// GET /ngo/homeless
func (h *Handler) ServeHomeless(w http.ResponseWriter, r *http.Request) {
	_, _, ngoID, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "Please sign in to continue.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	people, err := userstore.New(h.DB).ListHomelessByNGO(ctx, ngoID)
	if err != nil {
		apierr.Write(w, h.Log, "list homeless persons", err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"homeless": people})
}
