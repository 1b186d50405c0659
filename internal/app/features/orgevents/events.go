// internal/app/features/orgevents/events.go
package orgevents

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	organizationstore "github.com/dalemusser/eatandearn/internal/app/store/organizations"
	"github.com/dalemusser/eatandearn/internal/app/system/auditlog"
	"github.com/dalemusser/eatandearn/internal/app/system/authz"
	"github.com/dalemusser/eatandearn/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eatandearn/internal/app/system/inputval"
	"github.com/dalemusser/eatandearn/internal/app/system/normalize"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.uber.org/zap"
)

type eventInput struct {
	Name                  string `json:"name" validate:"required,max=200" label:"Event name"`
	PositionsAvailable    int    `json:"positions_available" validate:"gt=0" label:"Positions"`
	ShelterCreditsOffered int64  `json:"shelter_credits_offered" validate:"gte=0" label:"Shelter credits offered"`
	FoodCreditsOffered    int64  `json:"food_credits_offered" validate:"gte=0" label:"Food credits offered"`
}

// eventRow is an event with the index assignments refer to it by.
type eventRow struct {
	EventIndex int `json:"event_index"`
	models.Event
}

// HandlePostEvent appends an event to the signed-in organization.
// POST /org/events
func (h *Handler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		apierr.Write(w, h.Log, "resolve actor", ledger.ErrUnauthorizedActor)
		return
	}

	var in eventInput
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

	ev := models.Event{
		Name:                  in.Name,
		PositionsAvailable:    in.PositionsAvailable,
		InitialPositions:      in.PositionsAvailable,
		ShelterCreditsOffered: in.ShelterCreditsOffered,
		FoodCreditsOffered:    in.FoodCreditsOffered,
	}
	idx, err := organizationstore.New(h.DB).AddEvent(ctx, actor.ID, ev)
	if errors.Is(err, storeerr.ErrNotFound) {
		apierr.Write(w, h.Log, "post event", ledger.ErrTargetNotFound.With("organization not found"))
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, "post event", err)
		return
	}

	h.Log.Info("event posted", zap.String("org_id", actor.ID), zap.Int("event_index", idx))
	h.Audit.EventPosted(ctx, auditlog.Actor{ID: actor.ID, Role: string(actor.Role)}, idx, ev.Name, ev.PositionsAvailable)
	apierr.WriteJSON(w, http.StatusCreated, eventRow{EventIndex: idx, Event: ev})
}

// ServeEvents lists the organization's events in posting order.
// GET /org/events
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		apierr.Write(w, h.Log, "resolve actor", ledger.ErrUnauthorizedActor)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, err := organizationstore.New(h.DB).GetOrganization(ctx, actor.ID)
	if errors.Is(err, storeerr.ErrNotFound) {
		apierr.Write(w, h.Log, "list events", ledger.ErrTargetNotFound.With("organization not found"))
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, "list events", err)
		return
	}

	rows := make([]eventRow, len(org.Events))
	for i, ev := range org.Events {
		rows[i] = eventRow{EventIndex: i, Event: ev}
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"events": rows})
}
