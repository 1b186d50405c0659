// internal/app/features/ngo/events.go
package ngo

import (
	"context"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/assignment"
	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	organizationstore "github.com/dalemusser/eatandearn/internal/app/store/organizations"
	"github.com/dalemusser/eatandearn/internal/app/system/inputval"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
)

// eventInput names a homeless person and one event. Ids are passed through
// as given; an id that does not parse is reported as not found.
type eventInput struct {
	HomelessID string `json:"homeless_id" validate:"required" label:"Homeless person"`
	OrgID      string `json:"org_id" validate:"required" label:"Organization"`
	EventIndex *int   `json:"event_index" validate:"required" label:"Event"`
}

// ServeOpenEvents lists events that still have free positions.
// GET /ngo/events/open
func (h *Handler) ServeOpenEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := organizationstore.New(h.DB).ListOpenEvents(ctx)
	if err != nil {
		apierr.Write(w, h.Log, "list open events", err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// command decodes an eventInput into a tracker command for the signed-in
// NGO. It writes the error response itself when it returns false.
func (h *Handler) command(w http.ResponseWriter, r *http.Request) (assignment.Command, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return assignment.Command{}, false
	}
	var in eventInput
	if !apierr.DecodeJSON(w, r, &in) {
		return assignment.Command{}, false
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.BadRequest(w, res.All())
		return assignment.Command{}, false
	}
	return assignment.Command{
		Actor:      actor,
		HomelessID: in.HomelessID,
		OrgID:      in.OrgID,
		EventIndex: *in.EventIndex,
	}, true
}

// HandleAssign assigns a homeless person to an event, taking one position.
// POST /ngo/assign
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.command(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "assign to event")
	defer cancel()

	if !h.ownsHomeless(ctx, w, r, cmd.HomelessID) {
		return
	}

	a, err := h.Credits.AssignToEvent(ctx, cmd)
	if err != nil {
		apierr.Write(w, h.Log, "assign to event", err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"assignment": a})
}

type completionResponse struct {
	Balances     assignment.Balances  `json:"balances"`
	Transactions []models.Transaction `json:"transactions"`
}

// HandleComplete marks the assigned event done and pays its rewards.
// POST /ngo/complete
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.command(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "complete event")
	defer cancel()

	if !h.ownsHomeless(ctx, w, r, cmd.HomelessID) {
		return
	}

	c, err := h.Credits.CompleteEvent(ctx, cmd)
	if err != nil {
		apierr.Write(w, h.Log, "complete event", err)
		return
	}
	txns := c.Transactions
	if txns == nil {
		txns = []models.Transaction{}
	}
	apierr.WriteJSON(w, http.StatusOK, completionResponse{Balances: c.Balances, Transactions: txns})
}
