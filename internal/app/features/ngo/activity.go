// internal/app/features/ngo/activity.go
package ngo

import (
	"net/http"
	"time"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/store/audit"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

const activityLimit = 50

type activityEntry struct {
	Timestamp     time.Time         `json:"timestamp"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorRole     string            `json:"actor_role,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// ServeActivity lists the most recent audit events for one of this NGO's
// homeless persons, newest first.
// GET /ngo/homeless/{id}/activity
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "homeless activity")
	defer cancel()

	if !h.ownsHomeless(ctx, w, r, id) {
		return
	}

	events, err := audit.New(h.DB).GetByUser(ctx, id, activityLimit)
	if err != nil {
		apierr.Write(w, h.Log, "load activity", err)
		return
	}
	out := make([]activityEntry, 0, len(events))
	for _, e := range events {
		out = append(out, activityEntry{
			Timestamp:     e.Timestamp,
			EventType:     e.EventType,
			ActorID:       e.ActorID,
			ActorRole:     e.ActorRole,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		})
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"activity": out})
}
