// internal/app/features/dashboard/summaries.go
package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	metricsstore "github.com/dalemusser/eatandearn/internal/app/store/metrics"
	organizationstore "github.com/dalemusser/eatandearn/internal/app/store/organizations"
	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	userstore "github.com/dalemusser/eatandearn/internal/app/store/users"
	"github.com/dalemusser/eatandearn/internal/app/system/authz"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

type platformSummary struct {
	Role   string              `json:"role"`
	Counts metricsstore.Counts `json:"counts"`
}

type ngoSummary struct {
	Role           string               `json:"role"`
	Homeless       int64                `json:"homeless"`
	AssignedActive int64                `json:"assigned_active"`
	CreditsHeld    metricsstore.Credits `json:"credits_held"`
	OpenEvents     int                  `json:"open_events"`
}

type eventSummary struct {
	EventIndex         int    `json:"event_index"`
	Name               string `json:"name"`
	InitialPositions   int    `json:"initial_positions"`
	PositionsAvailable int    `json:"positions_available"`
	Filled             int    `json:"filled"`
}

type orgSummary struct {
	Role   string         `json:"role"`
	Name   string         `json:"name"`
	Events []eventSummary `json:"events"`
}

// ServePlatform shows platform-wide totals.
func (h *Handler) ServePlatform(w http.ResponseWriter, r *http.Request) {
	role, _, _, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	apierr.WriteJSON(w, http.StatusOK, platformSummary{
		Role:   role,
		Counts: metricsstore.FetchCounts(ctx, h.DB),
	})
}

// ServeNGO summarizes the homeless persons an NGO registered.
func (h *Handler) ServeNGO(w http.ResponseWriter, r *http.Request) {
	_, _, ngoID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users := userstore.New(h.DB)
	homeless, err := users.Count(ctx, bson.M{"role": models.RoleHomeless, "added_by": ngoID})
	if err != nil {
		apierr.Write(w, h.Log, "count homeless", err)
		return
	}
	active, err := users.Count(ctx, bson.M{
		"role":                 models.RoleHomeless,
		"added_by":             ngoID,
		"assignment.completed": false,
	})
	if err != nil {
		apierr.Write(w, h.Log, "count assignments", err)
		return
	}
	held, err := metricsstore.CreditsHeldBy(ctx, h.DB, ngoID)
	if err != nil {
		apierr.Write(w, h.Log, "sum credits", err)
		return
	}
	open, err := organizationstore.New(h.DB).ListOpenEvents(ctx)
	if err != nil {
		apierr.Write(w, h.Log, "list open events", err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, ngoSummary{
		Role:           string(models.RoleNGO),
		Homeless:       homeless,
		AssignedActive: active,
		CreditsHeld:    held,
		OpenEvents:     len(open),
	})
}

// ServeOrganization reports how full each of the organization's events is.
func (h *Handler) ServeOrganization(w http.ResponseWriter, r *http.Request) {
	_, _, orgID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, err := organizationstore.New(h.DB).GetOrganization(ctx, orgID.Hex())
	if errors.Is(err, storeerr.ErrNotFound) {
		err = ledger.ErrTargetNotFound.With("organization not found")
	}
	if err != nil {
		apierr.Write(w, h.Log, "load organization", err)
		return
	}

	events := make([]eventSummary, len(org.Events))
	for i, ev := range org.Events {
		events[i] = eventSummary{
			EventIndex:         i,
			Name:               ev.Name,
			InitialPositions:   ev.InitialPositions,
			PositionsAvailable: ev.PositionsAvailable,
			Filled:             ev.InitialPositions - ev.PositionsAvailable,
		}
	}
	apierr.WriteJSON(w, http.StatusOK, orgSummary{
		Role:   string(models.RoleOrganization),
		Name:   org.Name,
		Events: events,
	})
}
