// internal/app/features/directory/list.go
package directory

import (
	"context"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	organizationstore "github.com/dalemusser/eatandearn/internal/app/store/organizations"
	providerstore "github.com/dalemusser/eatandearn/internal/app/store/providers"
	userstore "github.com/dalemusser/eatandearn/internal/app/store/users"
	"github.com/dalemusser/eatandearn/internal/app/system/paging"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ngoRow struct {
	ID     primitive.ObjectID `json:"id"`
	Name   string             `json:"name"`
	NameCI string             `json:"-"`
	Email  string             `json:"email"`
	Cause  string             `json:"cause"`
}

type orgRow struct {
	ID         primitive.ObjectID `json:"id"`
	Name       string             `json:"name"`
	NameCI     string             `json:"-"`
	Email      string             `json:"email"`
	EventCount int                `json:"event_count"`
}

// ServeNGOs lists NGO accounts by name, optionally filtered by a name prefix.
// GET /ngos?q=&before=&after=&start=
func (h *Handler) ServeNGOs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	win := paging.ParseQuery(r).Window(bson.M{"role": models.RoleNGO})
	users := userstore.New(h.DB)

	total, err := users.Count(ctx, win.Count)
	if err != nil {
		apierr.Write(w, h.Log, "count ngos", err)
		return
	}
	found, err := users.Find(ctx, win.Filter, win.Find)
	if err != nil {
		apierr.Write(w, h.Log, "list ngos", err)
		return
	}

	rows := make([]ngoRow, len(found))
	for i, u := range found {
		rows[i] = ngoRow{ID: u.ID, Name: u.Name, NameCI: u.NameCI, Email: u.Email, Cause: u.Cause}
	}
	apierr.WriteJSON(w, http.StatusOK, paging.Finish(rows, total, win,
		func(n ngoRow) string { return n.NameCI },
		func(n ngoRow) primitive.ObjectID { return n.ID }))
}

// ServeOrganizations lists organizations by name.
// GET /organizations?q=&before=&after=&start=
func (h *Handler) ServeOrganizations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	win := paging.ParseQuery(r).Window(nil)
	orgs := organizationstore.New(h.DB)

	total, err := orgs.Count(ctx, win.Count)
	if err != nil {
		apierr.Write(w, h.Log, "count organizations", err)
		return
	}
	found, err := orgs.Find(ctx, win.Filter, win.Find)
	if err != nil {
		apierr.Write(w, h.Log, "list organizations", err)
		return
	}

	rows := make([]orgRow, len(found))
	for i, o := range found {
		rows[i] = orgRow{ID: o.ID, Name: o.Name, NameCI: o.NameCI, Email: o.Email, EventCount: len(o.Events)}
	}
	apierr.WriteJSON(w, http.StatusOK, paging.Finish(rows, total, win,
		func(o orgRow) string { return o.NameCI },
		func(o orgRow) primitive.ObjectID { return o.ID }))
}

// ServeProviders lists every provider with its remaining quota.
// GET /providers
func (h *Handler) ServeProviders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	providers, err := providerstore.New(h.DB).List(ctx)
	if err != nil {
		apierr.Write(w, h.Log, "list providers", err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"providers": providers})
}
