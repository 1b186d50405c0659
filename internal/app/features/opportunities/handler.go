// internal/app/features/opportunities/handler.go
package opportunities

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	opportunitystore "github.com/dalemusser/eatandearn/internal/app/store/opportunities"
	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/app/system/authz"
	"github.com/dalemusser/eatandearn/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eatandearn/internal/app/system/inputval"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the opportunity notice board. Opportunities are
// informational and never touch a balance.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

type createInput struct {
	Title       string `json:"title" validate:"required,max=200" label:"Title"`
	Description string `json:"description" validate:"max=10000" label:"Description"`
}

// ServeList lists opportunities newest first.
// GET /opportunities
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := opportunitystore.New(h.DB).List(ctx)
	if err != nil {
		apierr.Write(w, h.Log, "list opportunities", err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"opportunities": list})
}

// HandleCreate posts an opportunity. The title is kept as plain text; the
// description may carry basic formatting.
// POST /opportunities
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "Please sign in to continue.")
		return
	}

	var in createInput
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	in.Title = htmlsanitize.PlainText(in.Title)
	in.Description = htmlsanitize.PrepareForDisplay(in.Description)
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.BadRequest(w, res.All())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := opportunitystore.New(h.DB).Create(ctx, models.Opportunity{
		Title:       in.Title,
		Description: in.Description,
		CreatedBy:   &uid,
	})
	if err != nil {
		apierr.Write(w, h.Log, "create opportunity", err)
		return
	}
	h.Log.Info("opportunity posted", zap.String("opportunity_id", o.ID.Hex()), zap.String("by", uid.Hex()))
	apierr.WriteJSON(w, http.StatusCreated, o)
}

// HandleDelete removes an opportunity.
// DELETE /opportunities/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := opportunitystore.New(h.DB).Delete(ctx, id)
	if errors.Is(err, storeerr.ErrNotFound) {
		apierr.Write(w, h.Log, "delete opportunity", ledger.ErrTargetNotFound.With("opportunity not found"))
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, "delete opportunity", err)
		return
	}
	h.Log.Info("opportunity deleted", zap.String("opportunity_id", id))
	w.WriteHeader(http.StatusNoContent)
}
