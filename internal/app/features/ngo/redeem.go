// internal/app/features/ngo/redeem.go
package ngo

import (
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/redemption"
	"github.com/dalemusser/eatandearn/internal/app/system/inputval"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
)

type redeemInput struct {
	HomelessID string `json:"homeless_id" validate:"required" label:"Homeless person"`
	ProviderID string `json:"provider_id" validate:"required" label:"Provider"`
	Amount     int64  `json:"amount"`
	CreditType string `json:"credit_type" validate:"omitempty,credittype" label:"Credit type"`
}

type receiptResponse struct {
	Balance     int64              `json:"balance"`
	Quota       int64              `json:"quota"`
	Transaction models.Transaction `json:"transaction"`
}

// HandleRedeem spends a homeless person's credits at a provider.
// POST /ngo/redeem
func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in redeemInput
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.BadRequest(w, res.All())
		return
	}
	credit, _ := models.ParseCreditType(in.CreditType)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "redeem at provider")
	defer cancel()

	if !h.ownsHomeless(ctx, w, r, in.HomelessID) {
		return
	}

	rc, err := h.Credits.RedeemAtProvider(ctx, redemption.Command{
		Actor:      actor,
		HomelessID: in.HomelessID,
		ProviderID: in.ProviderID,
		Amount:     in.Amount,
		Credit:     credit,
	})
	if err != nil {
		apierr.Write(w, h.Log, "redeem at provider", err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, receiptResponse{Balance: rc.Balance, Quota: rc.Quota, Transaction: rc.Transaction})
}
