// internal/app/features/transactions/create.go
package transactions

import (
	"net/http"
	"strings"

	"github.com/dalemusser/eatandearn/internal/app/credits"
	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/system/inputval"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
)

type createInput struct {
	UserID     string `json:"user_id" validate:"required" label:"user_id"`
	Type       string `json:"type"`
	Amount     int64  `json:"amount"`
	CreditType string `json:"credit_type"`
	ActorRole  string `json:"actor_role" validate:"required" label:"actor_role"`
	ActorID    string `json:"actor_id" validate:"max=200" label:"actor_id"`
}

// HandleCreate applies a direct earn or redeem and records it.
// POST /api/transactions
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.BadRequest(w, res.All())
		return
	}

	cmd := credits.TxnCommand{
		Actor: ledger.Actor{
			ID:   strings.TrimSpace(in.ActorID),
			Role: models.ActorRole(strings.ToLower(strings.TrimSpace(in.ActorRole))),
		},
		UserID: in.UserID,
		Amount: in.Amount,
		Credit: models.CreditType(in.CreditType),
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create transaction")
	defer cancel()

	var (
		out credits.Outcome
		err error
	)
	t, _ := models.ParseTxnType(in.Type)
	switch t {
	case models.TxnEarn:
		out, err = h.Credits.CreateEarnTransaction(ctx, cmd)
	case models.TxnRedeem:
		out, err = h.Credits.CreateRedeemTransaction(ctx, cmd)
	default:
		err = ledger.ErrInvalidTxnType
		if in.Amount <= 0 {
			err = ledger.ErrInvalidAmount
		}
	}
	if err != nil {
		apierr.Write(w, h.Log, "create transaction", err)
		return
	}
	apierr.WriteJSON(w, http.StatusCreated, out)
}
