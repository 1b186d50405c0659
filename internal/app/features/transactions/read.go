// internal/app/features/transactions/read.go
package transactions

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	transactionstore "github.com/dalemusser/eatandearn/internal/app/store/transactions"
	userstore "github.com/dalemusser/eatandearn/internal/app/store/users"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
)

var errTransactionNotFound = ledger.ErrTargetNotFound.With("transaction not found")

// parseCount reads a non-negative integer query parameter. Missing means 0.
func parseCount(r *http.Request, key string) (int64, bool) {
	s := query.Get(r, key)
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ServeList lists transactions newest first, filtered by user_id, type and
// credit_type, paged by limit and offset.
// GET /api/transactions
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f := transactionstore.ListFilter{UserID: query.Get(r, "user_id")}

	if s := query.Get(r, "type"); s != "" {
		t, ok := models.ParseTxnType(s)
		if !ok {
			apierr.Write(w, h.Log, "list transactions", ledger.ErrInvalidTxnType)
			return
		}
		f.Type = t
	}
	if s := query.Get(r, "credit_type"); s != "" {
		c, ok := models.ParseCreditType(s)
		if !ok {
			apierr.Write(w, h.Log, "list transactions", ledger.ErrInvalidCreditType)
			return
		}
		f.CreditType = c
	}
	var ok bool
	if f.Limit, ok = parseCount(r, "limit"); !ok {
		apierr.BadRequest(w, "limit must be a non-negative integer.")
		return
	}
	if f.Offset, ok = parseCount(r, "offset"); !ok {
		apierr.BadRequest(w, "offset must be a non-negative integer.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	txns, err := transactionstore.New(h.DB).List(ctx, f)
	if err != nil {
		apierr.Write(w, h.Log, "list transactions", err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

// ServeGet returns one transaction.
// GET /api/transactions/{id}
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	tx, err := transactionstore.New(h.DB).GetByID(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, storeerr.ErrNotFound) {
		apierr.Write(w, h.Log, "get transaction", errTransactionNotFound)
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, "get transaction", err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, tx)
}

// ServeUserTransactions lists one user's transactions newest first.
// GET /api/users/{id}/transactions
func (h *Handler) ServeUserTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, ok := parseCount(r, "limit")
	if !ok {
		apierr.BadRequest(w, "limit must be a non-negative integer.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := userstore.New(h.DB).GetUser(ctx, id); err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			err = ledger.ErrTargetNotFound
		}
		apierr.Write(w, h.Log, "load user", err)
		return
	}

	txns, err := transactionstore.New(h.DB).ListByUser(ctx, id, limit)
	if err != nil {
		apierr.Write(w, h.Log, "list user transactions", err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}
