// internal/app/ledger/ledger.go
//
// Package ledger guards and applies balance changes to a homeless person's
// two credit counters. It validates the request, checks that the actor may
// ask for it, and performs the change as one conditional update so a
// sufficiency check can never act on a stale balance. Persisting the
// returned Transaction is left to the caller.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the slice of the user store the ledger needs.
type Store interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	// AdjustCredits adds delta to the pool of a homeless person and returns
	// the new balance. A negative delta only applies while the balance is at
	// least -delta; otherwise it returns storeerr.ErrGuardFailed.
	AdjustCredits(ctx context.Context, id string, credit models.CreditType, delta int64) (int64, error)
}

// Actor is who asks for the change, passed explicitly with every request.
type Actor struct {
	ID   string
	Role models.ActorRole
}

// Origin tells the ledger which entry point produced the request.
type Origin int

const (
	// OriginDirect is a transaction posted through the command boundary.
	OriginDirect Origin = iota
	// OriginEventCompletion is the payout for a completed event. On this
	// path an NGO may trigger an earn.
	OriginEventCompletion
)

// Request describes one balance change.
type Request struct {
	Actor    Actor
	TargetID string
	Type     models.TxnType
	Amount   int64
	Credit   models.CreditType
	Origin   Origin
}

// Result is the outcome of an applied change. Transaction is a description
// for the caller to persist; it has no ID yet.
type Result struct {
	Balance     int64
	Transaction models.Transaction
}

// Ledger applies requests against a Store.
type Ledger struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// New constructs a Ledger.
func New(store Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store: store,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Apply validates req and applies it. On any error the balance is unchanged.
func (l *Ledger) Apply(ctx context.Context, req Request) (Result, error) {
	if req.Amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	txnType, ok := models.ParseTxnType(string(req.Type))
	if !ok {
		return Result{}, ErrInvalidTxnType
	}
	credit, ok := models.ParseCreditType(string(req.Credit))
	if !ok {
		return Result{}, ErrInvalidCreditType
	}
	if !Authorized(txnType, req.Actor.Role, req.Origin) {
		return Result{}, ErrUnauthorizedActor.With(fmt.Sprintf("%q may not %s", req.Actor.Role, txnType))
	}

	u, err := l.store.GetUser(ctx, req.TargetID)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return Result{}, ErrTargetNotFound
		}
		return Result{}, fmt.Errorf("load target: %w", err)
	}
	v, err := u.Variant()
	if err != nil {
		return Result{}, ErrRoleNotEligible
	}
	hp, ok := v.(models.HomelessPerson)
	if !ok {
		return Result{}, ErrRoleNotEligible
	}

	delta := req.Amount
	switch txnType {
	case models.TxnRedeem:
		if hp.Balance(credit) < req.Amount {
			return Result{}, ErrInsufficientCredits
		}
		delta = -req.Amount
	case models.TxnEarn:
		if hp.Balance(credit) > math.MaxInt64-req.Amount {
			return Result{}, ErrInvalidAmount.With("balance would overflow")
		}
	}

	bal, err := l.store.AdjustCredits(ctx, req.TargetID, credit, delta)
	switch {
	case err == nil:
	case errors.Is(err, storeerr.ErrGuardFailed) && txnType == models.TxnRedeem:
		// Another writer spent the balance between our read and the update.
		return Result{}, ErrInsufficientCredits
	case errors.Is(err, storeerr.ErrGuardFailed):
		return Result{}, ErrConflict.With("target changed during update")
	case errors.Is(err, storeerr.ErrNotFound):
		return Result{}, ErrTargetNotFound
	default:
		return Result{}, fmt.Errorf("adjust credits: %w", err)
	}

	l.log.Debug("ledger change applied",
		zap.String("user_id", req.TargetID),
		zap.String("type", string(txnType)),
		zap.String("credit_type", string(credit)),
		zap.Int64("amount", req.Amount),
		zap.Int64("balance", bal),
		zap.String("actor_role", string(req.Actor.Role)))

	return Result{
		Balance: bal,
		Transaction: models.Transaction{
			Reference:    uuid.NewString(),
			UserID:       req.TargetID,
			Type:         txnType,
			Amount:       req.Amount,
			CreditType:   credit,
			ActorID:      req.Actor.ID,
			ActorRole:    req.Actor.Role,
			BalanceAfter: bal,
			CreatedAt:    l.now(),
		},
	}, nil
}

// Revert undoes a change Apply already made, for callers whose later step
// failed outside a database transaction. Reverting an earn fails with
// ErrInsufficientCredits if the credits were spent in the meantime.
func (l *Ledger) Revert(ctx context.Context, res Result) error {
	tx := res.Transaction
	delta := -tx.Amount
	if tx.Type == models.TxnRedeem {
		delta = tx.Amount
	}
	if _, err := l.store.AdjustCredits(ctx, tx.UserID, tx.CreditType, delta); err != nil {
		if errors.Is(err, storeerr.ErrGuardFailed) {
			return ErrInsufficientCredits.With("credits spent before the earn could be reverted")
		}
		return fmt.Errorf("revert %s: %w", tx.Type, err)
	}
	l.log.Debug("ledger change reverted",
		zap.String("user_id", tx.UserID),
		zap.String("type", string(tx.Type)),
		zap.String("credit_type", string(tx.CreditType)),
		zap.Int64("amount", tx.Amount))
	return nil
}

// Authorized reports whether an actor with the given role may request a
// change of type t arriving through origin.
func Authorized(t models.TxnType, role models.ActorRole, origin Origin) bool {
	switch t {
	case models.TxnEarn:
		switch role {
		case models.ActorVolunteeringWorkplace:
			return true
		case models.ActorNGO:
			return origin == OriginEventCompletion
		}
	case models.TxnRedeem:
		switch role {
		case models.ActorFoodBank, models.ActorShelter, models.ActorNGO:
			return true
		}
	}
	return false
}
