// internal/app/assignment/assignment.go
//
// Package assignment tracks which event a homeless person volunteers at and
// pays the event's reward when the NGO reports it done. A pairing moves
// Unassigned -> Assigned -> Completed and never back.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/app/system/txn"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserStore is the slice of the user store the tracker needs.
type UserStore interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	// SetAssignment stores a on the homeless person unless they already hold
	// an incomplete assignment, in which case it returns storeerr.ErrGuardFailed.
	SetAssignment(ctx context.Context, id string, a models.Assignment) error
	// MarkCompleted flips the assignment to completed if it points at the
	// given event and is not completed yet; otherwise storeerr.ErrGuardFailed.
	MarkCompleted(ctx context.Context, id string, orgID primitive.ObjectID, eventIndex int, at time.Time) error
	// UnmarkCompleted reverses MarkCompleted.
	UnmarkCompleted(ctx context.Context, id string, orgID primitive.ObjectID, eventIndex int) error
	AdjustCredits(ctx context.Context, id string, credit models.CreditType, delta int64) (int64, error)
}

// OrgStore is the slice of the organization store the tracker needs.
type OrgStore interface {
	GetOrganization(ctx context.Context, id string) (models.Organization, error)
	// ClaimPosition takes one free position of the event and returns how many
	// remain. It returns storeerr.ErrGuardFailed when none are free.
	ClaimPosition(ctx context.Context, orgID string, eventIndex int) (int, error)
	// ReleasePosition gives a claimed position back.
	ReleasePosition(ctx context.Context, orgID string, eventIndex int) error
}

// Runner executes fn as one unit of work.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Applier is the ledger entry point used for completion payouts.
type Applier interface {
	Apply(ctx context.Context, req ledger.Request) (ledger.Result, error)
}

// Command names one homeless person and one event.
type Command struct {
	Actor      ledger.Actor
	HomelessID string
	OrgID      string
	EventIndex int
}

// Balances are a homeless person's two counters after a payout.
type Balances struct {
	Shelter int64 `json:"shelter"`
	Food    int64 `json:"food"`
}

// Completion is the result of a completed event. Transactions holds one
// description per non-zero payout, for the caller to persist.
type Completion struct {
	Balances     Balances
	Transactions []models.Transaction
}

// Record persists the payout descriptions of a completion and returns the
// stored copies. It runs inside the completion's unit of work, so a failure
// reverses the payouts and the completion flag.
type Record func(ctx context.Context, txs []models.Transaction) ([]models.Transaction, error)

// Tracker assigns homeless persons to events and completes them.
type Tracker struct {
	users  UserStore
	orgs   OrgStore
	ledger Applier
	runner Runner
	log    *zap.Logger
	now    func() time.Time
}

// New constructs a Tracker.
func New(users UserStore, orgs OrgStore, l Applier, runner Runner, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		users:  users,
		orgs:   orgs,
		ledger: l,
		runner: runner,
		log:    logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Assign takes one position of the event and records the assignment on the
// homeless person. A person with an incomplete assignment is rejected with
// ErrAlreadyAssigned; a completed one is replaced.
func (t *Tracker) Assign(ctx context.Context, cmd Command) (models.Assignment, error) {
	if cmd.Actor.Role != models.ActorNGO {
		return models.Assignment{}, ledger.ErrUnauthorizedActor.With("only an NGO assigns events")
	}
	org, ev, err := t.loadEvent(ctx, cmd)
	if err != nil {
		return models.Assignment{}, err
	}
	hp, err := t.loadHomeless(ctx, cmd.HomelessID)
	if err != nil {
		return models.Assignment{}, err
	}
	if hp.Assignment.Active() {
		return models.Assignment{}, ledger.ErrAlreadyAssigned
	}
	if ev.PositionsAvailable <= 0 {
		return models.Assignment{}, ledger.ErrNoPositionsAvailable
	}

	a := models.Assignment{
		OrgID:      org.ID,
		OrgName:    org.Name,
		EventIndex: cmd.EventIndex,
		EventName:  ev.Name,
		AssignedAt: t.now(),
	}

	err = t.runner.Run(ctx, func(ctx context.Context) error {
		var undo txn.Undo
		left, err := t.orgs.ClaimPosition(ctx, cmd.OrgID, cmd.EventIndex)
		if err != nil {
			if errors.Is(err, storeerr.ErrGuardFailed) {
				return ledger.ErrNoPositionsAvailable
			}
			return fmt.Errorf("claim position: %w", err)
		}
		undo.Push(func(ctx context.Context) error {
			return t.orgs.ReleasePosition(ctx, cmd.OrgID, cmd.EventIndex)
		})

		if err := t.users.SetAssignment(ctx, cmd.HomelessID, a); err != nil {
			t.rollback(ctx, &undo, "assign")
			if errors.Is(err, storeerr.ErrGuardFailed) {
				return ledger.ErrAlreadyAssigned
			}
			return fmt.Errorf("set assignment: %w", err)
		}

		t.log.Info("homeless person assigned to event",
			zap.String("homeless_id", cmd.HomelessID),
			zap.String("org_id", cmd.OrgID),
			zap.Int("event_index", cmd.EventIndex),
			zap.Int("positions_left", left))
		return nil
	})
	if err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// Complete marks the assignment completed and pays the event's reward
// through the ledger. Each pool is paid only when its offered amount is
// non-zero. If any step fails, the completion flag and earlier payouts are
// reversed.
func (t *Tracker) Complete(ctx context.Context, cmd Command) (Completion, error) {
	return t.CompleteAndRecord(ctx, cmd, nil)
}

// CompleteAndRecord is Complete with record called on the payouts as the
// last step. A nil record skips it.
func (t *Tracker) CompleteAndRecord(ctx context.Context, cmd Command, record Record) (Completion, error) {
	if cmd.Actor.Role != models.ActorNGO {
		return Completion{}, ledger.ErrUnauthorizedActor.With("only an NGO completes events")
	}
	org, ev, err := t.loadEvent(ctx, cmd)
	if err != nil {
		return Completion{}, err
	}
	hp, err := t.loadHomeless(ctx, cmd.HomelessID)
	if err != nil {
		return Completion{}, err
	}
	if !hp.Assignment.Matches(org.ID, cmd.EventIndex) {
		return Completion{}, ledger.ErrNotAssigned
	}
	if hp.Assignment.Completed {
		return Completion{}, ledger.ErrAlreadyCompleted
	}

	var out Completion
	err = t.runner.Run(ctx, func(ctx context.Context) error {
		out = Completion{Balances: Balances{Shelter: hp.ShelterCredits, Food: hp.FoodCredits}}
		var undo txn.Undo

		if err := t.users.MarkCompleted(ctx, cmd.HomelessID, org.ID, cmd.EventIndex, t.now()); err != nil {
			if errors.Is(err, storeerr.ErrGuardFailed) {
				return t.classifyCompletion(ctx, cmd.HomelessID, org.ID, cmd.EventIndex)
			}
			return fmt.Errorf("mark completed: %w", err)
		}
		undo.Push(func(ctx context.Context) error {
			return t.users.UnmarkCompleted(ctx, cmd.HomelessID, org.ID, cmd.EventIndex)
		})

		for _, credit := range models.CreditTypes {
			amount := ev.Offered(credit)
			if amount <= 0 {
				continue
			}
			res, err := t.ledger.Apply(ctx, ledger.Request{
				Actor:    cmd.Actor,
				TargetID: cmd.HomelessID,
				Type:     models.TxnEarn,
				Amount:   amount,
				Credit:   credit,
				Origin:   ledger.OriginEventCompletion,
			})
			if err != nil {
				t.rollback(ctx, &undo, "complete")
				return err
			}
			credit, amount := credit, amount
			undo.Push(func(ctx context.Context) error {
				_, err := t.users.AdjustCredits(ctx, cmd.HomelessID, credit, -amount)
				return err
			})

			tx := res.Transaction
			tx.OrgID = cmd.OrgID
			idx := cmd.EventIndex
			tx.EventIndex = &idx
			out.Transactions = append(out.Transactions, tx)
			switch credit {
			case models.CreditShelter:
				out.Balances.Shelter = res.Balance
			case models.CreditFood:
				out.Balances.Food = res.Balance
			}
		}

		if record != nil {
			stored, err := record(ctx, out.Transactions)
			if err != nil {
				t.rollback(ctx, &undo, "complete")
				return err
			}
			out.Transactions = stored
		}

		t.log.Info("event completed",
			zap.String("homeless_id", cmd.HomelessID),
			zap.String("org_id", cmd.OrgID),
			zap.Int("event_index", cmd.EventIndex),
			zap.Int64("shelter_credits", out.Balances.Shelter),
			zap.Int64("food_credits", out.Balances.Food))
		return nil
	})
	if err != nil {
		return Completion{}, err
	}
	return out, nil
}

func (t *Tracker) loadEvent(ctx context.Context, cmd Command) (models.Organization, models.Event, error) {
	org, err := t.orgs.GetOrganization(ctx, cmd.OrgID)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return models.Organization{}, models.Event{}, ledger.ErrEventNotFound.With("organization not found")
		}
		return models.Organization{}, models.Event{}, fmt.Errorf("load organization: %w", err)
	}
	ev, ok := org.EventAt(cmd.EventIndex)
	if !ok {
		return models.Organization{}, models.Event{}, ledger.ErrEventNotFound
	}
	return org, ev, nil
}

func (t *Tracker) loadHomeless(ctx context.Context, id string) (models.HomelessPerson, error) {
	u, err := t.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return models.HomelessPerson{}, ledger.ErrHomelessNotFound
		}
		return models.HomelessPerson{}, fmt.Errorf("load homeless person: %w", err)
	}
	v, err := u.Variant()
	if err != nil {
		return models.HomelessPerson{}, ledger.ErrRoleNotEligible
	}
	hp, ok := v.(models.HomelessPerson)
	if !ok {
		return models.HomelessPerson{}, ledger.ErrRoleNotEligible
	}
	return hp, nil
}

// classifyCompletion re-reads the record after a failed completion guard to
// tell a concurrent completion apart from a changed assignment.
func (t *Tracker) classifyCompletion(ctx context.Context, id string, orgID primitive.ObjectID, eventIndex int) error {
	u, err := t.users.GetUser(ctx, id)
	if err != nil {
		return ledger.ErrConflict.With("homeless person changed during completion")
	}
	if !u.Assignment.Matches(orgID, eventIndex) {
		return ledger.ErrNotAssigned
	}
	if u.Assignment.Completed {
		return ledger.ErrAlreadyCompleted
	}
	return ledger.ErrConflict
}

func (t *Tracker) rollback(ctx context.Context, undo *txn.Undo, op string) {
	if err := undo.Rollback(ctx); err != nil {
		t.log.Error("rollback failed", zap.String("op", op), zap.Error(err))
	}
}
