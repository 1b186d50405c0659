// internal/app/credits/service.go
//
// Package credits is the command boundary of the ledger. It exposes the five
// commands that may change a balance, persists the transaction records the
// core components describe, and writes the audit trail. There is no way to
// patch a ledger record directly.
package credits

import (
	"context"
	"fmt"

	"github.com/dalemusser/eatandearn/internal/app/assignment"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/redemption"
	"github.com/dalemusser/eatandearn/internal/app/store/audit"
	"github.com/dalemusser/eatandearn/internal/app/system/auditlog"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.uber.org/zap"
)

// TransactionLog appends transaction records. Records are never updated.
type TransactionLog interface {
	Append(ctx context.Context, tx models.Transaction) (models.Transaction, error)
}

// Runner executes fn as one unit of work.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxnCommand asks for a direct earn or redeem.
type TxnCommand struct {
	Actor  ledger.Actor
	UserID string
	Amount int64
	Credit models.CreditType
}

// Outcome is the new balance and the stored record of a direct change.
type Outcome struct {
	Balance     int64              `json:"balance"`
	Transaction models.Transaction `json:"transaction"`
}

// Service wires the core components to persistence and auditing.
type Service struct {
	ledger  *ledger.Ledger
	tracker *assignment.Tracker
	broker  *redemption.Broker
	txns    TransactionLog
	runner  Runner
	audit   *auditlog.Logger
	log     *zap.Logger
}

// Deps groups what a Service needs.
type Deps struct {
	Ledger  *ledger.Ledger
	Tracker *assignment.Tracker
	Broker  *redemption.Broker
	Txns    TransactionLog
	Runner  Runner
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// New constructs a Service.
func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{
		ledger:  d.Ledger,
		tracker: d.Tracker,
		broker:  d.Broker,
		txns:    d.Txns,
		runner:  d.Runner,
		audit:   d.Audit,
		log:     d.Log,
	}
}

// CreateEarnTransaction adds credits to a homeless person's pool.
func (s *Service) CreateEarnTransaction(ctx context.Context, cmd TxnCommand) (Outcome, error) {
	out, err := s.direct(ctx, models.TxnEarn, cmd)
	if err != nil {
		s.fail(ctx, audit.EventCreditsEarned, cmd.Actor, cmd.UserID, err)
		return Outcome{}, err
	}
	s.audit.CreditsEarned(ctx, auditActor(cmd.Actor), cmd.UserID, string(out.Transaction.CreditType), cmd.Amount, out.Balance)
	return out, nil
}

// CreateRedeemTransaction spends credits from a homeless person's pool
// without touching any provider.
func (s *Service) CreateRedeemTransaction(ctx context.Context, cmd TxnCommand) (Outcome, error) {
	out, err := s.direct(ctx, models.TxnRedeem, cmd)
	if err != nil {
		s.fail(ctx, audit.EventCreditsRedeemed, cmd.Actor, cmd.UserID, err)
		return Outcome{}, err
	}
	s.audit.CreditsRedeemed(ctx, auditActor(cmd.Actor), cmd.UserID, string(out.Transaction.CreditType), cmd.Amount, out.Balance)
	return out, nil
}

func (s *Service) direct(ctx context.Context, t models.TxnType, cmd TxnCommand) (Outcome, error) {
	var out Outcome
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		res, err := s.ledger.Apply(ctx, ledger.Request{
			Actor:    cmd.Actor,
			TargetID: cmd.UserID,
			Type:     t,
			Amount:   cmd.Amount,
			Credit:   cmd.Credit,
			Origin:   ledger.OriginDirect,
		})
		if err != nil {
			return err
		}
		stored, err := s.txns.Append(ctx, res.Transaction)
		if err != nil {
			if rbErr := s.ledger.Revert(ctx, res); rbErr != nil {
				s.log.Error("rollback failed", zap.String("op", string(t)), zap.Error(rbErr))
			}
			return fmt.Errorf("append transaction: %w", err)
		}
		out = Outcome{Balance: res.Balance, Transaction: stored}
		return nil
	})
	return out, err
}

// AssignToEvent assigns a homeless person to an event.
func (s *Service) AssignToEvent(ctx context.Context, cmd assignment.Command) (models.Assignment, error) {
	a, err := s.tracker.Assign(ctx, cmd)
	if err != nil {
		s.fail(ctx, audit.EventEventAssigned, cmd.Actor, cmd.HomelessID, err)
		return models.Assignment{}, err
	}
	s.audit.EventAssigned(ctx, auditActor(cmd.Actor), cmd.HomelessID, cmd.OrgID, cmd.EventIndex)
	return a, nil
}

// CompleteEvent completes an assignment and persists the payout records.
func (s *Service) CompleteEvent(ctx context.Context, cmd assignment.Command) (assignment.Completion, error) {
	var out assignment.Completion
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		c, err := s.tracker.CompleteAndRecord(ctx, cmd, s.appendAll)
		out = c
		return err
	})
	if err != nil {
		s.fail(ctx, audit.EventEventCompleted, cmd.Actor, cmd.HomelessID, err)
		return assignment.Completion{}, err
	}
	s.audit.EventCompleted(ctx, auditActor(cmd.Actor), cmd.HomelessID, cmd.OrgID, cmd.EventIndex,
		out.Balances.Shelter, out.Balances.Food)
	return out, nil
}

// RedeemAtProvider spends credits at a provider and consumes its quota.
func (s *Service) RedeemAtProvider(ctx context.Context, cmd redemption.Command) (redemption.Receipt, error) {
	var out redemption.Receipt
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		r, err := s.broker.RedeemAndRecord(ctx, cmd, s.appendOne)
		out = r
		return err
	})
	if err != nil {
		s.fail(ctx, audit.EventProviderRedemption, cmd.Actor, cmd.HomelessID, err)
		return redemption.Receipt{}, err
	}
	s.audit.ProviderRedemption(ctx, auditActor(cmd.Actor), cmd.HomelessID, cmd.ProviderID,
		cmd.Amount, out.Balance, out.Quota)
	return out, nil
}

func (s *Service) appendOne(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	st, err := s.txns.Append(ctx, tx)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	return st, nil
}

func (s *Service) appendAll(ctx context.Context, txs []models.Transaction) ([]models.Transaction, error) {
	stored := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		st, err := s.appendOne(ctx, tx)
		if err != nil {
			return nil, err
		}
		stored = append(stored, st)
	}
	return stored, nil
}

// fail records a rejected command. Domain errors are expected and logged at
// Warn; anything else is a store or network failure.
func (s *Service) fail(ctx context.Context, eventType string, actor ledger.Actor, userID string, err error) {
	fields := []zap.Field{
		zap.String("command", eventType),
		zap.String("user_id", userID),
		zap.String("actor_role", string(actor.Role)),
		zap.String("code", ledger.CodeOf(err)),
		zap.Error(err),
	}
	if ledger.KindOf(err) == ledger.KindInternal {
		s.log.Error("ledger command failed", fields...)
	} else {
		s.log.Warn("ledger command rejected", fields...)
	}
	s.audit.LedgerFailure(ctx, eventType, auditActor(actor), userID, ledger.CodeOf(err))
}

func auditActor(a ledger.Actor) auditlog.Actor {
	return auditlog.Actor{ID: a.ID, Role: string(a.Role)}
}
