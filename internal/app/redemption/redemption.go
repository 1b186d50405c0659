// internal/app/redemption/redemption.go
//
// Package redemption spends a homeless person's credits at a provider. The
// provider's type decides the pool: a shelter takes shelter credits and a
// food bank takes food credits. The balance decrement and the quota
// decrement succeed or fail together.
package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/app/system/txn"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.uber.org/zap"
)

// ProviderStore is the slice of the provider store the broker needs.
type ProviderStore interface {
	GetProvider(ctx context.Context, id string) (models.Provider, error)
	// ConsumeQuota subtracts amount from the provider's quota and returns
	// what is left. With floor set it only applies while the quota covers
	// amount, returning storeerr.ErrGuardFailed otherwise.
	ConsumeQuota(ctx context.Context, id string, amount int64, floor bool) (int64, error)
	RestoreQuota(ctx context.Context, id string, amount int64) error
}

// UserStore is used to confirm the homeless person exists and to restore a
// balance when the quota step fails.
type UserStore interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	AdjustCredits(ctx context.Context, id string, credit models.CreditType, delta int64) (int64, error)
}

// Runner executes fn as one unit of work.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Applier is the ledger entry point used for the balance decrement.
type Applier interface {
	Apply(ctx context.Context, req ledger.Request) (ledger.Result, error)
}

// Command asks to spend Amount credits of HomelessID at ProviderID. Credit
// is optional; when set it must match the pool the provider accepts.
type Command struct {
	Actor      ledger.Actor
	HomelessID string
	ProviderID string
	Amount     int64
	Credit     models.CreditType
}

// Receipt is the outcome of a redemption.
type Receipt struct {
	Balance     int64
	Quota       int64
	Transaction models.Transaction
}

// Options tune the broker.
type Options struct {
	// AllowOverdraw lets a provider's quota go below zero.
	AllowOverdraw bool
}

// Record persists the redemption's transaction and returns the stored copy.
// It runs inside the redemption's unit of work, so a failure restores the
// balance and the quota.
type Record func(ctx context.Context, tx models.Transaction) (models.Transaction, error)

// Broker performs redemptions.
type Broker struct {
	users     UserStore
	providers ProviderStore
	ledger    Applier
	runner    Runner
	opts      Options
	log       *zap.Logger
}

// New constructs a Broker.
func New(users UserStore, providers ProviderStore, l Applier, runner Runner, opts Options, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		users:     users,
		providers: providers,
		ledger:    l,
		runner:    runner,
		opts:      opts,
		log:       logger,
	}
}

// Redeem spends the credits and consumes the provider's quota.
func (b *Broker) Redeem(ctx context.Context, cmd Command) (Receipt, error) {
	return b.RedeemAndRecord(ctx, cmd, nil)
}

// RedeemAndRecord is Redeem with record called on the transaction as the
// last step. A nil record skips it.
func (b *Broker) RedeemAndRecord(ctx context.Context, cmd Command, record Record) (Receipt, error) {
	if cmd.Amount <= 0 {
		return Receipt{}, ledger.ErrInvalidAmount
	}
	if _, err := b.users.GetUser(ctx, cmd.HomelessID); err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return Receipt{}, ledger.ErrHomelessNotFound
		}
		return Receipt{}, fmt.Errorf("load homeless person: %w", err)
	}
	p, err := b.providers.GetProvider(ctx, cmd.ProviderID)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return Receipt{}, ledger.ErrProviderNotFound
		}
		return Receipt{}, fmt.Errorf("load provider: %w", err)
	}
	credit, ok := p.Type.CreditType()
	if !ok {
		return Receipt{}, ledger.ErrUnsupportedProviderType.With(fmt.Sprintf("provider type %q", p.Type))
	}
	if cmd.Credit != "" && cmd.Credit != credit {
		return Receipt{}, ledger.ErrUnsupportedProviderType.With(
			fmt.Sprintf("provider %q accepts %s credits, not %s", p.Name, credit, cmd.Credit))
	}
	if !b.opts.AllowOverdraw && p.AvailableQuota < cmd.Amount {
		return Receipt{}, ledger.ErrQuotaExceeded
	}

	var out Receipt
	err = b.runner.Run(ctx, func(ctx context.Context) error {
		var undo txn.Undo
		res, err := b.ledger.Apply(ctx, ledger.Request{
			Actor:    cmd.Actor,
			TargetID: cmd.HomelessID,
			Type:     models.TxnRedeem,
			Amount:   cmd.Amount,
			Credit:   credit,
			Origin:   ledger.OriginDirect,
		})
		if err != nil {
			if errors.Is(err, ledger.ErrTargetNotFound) {
				return ledger.ErrHomelessNotFound
			}
			return err
		}
		undo.Push(func(ctx context.Context) error {
			_, err := b.users.AdjustCredits(ctx, cmd.HomelessID, credit, cmd.Amount)
			return err
		})

		quota, err := b.providers.ConsumeQuota(ctx, cmd.ProviderID, cmd.Amount, !b.opts.AllowOverdraw)
		if err != nil {
			b.rollback(ctx, &undo)
			switch {
			case errors.Is(err, storeerr.ErrGuardFailed):
				return ledger.ErrQuotaExceeded
			case errors.Is(err, storeerr.ErrNotFound):
				return ledger.ErrProviderNotFound
			}
			return fmt.Errorf("consume quota: %w", err)
		}

		undo.Push(func(ctx context.Context) error {
			return b.providers.RestoreQuota(ctx, cmd.ProviderID, cmd.Amount)
		})

		tx := res.Transaction
		tx.ProviderID = cmd.ProviderID
		if record != nil {
			if tx, err = record(ctx, tx); err != nil {
				b.rollback(ctx, &undo)
				return err
			}
		}
		out = Receipt{Balance: res.Balance, Quota: quota, Transaction: tx}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	b.log.Info("credits redeemed at provider",
		zap.String("homeless_id", cmd.HomelessID),
		zap.String("provider_id", cmd.ProviderID),
		zap.String("credit_type", string(credit)),
		zap.Int64("amount", cmd.Amount),
		zap.Int64("balance", out.Balance),
		zap.Int64("quota", out.Quota))
	return out, nil
}

func (b *Broker) rollback(ctx context.Context, undo *txn.Undo) {
	if err := undo.Rollback(ctx); err != nil {
		b.log.Error("rollback failed", zap.String("op", "redeem"), zap.Error(err))
	}
}
