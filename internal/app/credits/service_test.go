package credits_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/eatandearn/internal/app/assignment"
	"github.com/dalemusser/eatandearn/internal/app/credits"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/redemption"
	"github.com/dalemusser/eatandearn/internal/app/store/audit"
	"github.com/dalemusser/eatandearn/internal/app/system/auditlog"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/dalemusser/eatandearn/internal/testutil"
	"go.uber.org/zap"
)

type auditSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *auditSink) Log(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *auditSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType
	}
	return out
}

func newService(mem *testutil.MemStore, sink *auditSink) *credits.Service {
	logger := zap.NewNop()
	l := ledger.New(mem, logger)
	return credits.New(credits.Deps{
		Ledger:  l,
		Tracker: assignment.New(mem, mem, l, mem, logger),
		Broker:  redemption.New(mem, mem, l, mem, redemption.Options{}, logger),
		Txns:    mem,
		Runner:  mem,
		Audit:   auditlog.New(sink, logger, auditlog.Config{Ledger: "db"}),
		Log:     logger,
	})
}

var (
	workplace = ledger.Actor{ID: "wp-1", Role: models.ActorVolunteeringWorkplace}
	ngo       = ledger.Actor{ID: "ngo-1", Role: models.ActorNGO}
)

func TestService_EarnAndRedeemPersistTransactions(t *testing.T) {
	mem := testutil.NewMemStore()
	sink := &auditSink{}
	svc := newService(mem, sink)
	hp := mem.AddHomeless("Sam", 0, 0)
	ctx := context.Background()

	earned, err := svc.CreateEarnTransaction(ctx, credits.TxnCommand{Actor: workplace, UserID: hp, Amount: 30, Credit: models.CreditFood})
	if err != nil {
		t.Fatalf("CreateEarnTransaction: %v", err)
	}
	if earned.Balance != 30 || earned.Transaction.ID.IsZero() {
		t.Errorf("unexpected outcome: %+v", earned)
	}

	redeemed, err := svc.CreateRedeemTransaction(ctx, credits.TxnCommand{
		Actor:  ledger.Actor{Role: models.ActorFoodBank},
		UserID: hp,
		Amount: 12,
		Credit: models.CreditFood,
	})
	if err != nil {
		t.Fatalf("CreateRedeemTransaction: %v", err)
	}
	if redeemed.Balance != 18 {
		t.Errorf("balance: got %d, want 18", redeemed.Balance)
	}

	txns := mem.Transactions()
	if len(txns) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(txns))
	}
	if txns[0].Type != models.TxnEarn || txns[1].Type != models.TxnRedeem || txns[1].BalanceAfter != 18 {
		t.Errorf("unexpected records: %+v", txns)
	}

	got := sink.types()
	want := []string{audit.EventCreditsEarned, audit.EventCreditsRedeemed}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("audit events: got %v, want %v", got, want)
	}
}

func TestService_RejectedCommandWritesNothing(t *testing.T) {
	mem := testutil.NewMemStore()
	sink := &auditSink{}
	svc := newService(mem, sink)
	hp := mem.AddHomeless("Sam", 5, 0)

	_, err := svc.CreateRedeemTransaction(context.Background(), credits.TxnCommand{
		Actor:  ledger.Actor{Role: models.ActorShelter},
		UserID: hp,
		Amount: 6,
		Credit: models.CreditShelter,
	})
	if !errors.Is(err, ledger.ErrInsufficientCredits) {
		t.Fatalf("got %v, want %v", err, ledger.ErrInsufficientCredits)
	}
	if n := len(mem.Transactions()); n != 0 {
		t.Errorf("transactions: got %d, want 0", n)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 1 || sink.events[0].Success || sink.events[0].FailureReason != "insufficient_credits" {
		t.Errorf("expected one failure audit event, got %+v", sink.events)
	}
}

func TestService_AppendFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		run  func(t *testing.T, svc *credits.Service, mem *testutil.MemStore) (hp, prov string, err error)
	}{
		{"earn", func(t *testing.T, svc *credits.Service, mem *testutil.MemStore) (string, string, error) {
			hp := mem.AddHomeless("Sam", 10, 0)
			_, err := svc.CreateEarnTransaction(ctx, credits.TxnCommand{Actor: workplace, UserID: hp, Amount: 5, Credit: models.CreditFood})
			return hp, "", err
		}},
		{"redeem", func(t *testing.T, svc *credits.Service, mem *testutil.MemStore) (string, string, error) {
			hp := mem.AddHomeless("Sam", 10, 0)
			_, err := svc.CreateRedeemTransaction(ctx, credits.TxnCommand{
				Actor: ledger.Actor{Role: models.ActorShelter}, UserID: hp, Amount: 4, Credit: models.CreditShelter,
			})
			return hp, "", err
		}},
		{"provider redemption", func(t *testing.T, svc *credits.Service, mem *testutil.MemStore) (string, string, error) {
			hp := mem.AddHomeless("Sam", 10, 0)
			prov := mem.AddProvider(models.Provider{Name: "Sunny Shelter", Type: models.ProviderShelter, AvailableQuota: 100})
			_, err := svc.RedeemAtProvider(ctx, redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: prov, Amount: 10})
			return hp, prov, err
		}},
		{"event completion", func(t *testing.T, svc *credits.Service, mem *testutil.MemStore) (string, string, error) {
			hp := mem.AddHomeless("Sam", 10, 0)
			org := mem.AddOrganization(models.Organization{
				Name:   "City Works",
				Events: []models.Event{{Name: "Soup Kitchen", PositionsAvailable: 2, ShelterCreditsOffered: 10, FoodCreditsOffered: 5}},
			})
			cmd := assignment.Command{Actor: ngo, HomelessID: hp, OrgID: org, EventIndex: 0}
			if _, err := svc.AssignToEvent(ctx, cmd); err != nil {
				t.Fatalf("AssignToEvent: %v", err)
			}
			_, err := svc.CompleteEvent(ctx, cmd)
			return hp, "", err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := testutil.NewMemStore()
			svc := newService(mem, &auditSink{})
			mem.FailAppend = errors.New("disk full")

			hp, prov, err := tt.run(t, svc, mem)
			if err == nil {
				t.Fatal("expected error")
			}
			if ledger.KindOf(err) != ledger.KindInternal {
				t.Errorf("kind: got %v, want internal", ledger.KindOf(err))
			}

			u, gerr := mem.GetUser(ctx, hp)
			if gerr != nil {
				t.Fatalf("GetUser: %v", gerr)
			}
			if u.ShelterCredits != 10 || u.FoodCredits != 0 {
				t.Errorf("balances: got shelter=%d food=%d, want 10/0", u.ShelterCredits, u.FoodCredits)
			}
			if u.Assignment != nil && u.Assignment.Completed {
				t.Error("assignment left completed")
			}
			if prov != "" {
				p, _ := mem.GetProvider(ctx, prov)
				if p.AvailableQuota != 100 {
					t.Errorf("quota: got %d, want 100", p.AvailableQuota)
				}
			}
			if n := len(mem.Transactions()); n != 0 {
				t.Errorf("transactions: got %d, want 0", n)
			}
		})
	}
}

func TestService_EventLifecycle(t *testing.T) {
	mem := testutil.NewMemStore()
	sink := &auditSink{}
	svc := newService(mem, sink)
	ctx := context.Background()

	orgID := mem.AddOrganization(models.Organization{
		Name:   "City Works",
		Events: []models.Event{{Name: "Soup Kitchen", PositionsAvailable: 2, ShelterCreditsOffered: 10, FoodCreditsOffered: 5}},
	})
	hp := mem.AddHomeless("Sam", 0, 0)
	cmd := assignment.Command{Actor: ngo, HomelessID: hp, OrgID: orgID, EventIndex: 0}

	if _, err := svc.AssignToEvent(ctx, cmd); err != nil {
		t.Fatalf("AssignToEvent: %v", err)
	}
	c, err := svc.CompleteEvent(ctx, cmd)
	if err != nil {
		t.Fatalf("CompleteEvent: %v", err)
	}
	if c.Balances.Shelter != 10 || c.Balances.Food != 5 {
		t.Errorf("balances: got %+v", c.Balances)
	}
	for _, tx := range c.Transactions {
		if tx.ID.IsZero() {
			t.Errorf("transaction not persisted: %+v", tx)
		}
	}
	if n := len(mem.Transactions()); n != 2 {
		t.Errorf("transactions: got %d, want 2", n)
	}

	if _, err := svc.CompleteEvent(ctx, cmd); !errors.Is(err, ledger.ErrAlreadyCompleted) {
		t.Errorf("second completion: got %v, want %v", err, ledger.ErrAlreadyCompleted)
	}

	got := sink.types()
	want := []string{audit.EventEventAssigned, audit.EventEventCompleted, audit.EventEventCompleted}
	if len(got) != len(want) {
		t.Fatalf("audit events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("audit event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestService_RedeemAtProvider(t *testing.T) {
	mem := testutil.NewMemStore()
	svc := newService(mem, &auditSink{})
	prov := mem.AddProvider(models.Provider{Name: "Sunny Shelter", Type: models.ProviderShelter, AvailableQuota: 100})
	hp := mem.AddHomeless("Sam", 10, 0)

	r, err := svc.RedeemAtProvider(context.Background(), redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: prov, Amount: 10})
	if err != nil {
		t.Fatalf("RedeemAtProvider: %v", err)
	}
	if r.Balance != 0 || r.Quota != 90 || r.Transaction.ID.IsZero() {
		t.Errorf("unexpected receipt: %+v", r)
	}
	txns := mem.Transactions()
	if len(txns) != 1 || txns[0].ProviderID != prov {
		t.Errorf("unexpected records: %+v", txns)
	}
}
