package assignment_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/eatandearn/internal/app/assignment"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/dalemusser/eatandearn/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ngo = ledger.Actor{ID: "ngo-1", Role: models.ActorNGO}

type fixture struct {
	mem     *testutil.MemStore
	tracker *assignment.Tracker
	orgID   string
}

// newFixture builds a tracker over one organization with two events:
// index 0 "Soup Kitchen" (3 positions, 10 shelter / 5 food) and
// index 1 "Park Cleanup" (0 positions, 4 food).
func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := testutil.NewMemStore()
	orgID := mem.AddOrganization(models.Organization{
		Name: "City Works",
		Events: []models.Event{
			{Name: "Soup Kitchen", PositionsAvailable: 3, ShelterCreditsOffered: 10, FoodCreditsOffered: 5},
			{Name: "Park Cleanup", PositionsAvailable: 0, FoodCreditsOffered: 4},
		},
	})
	l := ledger.New(mem, zap.NewNop())
	return fixture{
		mem:     mem,
		tracker: assignment.New(mem, mem, l, mem, zap.NewNop()),
		orgID:   orgID,
	}
}

func (f fixture) positions(t *testing.T, idx int) int {
	t.Helper()
	org, err := f.mem.GetOrganization(context.Background(), f.orgID)
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	return org.Events[idx].PositionsAvailable
}

func (f fixture) user(t *testing.T, id string) models.User {
	t.Helper()
	u, err := f.mem.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	return u
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	hp := f.mem.AddHomeless("Sam", 0, 0)

	a, err := f.tracker.Assign(context.Background(), assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 0})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if a.EventName != "Soup Kitchen" || a.OrgName != "City Works" || a.Completed {
		t.Errorf("unexpected assignment: %+v", a)
	}
	if got := f.positions(t, 0); got != 2 {
		t.Errorf("positions: got %d, want 2", got)
	}
	u := f.user(t, hp)
	if !u.Assignment.Active() || u.Assignment.EventIndex != 0 || u.Assignment.OrgID.Hex() != f.orgID {
		t.Errorf("assignment not recorded: %+v", u.Assignment)
	}
}

func TestAssign_Rejections(t *testing.T) {
	f := newFixture(t)
	hp := f.mem.AddHomeless("Sam", 0, 0)
	ngoUser := f.mem.AddUser(models.User{Name: "Helping Hands", Role: models.RoleNGO})

	tests := []struct {
		name string
		cmd  assignment.Command
		want error
	}{
		{"actor not ngo", assignment.Command{Actor: ledger.Actor{Role: models.ActorOrganization}, HomelessID: hp, OrgID: f.orgID}, ledger.ErrUnauthorizedActor},
		{"unknown org", assignment.Command{Actor: ngo, HomelessID: hp, OrgID: primitive.NewObjectID().Hex()}, ledger.ErrEventNotFound},
		{"malformed org id", assignment.Command{Actor: ngo, HomelessID: hp, OrgID: "zzz"}, ledger.ErrEventNotFound},
		{"negative index", assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: -1}, ledger.ErrEventNotFound},
		{"index past end", assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 2}, ledger.ErrEventNotFound},
		{"unknown homeless", assignment.Command{Actor: ngo, HomelessID: primitive.NewObjectID().Hex(), OrgID: f.orgID}, ledger.ErrHomelessNotFound},
		{"target not homeless", assignment.Command{Actor: ngo, HomelessID: ngoUser, OrgID: f.orgID}, ledger.ErrRoleNotEligible},
		{"no positions", assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 1}, ledger.ErrNoPositionsAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tracker.Assign(context.Background(), tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if u := f.user(t, hp); u.Assignment != nil {
				t.Errorf("homeless record mutated: %+v", u.Assignment)
			}
			if got := f.positions(t, 0); got != 3 {
				t.Errorf("positions changed: %d", got)
			}
		})
	}
}

func TestAssign_AlreadyAssigned(t *testing.T) {
	f := newFixture(t)
	hp := f.mem.AddHomeless("Sam", 0, 0)
	ctx := context.Background()
	cmd := assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 0}

	if _, err := f.tracker.Assign(ctx, cmd); err != nil {
		t.Fatalf("first Assign: %v", err)
	}
	_, err := f.tracker.Assign(ctx, cmd)
	if !errors.Is(err, ledger.ErrAlreadyAssigned) {
		t.Fatalf("got %v, want %v", err, ledger.ErrAlreadyAssigned)
	}
	if got := f.positions(t, 0); got != 2 {
		t.Errorf("positions: got %d, want 2", got)
	}
}

func TestAssign_AfterCompletionReplaces(t *testing.T) {
	f := newFixture(t)
	hp := f.mem.AddHomeless("Sam", 0, 0)
	ctx := context.Background()
	cmd := assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 0}

	if _, err := f.tracker.Assign(ctx, cmd); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := f.tracker.Complete(ctx, cmd); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := f.tracker.Assign(ctx, cmd); err != nil {
		t.Fatalf("second Assign: %v", err)
	}
	u := f.user(t, hp)
	if !u.Assignment.Active() {
		t.Errorf("expected a fresh active assignment, got %+v", u.Assignment)
	}
	if got := f.positions(t, 0); got != 1 {
		t.Errorf("positions: got %d, want 1", got)
	}
}

func TestAssign_ReleasesPositionWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	hp := f.mem.AddHomeless("Sam", 0, 0)
	f.mem.FailSetAssignment = errors.New("write conflict")

	_, err := f.tracker.Assign(context.Background(), assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 0})
	if err == nil {
		t.Fatal("expected error")
	}
	if ledger.KindOf(err) != ledger.KindInternal {
		t.Errorf("kind: got %v, want internal", ledger.KindOf(err))
	}
	if got := f.positions(t, 0); got != 3 {
		t.Errorf("position not released: got %d, want 3", got)
	}
}

func TestAssign_ConcurrentClaimsNeverOversubscribe(t *testing.T) {
	f := newFixture(t)
	const people = 8
	ids := make([]string, people)
	for i := range ids {
		ids[i] = f.mem.AddHomeless("P", 0, 0)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.tracker.Assign(context.Background(), assignment.Command{Actor: ngo, HomelessID: id, OrgID: f.orgID, EventIndex: 0})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ledger.ErrNoPositionsAvailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if ok != 3 {
		t.Errorf("successful assignments: got %d, want 3", ok)
	}
	if got := f.positions(t, 0); got != 0 {
		t.Errorf("positions: got %d, want 0", got)
	}
}

func TestComplete_PaysBothPools(t *testing.T) {
	f := newFixture(t)
	hp := f.mem.AddHomeless("Sam", 0, 0)
	ctx := context.Background()
	cmd := assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 0}

	if _, err := f.tracker.Assign(ctx, cmd); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	c, err := f.tracker.Complete(ctx, cmd)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.Balances.Shelter != 10 || c.Balances.Food != 5 {
		t.Errorf("balances: got %+v, want shelter=10 food=5", c.Balances)
	}
	if len(c.Transactions) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(c.Transactions))
	}
	for _, tx := range c.Transactions {
		if tx.Type != models.TxnEarn || tx.ActorRole != models.ActorNGO {
			t.Errorf("unexpected transaction: %+v", tx)
		}
		if tx.OrgID != f.orgID || tx.EventIndex == nil || *tx.EventIndex != 0 {
			t.Errorf("event not recorded on transaction: %+v", tx)
		}
	}

	u := f.user(t, hp)
	if !u.Assignment.Completed || u.Assignment.CompletedAt == nil {
		t.Errorf("assignment not completed: %+v", u.Assignment)
	}
	if u.ShelterCredits != 10 || u.FoodCredits != 5 {
		t.Errorf("stored balances: shelter=%d food=%d", u.ShelterCredits, u.FoodCredits)
	}
}

func TestComplete_ZeroOfferIsSkipped(t *testing.T) {
	mem := testutil.NewMemStore()
	orgID := mem.AddOrganization(models.Organization{
		Name:   "Library",
		Events: []models.Event{{Name: "Shelving", PositionsAvailable: 1, FoodCreditsOffered: 4}},
	})
	tracker := assignment.New(mem, mem, ledger.New(mem, nil), mem, nil)
	hp := mem.AddHomeless("Sam", 2, 0)
	ctx := context.Background()
	cmd := assignment.Command{Actor: ngo, HomelessID: hp, OrgID: orgID, EventIndex: 0}

	if _, err := tracker.Assign(ctx, cmd); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	c, err := tracker.Complete(ctx, cmd)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(c.Transactions) != 1 || c.Transactions[0].CreditType != models.CreditFood {
		t.Errorf("expected a single food payout, got %+v", c.Transactions)
	}
	if c.Balances.Shelter != 2 || c.Balances.Food != 4 {
		t.Errorf("balances: got %+v, want shelter=2 food=4", c.Balances)
	}
}

func TestComplete_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unassigned := f.mem.AddHomeless("Una", 0, 0)
	elsewhere := f.mem.AddHomeless("Eli", 0, 0)
	if _, err := f.tracker.Assign(ctx, assignment.Command{Actor: ngo, HomelessID: elsewhere, OrgID: f.orgID, EventIndex: 0}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	tests := []struct {
		name string
		cmd  assignment.Command
		want error
	}{
		{"actor not ngo", assignment.Command{Actor: ledger.Actor{Role: models.ActorVolunteeringWorkplace}, HomelessID: elsewhere, OrgID: f.orgID}, ledger.ErrUnauthorizedActor},
		{"unknown org", assignment.Command{Actor: ngo, HomelessID: elsewhere, OrgID: primitive.NewObjectID().Hex()}, ledger.ErrEventNotFound},
		{"bad index", assignment.Command{Actor: ngo, HomelessID: elsewhere, OrgID: f.orgID, EventIndex: 9}, ledger.ErrEventNotFound},
		{"unknown homeless", assignment.Command{Actor: ngo, HomelessID: primitive.NewObjectID().Hex(), OrgID: f.orgID}, ledger.ErrHomelessNotFound},
		{"never assigned", assignment.Command{Actor: ngo, HomelessID: unassigned, OrgID: f.orgID}, ledger.ErrNotAssigned},
		{"assigned to another event", assignment.Command{Actor: ngo, HomelessID: elsewhere, OrgID: f.orgID, EventIndex: 1}, ledger.ErrNotAssigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tracker.Complete(ctx, tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
	if u := f.user(t, elsewhere); u.Assignment.Completed || u.ShelterCredits != 0 {
		t.Errorf("record changed by rejected completions: %+v", u)
	}
}

func TestComplete_Twice(t *testing.T) {
	f := newFixture(t)
	hp := f.mem.AddHomeless("Sam", 0, 0)
	ctx := context.Background()
	cmd := assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 0}

	if _, err := f.tracker.Assign(ctx, cmd); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := f.tracker.Complete(ctx, cmd); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	_, err := f.tracker.Complete(ctx, cmd)
	if !errors.Is(err, ledger.ErrAlreadyCompleted) {
		t.Fatalf("got %v, want %v", err, ledger.ErrAlreadyCompleted)
	}
	u := f.user(t, hp)
	if u.ShelterCredits != 10 || u.FoodCredits != 5 {
		t.Errorf("double paid: shelter=%d food=%d", u.ShelterCredits, u.FoodCredits)
	}
}

func TestComplete_ConcurrentPaysOnce(t *testing.T) {
	f := newFixture(t)
	hp := f.mem.AddHomeless("Sam", 0, 0)
	ctx := context.Background()
	cmd := assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 0}
	if _, err := f.tracker.Assign(ctx, cmd); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.tracker.Complete(ctx, cmd)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, ledger.ErrAlreadyCompleted) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("successful completions: got %d, want 1", ok)
	}
	if u := f.user(t, hp); u.ShelterCredits != 10 || u.FoodCredits != 5 {
		t.Errorf("balances: shelter=%d food=%d", u.ShelterCredits, u.FoodCredits)
	}
}

func TestComplete_RollsBackWhenPayoutFails(t *testing.T) {
	f := newFixture(t)
	hp := f.mem.AddHomeless("Sam", 0, 0)
	ctx := context.Background()
	cmd := assignment.Command{Actor: ngo, HomelessID: hp, OrgID: f.orgID, EventIndex: 0}
	if _, err := f.tracker.Assign(ctx, cmd); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	f.mem.FailAdjust = errors.New("primary stepped down")
	if _, err := f.tracker.Complete(ctx, cmd); err == nil {
		t.Fatal("expected error")
	}
	f.mem.FailAdjust = nil

	u := f.user(t, hp)
	if u.Assignment.Completed {
		t.Error("completion flag not rolled back")
	}
	if u.ShelterCredits != 0 || u.FoodCredits != 0 {
		t.Errorf("balances changed: shelter=%d food=%d", u.ShelterCredits, u.FoodCredits)
	}

	// The pairing is still Assigned, so a retry succeeds.
	if _, err := f.tracker.Complete(ctx, cmd); err != nil {
		t.Fatalf("retry Complete: %v", err)
	}
}
