package redemption_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/redemption"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/dalemusser/eatandearn/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ngo = ledger.Actor{ID: "ngo-1", Role: models.ActorNGO}

func newBroker(mem *testutil.MemStore, opts redemption.Options) *redemption.Broker {
	return redemption.New(mem, mem, ledger.New(mem, zap.NewNop()), mem, opts, zap.NewNop())
}

func quota(t *testing.T, mem *testutil.MemStore, id string) int64 {
	t.Helper()
	p, err := mem.GetProvider(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	return p.AvailableQuota
}

func TestRedeem_SunnyShelter(t *testing.T) {
	mem := testutil.NewMemStore()
	b := newBroker(mem, redemption.Options{})
	prov := mem.AddProvider(models.Provider{Name: "Sunny Shelter", Type: models.ProviderShelter, AvailableQuota: 100})
	hp := mem.AddHomeless("Sam", 10, 3)

	r, err := b.Redeem(context.Background(), redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: prov, Amount: 10})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if r.Balance != 0 || r.Quota != 90 {
		t.Errorf("receipt: got balance=%d quota=%d, want 0 and 90", r.Balance, r.Quota)
	}
	if r.Transaction.ProviderID != prov || r.Transaction.CreditType != models.CreditShelter || r.Transaction.Type != models.TxnRedeem {
		t.Errorf("unexpected transaction: %+v", r.Transaction)
	}

	u, _ := mem.GetUser(context.Background(), hp)
	if u.ShelterCredits != 0 || u.FoodCredits != 3 {
		t.Errorf("balances: shelter=%d food=%d", u.ShelterCredits, u.FoodCredits)
	}
	if got := quota(t, mem, prov); got != 90 {
		t.Errorf("quota: got %d, want 90", got)
	}
}

func TestRedeem_FoodBankUsesFoodPool(t *testing.T) {
	mem := testutil.NewMemStore()
	b := newBroker(mem, redemption.Options{})
	prov := mem.AddProvider(models.Provider{Name: "Green Food Bank", Type: models.ProviderFoodBank, AvailableQuota: 200})
	hp := mem.AddHomeless("Sam", 50, 8)

	r, err := b.Redeem(context.Background(), redemption.Command{
		Actor:      ledger.Actor{Role: models.ActorFoodBank},
		HomelessID: hp,
		ProviderID: prov,
		Amount:     8,
	})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if r.Balance != 0 || r.Quota != 192 || r.Transaction.CreditType != models.CreditFood {
		t.Errorf("unexpected receipt: %+v", r)
	}
}

func TestRedeem_Rejections(t *testing.T) {
	mem := testutil.NewMemStore()
	b := newBroker(mem, redemption.Options{})
	shelterID := mem.AddProvider(models.Provider{Name: "Sunny Shelter", Type: models.ProviderShelter, AvailableQuota: 100})
	foodID := mem.AddProvider(models.Provider{Name: "Green Food Bank", Type: models.ProviderFoodBank, AvailableQuota: 200})
	clinicID := mem.AddProvider(models.Provider{Name: "Clinic", Type: "clinic", AvailableQuota: 100})
	smallID := mem.AddProvider(models.Provider{Name: "Tiny Shelter", Type: models.ProviderShelter, AvailableQuota: 5})
	hp := mem.AddHomeless("Sam", 20, 20)
	ngoUser := mem.AddUser(models.User{Name: "Helping Hands", Role: models.RoleNGO})

	tests := []struct {
		name string
		cmd  redemption.Command
		want error
	}{
		{"zero amount", redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: shelterID, Amount: 0}, ledger.ErrInvalidAmount},
		{"unknown homeless", redemption.Command{Actor: ngo, HomelessID: primitive.NewObjectID().Hex(), ProviderID: shelterID, Amount: 1}, ledger.ErrHomelessNotFound},
		{"unknown provider", redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: primitive.NewObjectID().Hex(), Amount: 1}, ledger.ErrProviderNotFound},
		{"unsupported provider type", redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: clinicID, Amount: 1}, ledger.ErrUnsupportedProviderType},
		{"shelter credits at food bank", redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: foodID, Amount: 1, Credit: models.CreditShelter}, ledger.ErrUnsupportedProviderType},
		{"insufficient credits", redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: shelterID, Amount: 21}, ledger.ErrInsufficientCredits},
		{"quota exceeded", redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: smallID, Amount: 6}, ledger.ErrQuotaExceeded},
		{"unauthorized actor", redemption.Command{Actor: ledger.Actor{Role: models.ActorVolunteeringWorkplace}, HomelessID: hp, ProviderID: shelterID, Amount: 1}, ledger.ErrUnauthorizedActor},
		{"target not homeless", redemption.Command{Actor: ngo, HomelessID: ngoUser, ProviderID: shelterID, Amount: 1}, ledger.ErrRoleNotEligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Redeem(context.Background(), tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			u, _ := mem.GetUser(context.Background(), hp)
			if u.ShelterCredits != 20 || u.FoodCredits != 20 {
				t.Errorf("balances changed: shelter=%d food=%d", u.ShelterCredits, u.FoodCredits)
			}
			if quota(t, mem, shelterID) != 100 || quota(t, mem, foodID) != 200 || quota(t, mem, smallID) != 5 {
				t.Error("quota changed on failure")
			}
		})
	}
}

func TestRedeem_AllowOverdraw(t *testing.T) {
	mem := testutil.NewMemStore()
	b := newBroker(mem, redemption.Options{AllowOverdraw: true})
	prov := mem.AddProvider(models.Provider{Name: "Tiny Shelter", Type: models.ProviderShelter, AvailableQuota: 5})
	hp := mem.AddHomeless("Sam", 20, 0)

	r, err := b.Redeem(context.Background(), redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: prov, Amount: 8})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if r.Quota != -3 {
		t.Errorf("quota: got %d, want -3", r.Quota)
	}
}

func TestRedeem_QuotaFailureRestoresBalance(t *testing.T) {
	mem := testutil.NewMemStore()
	b := newBroker(mem, redemption.Options{})
	prov := mem.AddProvider(models.Provider{Name: "Sunny Shelter", Type: models.ProviderShelter, AvailableQuota: 100})
	hp := mem.AddHomeless("Sam", 10, 0)
	mem.FailConsumeQuota = errors.New("network timeout")

	_, err := b.Redeem(context.Background(), redemption.Command{Actor: ngo, HomelessID: hp, ProviderID: prov, Amount: 10})
	if err == nil {
		t.Fatal("expected error")
	}
	u, _ := mem.GetUser(context.Background(), hp)
	if u.ShelterCredits != 10 {
		t.Errorf("balance not restored: got %d, want 10", u.ShelterCredits)
	}
	if got := quota(t, mem, prov); got != 100 {
		t.Errorf("quota: got %d, want 100", got)
	}
}

func TestRedeem_ConcurrentQuotaFloor(t *testing.T) {
	mem := testutil.NewMemStore()
	b := newBroker(mem, redemption.Options{})
	prov := mem.AddProvider(models.Provider{Name: "Tiny Shelter", Type: models.ProviderShelter, AvailableQuota: 30})

	const people = 6
	ids := make([]string, people)
	for i := range ids {
		ids[i] = mem.AddHomeless("P", 10, 0)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := b.Redeem(context.Background(), redemption.Command{Actor: ngo, HomelessID: id, ProviderID: prov, Amount: 10})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ledger.ErrQuotaExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if ok != 3 {
		t.Errorf("successful redemptions: got %d, want 3", ok)
	}
	if got := quota(t, mem, prov); got != 0 {
		t.Errorf("quota: got %d, want 0", got)
	}

	// Every failed redemption must have left its balance intact.
	var total int64
	for _, id := range ids {
		u, _ := mem.GetUser(context.Background(), id)
		total += u.ShelterCredits
	}
	if total != int64(people-ok)*10 {
		t.Errorf("total remaining credits: got %d, want %d", total, int64(people-ok)*10)
	}
}
