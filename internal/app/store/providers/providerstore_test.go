package providerstore_test

import (
	"errors"
	"sync"
	"testing"

	providerstore "github.com/dalemusser/eatandearn/internal/app/store/providers"
	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/dalemusser/eatandearn/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Seed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := providerstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	n, err := store.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if n != 2 {
		t.Errorf("seeded: got %d, want 2", n)
	}

	// Seeding a populated collection is a no-op.
	if n, err := store.Seed(ctx); err != nil || n != 0 {
		t.Errorf("second Seed: got %d, %v; want 0", n, err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Green Food Bank" || list[1].Name != "Sunny Shelter" {
		t.Fatalf("unexpected providers: %+v", list)
	}
	if list[1].Type != models.ProviderShelter || list[1].AvailableQuota != 100 {
		t.Errorf("unexpected shelter: %+v", list[1])
	}
}

func TestStore_GetProvider(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := providerstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fixtures.CreateProvider(ctx, "Sunny Shelter", models.ProviderShelter, 100)

	got, err := store.GetProvider(ctx, p.ID.Hex())
	if err != nil {
		t.Fatalf("GetProvider failed: %v", err)
	}
	if got.Name != "Sunny Shelter" || got.AvailableQuota != 100 {
		t.Errorf("unexpected provider: %+v", got)
	}
	if _, err := store.GetProvider(ctx, primitive.NewObjectID().Hex()); !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := store.GetProvider(ctx, "xyz"); !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("malformed id: got %v, want ErrNotFound", err)
	}
}

func TestStore_ConsumeQuota(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := providerstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fixtures.CreateProvider(ctx, "Tiny Shelter", models.ProviderShelter, 10)
	id := p.ID.Hex()

	left, err := store.ConsumeQuota(ctx, id, 10, true)
	if err != nil || left != 0 {
		t.Fatalf("ConsumeQuota: got %d, %v; want 0", left, err)
	}
	if _, err := store.ConsumeQuota(ctx, id, 1, true); !errors.Is(err, storeerr.ErrGuardFailed) {
		t.Errorf("floor: got %v, want ErrGuardFailed", err)
	}
	left, err = store.ConsumeQuota(ctx, id, 3, false)
	if err != nil || left != -3 {
		t.Errorf("overdraw: got %d, %v; want -3", left, err)
	}
	if err := store.RestoreQuota(ctx, id, 3); err != nil {
		t.Fatalf("RestoreQuota: %v", err)
	}
	got, _ := store.GetProvider(ctx, id)
	if got.AvailableQuota != 0 {
		t.Errorf("quota: got %d, want 0", got.AvailableQuota)
	}
	if _, err := store.ConsumeQuota(ctx, primitive.NewObjectID().Hex(), 1, true); !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("unknown provider: got %v, want ErrNotFound", err)
	}
}

func TestStore_ConsumeQuota_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := providerstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fixtures.CreateProvider(ctx, "Tiny Shelter", models.ProviderShelter, 30)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ConsumeQuota(ctx, p.ID.Hex(), 10, true); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 3 {
		t.Errorf("successful consumes: got %d, want 3", ok)
	}
}
