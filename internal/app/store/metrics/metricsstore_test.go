package metricsstore_test

import (
	"testing"

	metricsstore "github.com/dalemusser/eatandearn/internal/app/store/metrics"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/dalemusser/eatandearn/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFetchCounts_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if got := metricsstore.FetchCounts(ctx, db); got != (metricsstore.Counts{}) {
		t.Errorf("expected zero counts, got %+v", got)
	}
}

func TestFetchCounts_WithData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ngo := fx.CreateNGO(ctx, "Helping Hands")
	fx.CreateNGO(ctx, "Second Chance")
	fx.CreateHomeless(ctx, "Sam", ngo.ID, 1, 2)
	fx.CreateOrganization(ctx, "City Works")
	fx.CreateProvider(ctx, "Sunny Shelter", models.ProviderShelter, 100)

	got := metricsstore.FetchCounts(ctx, db)
	want := metricsstore.Counts{NGOs: 2, Homeless: 1, Organizations: 1, Providers: 1}
	if got != want {
		t.Errorf("counts: got %+v, want %+v", got, want)
	}
}

func TestCreditsHeldBy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ngo := fx.CreateNGO(ctx, "Helping Hands")
	other := fx.CreateNGO(ctx, "Second Chance")
	fx.CreateHomeless(ctx, "Sam", ngo.ID, 10, 3)
	fx.CreateHomeless(ctx, "Kim", ngo.ID, 5, 0)
	fx.CreateHomeless(ctx, "Lee", other.ID, 100, 100)

	got, err := metricsstore.CreditsHeldBy(ctx, db, ngo.ID)
	if err != nil {
		t.Fatalf("CreditsHeldBy: %v", err)
	}
	if got.Shelter != 15 || got.Food != 3 {
		t.Errorf("credits: got %+v, want shelter=15 food=3", got)
	}

	none, err := metricsstore.CreditsHeldBy(ctx, db, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("CreditsHeldBy: %v", err)
	}
	if none != (metricsstore.Credits{}) {
		t.Errorf("expected zero credits, got %+v", none)
	}
}
