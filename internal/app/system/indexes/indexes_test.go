package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/eatandearn/internal/app/system/indexes"
	"github.com/dalemusser/eatandearn/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(ctx context.Context, t *testing.T, c *mongo.Collection) map[string]bool {
	t.Helper()
	cur, err := c.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users":         {"uniq_users_email", "idx_users_role_nameci_id", "idx_users_addedby_nameci"},
		"organizations": {"uniq_orgs_email", "idx_orgs_nameci_id", "idx_orgs_event_positions"},
		"providers":     {"uniq_providers_nameci"},
		"transactions":  {"uniq_txn_reference", "idx_txn_user_created", "idx_txn_created_id"},
		"opportunities": {"idx_opps_created_id"},
		"audit_events":  {"idx_audit_timestamp", "idx_audit_user_time", "idx_audit_actor_time", "idx_audit_category_type_time"},
	}
	for coll, want := range expected {
		names := indexNames(ctx, t, db.Collection(coll))
		for _, name := range want {
			if !names[name] {
				t.Errorf("%s: expected index %q to exist", coll, name)
			}
		}
	}
}

func TestEnsureAll_UniqueEmailAllowsMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	users := db.Collection("users")
	// Two accounts without email are fine.
	for i := 0; i < 2; i++ {
		if _, err := users.InsertOne(ctx, bson.M{"name": "no email", "role": "homeless person"}); err != nil {
			t.Fatalf("insert without email: %v", err)
		}
	}
	if _, err := users.InsertOne(ctx, bson.M{"email": "a@example.com"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := users.InsertOne(ctx, bson.M{"email": "a@example.com"}); err == nil {
		t.Error("expected duplicate key error")
	}
}
