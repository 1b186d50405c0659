package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/eatandearn/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateOrganization inserts an organization with the given events. Each
// event's InitialPositions defaults to its PositionsAvailable.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string, events ...models.Event) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	for i := range events {
		if events[i].InitialPositions == 0 {
			events[i].InitialPositions = events[i].PositionsAvailable
		}
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = now
		}
	}
	if events == nil {
		events = []models.Event{}
	}
	org := models.Organization{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Email:     emailFor(name),
		Events:    events,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create organization: %v", err)
	}
	return org
}

// CreateNGO inserts an NGO account.
func (f *Fixtures) CreateNGO(ctx context.Context, name string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, models.User{
		Name:  name,
		Email: emailFor(name),
		Role:  models.RoleNGO,
		Cause: "Test cause",
	})
}

// CreateHomeless inserts a homeless person registered by addedBy.
func (f *Fixtures) CreateHomeless(ctx context.Context, name string, addedBy primitive.ObjectID, shelter, food int64) models.User {
	f.t.Helper()
	return f.insertUser(ctx, models.User{
		Name:           name,
		Role:           models.RoleHomeless,
		ShelterCredits: shelter,
		FoodCredits:    food,
		AddedBy:        &addedBy,
	})
}

// CreateProvider inserts a provider with the given quota.
func (f *Fixtures) CreateProvider(ctx context.Context, name string, typ models.ProviderType, quota int64) models.Provider {
	f.t.Helper()
	p := models.Provider{
		ID:             primitive.NewObjectID(),
		Name:           name,
		NameCI:         text.Fold(name),
		Type:           typ,
		AvailableQuota: quota,
	}
	if _, err := f.db.Collection("providers").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create provider: %v", err)
	}
	return p
}

func (f *Fixtures) insertUser(ctx context.Context, u models.User) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.NameCI = text.Fold(u.Name)
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func emailFor(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
}

// MustObjectID parses hex or fails the test.
func MustObjectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		t.Fatalf("bad object id %q: %v", hex, err)
	}
	return oid
}
