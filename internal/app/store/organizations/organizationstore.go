// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/app/system/normalize"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateOrganization = errors.New("an organization with this email already exists")
	errNameNeeded            = errors.New("organization name is required")
	errEmailNeeded           = errors.New("organization email is required")
	errBadEvent              = errors.New("event needs a name and a non-negative position count and rewards")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.Name = normalize.Name(org.Name)
	org.NameCI = text.Fold(org.Name)
	org.Email = normalize.Email(org.Email)
	if org.Name == "" {
		return models.Organization{}, errNameNeeded
	}
	if org.Email == "" {
		return models.Organization{}, errEmailNeeded
	}
	if org.Events == nil {
		org.Events = []models.Event{}
	}
	org.CreatedAt = now
	org.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, org)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, err
	}
	return org, nil
}

// GetOrganization loads an organization by hex id.
func (s *Store) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Organization{}, storeerr.ErrNotFound
	}
	var org models.Organization
	if err := s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&org); err != nil {
		return models.Organization{}, storeerr.FromMongo(err)
	}
	return org, nil
}

// GetByEmail looks up an organization by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&org); err != nil {
		return models.Organization{}, storeerr.FromMongo(err)
	}
	return org, nil
}

// AddEvent appends ev to the organization's events and returns its index.
// Events are never removed, so the index stays valid.
func (s *Store) AddEvent(ctx context.Context, orgID string, ev models.Event) (int, error) {
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return 0, storeerr.ErrNotFound
	}
	ev.Name = normalize.Name(ev.Name)
	if ev.Name == "" || ev.PositionsAvailable < 0 || ev.ShelterCreditsOffered < 0 || ev.FoodCreditsOffered < 0 {
		return 0, errBadEvent
	}
	ev.InitialPositions = ev.PositionsAvailable
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"events": 1})
	var out models.Organization
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"events": ev}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		opts,
	).Decode(&out)
	if err != nil {
		return 0, storeerr.FromMongo(err)
	}
	return len(out.Events) - 1, nil
}

// ClaimPosition takes one free position of the event and returns how many
// remain. It fails with storeerr.ErrGuardFailed when none are left.
func (s *Store) ClaimPosition(ctx context.Context, orgID string, eventIndex int) (int, error) {
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil || eventIndex < 0 {
		return 0, storeerr.ErrNotFound
	}
	field := eventField(eventIndex, "positions_available")

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"events": 1})
	var out models.Organization
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, field: bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{field: -1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		opts,
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, s.guardOrMissing(ctx, oid, eventIndex)
	}
	if err != nil {
		return 0, err
	}
	ev, _ := out.EventAt(eventIndex)
	return ev.PositionsAvailable, nil
}

// ReleasePosition gives back a position taken by ClaimPosition. It never
// raises the count above the event's initial positions.
func (s *Store) ReleasePosition(ctx context.Context, orgID string, eventIndex int) error {
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil || eventIndex < 0 {
		return storeerr.ErrNotFound
	}
	filter := bson.M{
		"_id": oid,
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$arrayElemAt": bson.A{"$events.positions_available", eventIndex}},
			bson.M{"$arrayElemAt": bson.A{"$events.initial_positions", eventIndex}},
		}},
	}
	update := bson.M{
		"$inc": bson.M{eventField(eventIndex, "positions_available"): 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.guardOrMissing(ctx, oid, eventIndex)
	}
	return nil
}

// ListOpenEvents returns every event with at least one free position,
// ordered by organization name and then event index.
func (s *Store) ListOpenEvents(ctx context.Context) ([]models.OpenEvent, error) {
	orgs, err := s.Find(ctx,
		bson.M{"events.positions_available": bson.M{"$gt": 0}},
		options.Find().
			SetProjection(bson.M{"name": 1, "name_ci": 1, "events": 1}).
			SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	out := []models.OpenEvent{}
	for _, org := range orgs {
		for i, ev := range org.Events {
			if ev.PositionsAvailable > 0 {
				out = append(out, models.OpenEvent{OrgID: org.ID, OrgName: org.Name, EventIndex: i, Event: ev})
			}
		}
	}
	return out, nil
}

// Find returns organizations matching the given filter with optional find options.
// The caller is responsible for building the filter and options (pagination, sorting, projection).
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Organization, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// Count returns the number of organizations matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// guardOrMissing reports storeerr.ErrGuardFailed when the organization and
// the event exist, and storeerr.ErrNotFound otherwise.
func (s *Store) guardOrMissing(ctx context.Context, oid primitive.ObjectID, eventIndex int) error {
	err := s.c.FindOne(ctx,
		bson.M{"_id": oid, "events." + strconv.Itoa(eventIndex): bson.M{"$exists": true}},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if err == nil {
		return storeerr.ErrGuardFailed
	}
	return storeerr.FromMongo(err)
}

func eventField(i int, name string) string {
	return "events." + strconv.Itoa(i) + "." + name
}
